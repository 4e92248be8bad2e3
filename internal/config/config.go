package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/eniac111/chefsetup/internal/types"
)

// Settings are runtime knobs read from the environment.
type Settings struct {
	Provider       string        `env:"CHEFSETUP_PROVIDER" envDefault:"chef-server-ctl"`
	HostsFile      string        `env:"CHEFSETUP_HOSTS_FILE" envDefault:"/etc/hosts"`
	CommandTimeout time.Duration `env:"CHEFSETUP_COMMAND_TIMEOUT" envDefault:"2m"`
	LogLevel       string        `env:"CHEFSETUP_LOG_LEVEL" envDefault:"info"`
	LogPretty      bool          `env:"CHEFSETUP_LOG_PRETTY" envDefault:"true"`
}

// LoadSettings parses Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if s.CommandTimeout <= 0 {
		return Settings{}, fmt.Errorf("CHEFSETUP_COMMAND_TIMEOUT must be positive")
	}
	return s, nil
}

// Load reads the data file at path. Files ending in .toml are TOML,
// anything else is YAML.
func Load(path string) (types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	var cfg types.Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return types.Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields convergence cannot do without. Duplicate
// usernames and overlapping org roles are accepted as given.
func Validate(cfg types.Config) error {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return fmt.Errorf("path is required")
	}
	if strings.TrimSpace(cfg.APIFQDN) == "" {
		return fmt.Errorf("api_fqdn is required")
	}
	for i, u := range cfg.Users {
		if strings.TrimSpace(u.Username) == "" {
			return fmt.Errorf("user[%d] invalid: username is required", i)
		}
	}
	if strings.TrimSpace(cfg.Org.Name) == "" {
		return fmt.Errorf("org.name is required")
	}
	for i, name := range cfg.Org.Users.Members() {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("org member[%d] invalid: username is required", i)
		}
	}
	return nil
}
