package types

// Host represents the machine being converged when running over SSH.
type Host struct {
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	KeyPath    string `yaml:"key_path,omitempty"`    // Optional SSH key path
	KnownHosts string `yaml:"known_hosts,omitempty"` // Host key verification is skipped when empty
}

// Config is the declarative input for one convergence run. It is read once
// and never modified afterwards.
type Config struct {
	// OutputDir is where key files written by the creation commands end up.
	OutputDir string     `yaml:"path" toml:"path"`
	APIFQDN   string     `yaml:"api_fqdn" toml:"api_fqdn"`
	Users     []UserSpec `yaml:"users" toml:"users"`
	Org       OrgSpec    `yaml:"org" toml:"org"`
}

// UserSpec describes one account that must exist. Username is the natural key.
type UserSpec struct {
	Username  string `yaml:"username" toml:"username"`
	FirstName string `yaml:"first_name" toml:"first_name"`
	LastName  string `yaml:"last_name" toml:"last_name"`
	Email     string `yaml:"email" toml:"email"`
	Password  string `yaml:"password" toml:"password"`
}

// OrgSpec describes the organization that must exist and its members.
type OrgSpec struct {
	Name     string   `yaml:"name" toml:"name"`
	FullName string   `yaml:"full_name" toml:"full_name"`
	Users    OrgUsers `yaml:"users" toml:"users"`
}

// OrgUsers splits organization members by role.
type OrgUsers struct {
	Admins []string `yaml:"admins" toml:"admins"`
	Users  []string `yaml:"users" toml:"users"`
}

// Members returns admins followed by regular users, each in configured order.
func (u OrgUsers) Members() []string {
	out := make([]string, 0, len(u.Admins)+len(u.Users))
	out = append(out, u.Admins...)
	return append(out, u.Users...)
}

// Result is what each resource returns from a convergence step.
type Result struct {
	Resource string `json:"resource"`
	Name     string `json:"name"`
	Changed  bool   `json:"changed"`
	Failed   bool   `json:"failed"`
	Msg      string `json:"msg"`
}
