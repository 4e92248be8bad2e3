package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goversion "github.com/caarlos0/go-version"
	"github.com/rs/zerolog"

	"github.com/eniac111/chefsetup/internal/config"
	"github.com/eniac111/chefsetup/internal/converge"
	"github.com/eniac111/chefsetup/internal/logging"
	"github.com/eniac111/chefsetup/internal/modules/chefctl"
	"github.com/eniac111/chefsetup/internal/modules/file"
	"github.com/eniac111/chefsetup/internal/modules/probe"
	"github.com/eniac111/chefsetup/internal/modules/shell"
	"github.com/eniac111/chefsetup/internal/ssh"
	"github.com/eniac111/chefsetup/internal/types"
)

const (
	application = "chefsetup"
	description = "Converges a Chef server host: hosts entry, users and organization"
	website     = "https://github.com/eniac111/chefsetup"
)

var (
	version   = ""
	commit    = ""
	treeState = ""
	date      = ""
	builtBy   = ""
)

func convergeCmd(args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("converge", flag.ExitOnError)
	dataPath := fs.String("config", "data.yml", "path to the data file (.yml or .toml)")
	hostsFile := fs.String("hosts-file", settings.HostsFile, "hosts file to update")
	provider := fs.String("provider", settings.Provider, "server management command")
	timeout := fs.Duration("timeout", settings.CommandTimeout, "timeout per command")
	logLevel := fs.String("log-level", settings.LogLevel, "log level")
	host := fs.String("host", "", "converge a remote host over SSH instead of this one")
	sshUser := fs.String("ssh-user", "root", "SSH user")
	sshPort := fs.Int("ssh-port", 22, "SSH port")
	sshKey := fs.String("ssh-key", "", "SSH private key path")
	knownHosts := fs.String("known-hosts", "", "known_hosts file for host key verification")
	fs.Parse(args)

	logger := logging.New(logging.Options{App: application, Level: *logLevel, Pretty: settings.LogPretty})

	cfg, err := config.Load(*dataPath)
	if err != nil {
		return err
	}
	logger.Info().Str("path", *dataPath).Int("users", len(cfg.Users)).Str("org", cfg.Org.Name).Msg("loaded data file")

	var (
		exec  shell.Executor = shell.NewLocal(*timeout)
		hosts file.FS        = file.OS{}
	)
	if *host != "" {
		client, err := ssh.Connect(types.Host{
			Name:       *host,
			User:       *sshUser,
			Port:       *sshPort,
			KeyPath:    *sshKey,
			KnownHosts: *knownHosts,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		remoteFS, err := ssh.NewFS(client)
		if err != nil {
			return fmt.Errorf("open sftp: %w", err)
		}
		defer remoteFS.Close()

		exec = &ssh.Executor{Client: client, Timeout: *timeout}
		hosts = remoteFS
		logger.Info().Str("host", *host).Msg("converging remote host")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctl := chefctl.Ctl{Provider: *provider}
	runner := &converge.Runner{
		Probe:     probe.New(exec, ctl),
		Exec:      exec,
		Ctl:       ctl,
		Hosts:     hosts,
		HostsPath: *hostsFile,
		Log:       logger,
	}

	rep, err := runner.Run(ctx, cfg)
	printReport(logger, rep)
	if err != nil {
		return err
	}
	return rep.Err()
}

func printReport(logger zerolog.Logger, rep converge.Report) {
	for _, res := range rep.Results {
		ev := logger.Info()
		if res.Failed {
			ev = logger.Error()
		}
		ev.Str("resource", res.Resource).
			Str("name", res.Name).
			Bool("changed", res.Changed).
			Msg(res.Msg)
	}
}

func buildVersion() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails(application, description, website),
		func(i *goversion.Info) {
			if commit != "" {
				i.GitCommit = commit
			}
			if version != "" {
				i.GitVersion = version
			}
			if treeState != "" {
				i.GitTreeState = treeState
			}
			if date != "" {
				i.BuildDate = date
			}
			if builtBy != "" {
				i.BuiltBy = builtBy
			}
		},
	)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: chefsetup <converge|version> [options]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "converge":
		if err := convergeCmd(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "version":
		fmt.Println(buildVersion().String())
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", os.Args[1])
		os.Exit(1)
	}
}
