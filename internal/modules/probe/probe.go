// Package probe answers read-only questions about server state.
package probe

import (
	"context"
	"fmt"

	"github.com/eniac111/chefsetup/internal/modules/chefctl"
	"github.com/eniac111/chefsetup/internal/modules/shell"
)

// StateProbe reports whether users and organizations already exist.
type StateProbe interface {
	UserExists(ctx context.Context, username string) (bool, error)
	OrgExists(ctx context.Context, org string) (bool, error)
}

// Command is a StateProbe backed by listing commands. Only a launch failure
// is an error; any other non-zero exit status means absent. Exit 126 or 127
// means the provider could not be run and counts as a launch failure.
type Command struct {
	Exec shell.Executor
	Ctl  chefctl.Ctl
}

// New returns a command-backed probe.
func New(exec shell.Executor, ctl chefctl.Ctl) *Command {
	return &Command{Exec: exec, Ctl: ctl}
}

// Probe runs cmd and returns its outcome. Stdout and stderr are kept for
// diagnostics only.
func (p *Command) Probe(ctx context.Context, cmd shell.Command) (shell.Outcome, error) {
	return p.Exec.Run(ctx, cmd)
}

func (p *Command) UserExists(ctx context.Context, username string) (bool, error) {
	return p.exists(ctx, p.Ctl.UserList(username))
}

func (p *Command) OrgExists(ctx context.Context, org string) (bool, error) {
	return p.exists(ctx, p.Ctl.OrgList(org))
}

func (p *Command) exists(ctx context.Context, cmd shell.Command) (bool, error) {
	out, err := p.Probe(ctx, cmd)
	if err != nil {
		return false, err
	}
	if out.ExitStatus == 126 || out.ExitStatus == chefctl.ExitProviderMissing {
		return false, &shell.LaunchError{
			Command: cmd.Name,
			Err:     fmt.Errorf("provider not runnable (exit status %d)", out.ExitStatus),
		}
	}
	return out.Success(), nil
}
