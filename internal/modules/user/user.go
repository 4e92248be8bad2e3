package user

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eniac111/chefsetup/internal/modules/chefctl"
	"github.com/eniac111/chefsetup/internal/modules/probe"
	"github.com/eniac111/chefsetup/internal/modules/shell"
	"github.com/eniac111/chefsetup/internal/types"
)

// Outcome of converging one user.
type Outcome int

const (
	AlreadyExists Outcome = iota
	Created
)

func (o Outcome) String() string {
	if o == Created {
		return "created"
	}
	return "already exists"
}

// CreationError is returned when the create command exits non-zero.
type CreationError struct {
	Username   string
	ExitStatus int
	Stderr     string
}

func (e *CreationError) Error() string {
	msg := fmt.Sprintf("create user %q: exit status %d", e.Username, e.ExitStatus)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Resource converges chef server user accounts.
type Resource struct {
	Probe probe.StateProbe
	Exec  shell.Executor
	Ctl   chefctl.Ctl
	Log   zerolog.Logger
}

// Converge creates spec.Username iff the probe reports it absent. A failed
// create is not retried.
func (r *Resource) Converge(ctx context.Context, spec types.UserSpec, outputDir string) (Outcome, error) {
	log := r.Log.With().Str("resource", "user").Str("name", spec.Username).Logger()

	exists, err := r.Probe.UserExists(ctx, spec.Username)
	if err != nil {
		return AlreadyExists, err
	}
	if exists {
		log.Debug().Msg("user present, nothing to do")
		return AlreadyExists, nil
	}

	cmd := r.Ctl.UserCreate(spec, outputDir)
	log.Info().Str("action", "create").Msg(cmd.Name)
	out, err := r.Exec.Run(ctx, cmd)
	if err != nil {
		return AlreadyExists, err
	}
	if !out.Success() {
		return AlreadyExists, &CreationError{
			Username:   spec.Username,
			ExitStatus: out.ExitStatus,
			Stderr:     out.Diagnostic(),
		}
	}
	return Created, nil
}
