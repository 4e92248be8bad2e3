package org

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eniac111/chefsetup/internal/modules/chefctl"
	"github.com/eniac111/chefsetup/internal/modules/probe"
	"github.com/eniac111/chefsetup/internal/modules/shell"
	"github.com/eniac111/chefsetup/internal/types"
)

// Outcome of converging the organization. Associated lists the members
// linked in this pass, admins first.
type Outcome struct {
	Created    bool
	Associated []string
}

// CreationError is returned when org-create exits non-zero. No member is
// associated after it.
type CreationError struct {
	Org        string
	ExitStatus int
	Stderr     string
}

func (e *CreationError) Error() string {
	msg := fmt.Sprintf("create organization %q: exit status %d", e.Org, e.ExitStatus)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// AssociationError is one member that could not be linked to the org.
type AssociationError struct {
	Org        string
	Username   string
	Admin      bool
	ExitStatus int
	Stderr     string
}

func (e *AssociationError) Error() string {
	msg := fmt.Sprintf("associate %q with organization %q: exit status %d", e.Username, e.Org, e.ExitStatus)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Resource converges one chef server organization.
type Resource struct {
	Probe probe.StateProbe
	Exec  shell.Executor
	Ctl   chefctl.Ctl
	Log   zerolog.Logger
}

// Converge creates the org if absent and then associates every configured
// member. An org that already exists is left alone entirely, members
// included.
//
// Association failures do not stop the loop; they come back joined after
// every member was attempted. A launch failure stops it at once and is
// joined with the failures seen before it.
func (r *Resource) Converge(ctx context.Context, spec types.OrgSpec, outputDir string) (Outcome, error) {
	log := r.Log.With().Str("resource", "org").Str("name", spec.Name).Logger()

	exists, err := r.Probe.OrgExists(ctx, spec.Name)
	if err != nil {
		return Outcome{}, err
	}
	if exists {
		log.Debug().Msg("organization present, nothing to do")
		return Outcome{Associated: []string{}}, nil
	}

	cmd := r.Ctl.OrgCreate(spec, outputDir)
	log.Info().Str("action", "create").Msg(cmd.Name)
	out, err := r.Exec.Run(ctx, cmd)
	if err != nil {
		return Outcome{}, err
	}
	if !out.Success() {
		return Outcome{}, &CreationError{Org: spec.Name, ExitStatus: out.ExitStatus, Stderr: out.Diagnostic()}
	}

	res := Outcome{Created: true, Associated: []string{}}
	var failures []error
	associate := func(username string, admin bool) error {
		cmd := r.Ctl.OrgUserAdd(spec.Name, username, admin)
		log.Info().Str("action", "associate").Str("member", username).Bool("admin", admin).Msg(cmd.Name)
		out, err := r.Exec.Run(ctx, cmd)
		if err != nil {
			return err
		}
		if !out.Success() {
			log.Warn().Str("member", username).Int("exit_status", out.ExitStatus).Msg("association failed")
			failures = append(failures, &AssociationError{
				Org:        spec.Name,
				Username:   username,
				Admin:      admin,
				ExitStatus: out.ExitStatus,
				Stderr:     out.Diagnostic(),
			})
			return nil
		}
		res.Associated = append(res.Associated, username)
		return nil
	}

	for _, username := range spec.Users.Admins {
		if err := associate(username, true); err != nil {
			return res, errors.Join(append(failures, err)...)
		}
	}
	for _, username := range spec.Users.Users {
		if err := associate(username, false); err != nil {
			return res, errors.Join(append(failures, err)...)
		}
	}
	return res, errors.Join(failures...)
}
