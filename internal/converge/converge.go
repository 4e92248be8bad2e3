// Package converge applies a Config to one host: the hosts entry for the
// API name, then every user in order, then the organization.
package converge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/eniac111/chefsetup/internal/modules/chefctl"
	"github.com/eniac111/chefsetup/internal/modules/file"
	"github.com/eniac111/chefsetup/internal/modules/org"
	"github.com/eniac111/chefsetup/internal/modules/probe"
	"github.com/eniac111/chefsetup/internal/modules/shell"
	"github.com/eniac111/chefsetup/internal/modules/user"
	"github.com/eniac111/chefsetup/internal/types"
)

// Runner wires the resources to a probe, an executor and a hosts file.
type Runner struct {
	Probe     probe.StateProbe
	Exec      shell.Executor
	Ctl       chefctl.Ctl
	Hosts     file.FS
	HostsPath string
	Log       zerolog.Logger
}

// Report is the per-resource record of one run. Failures holds the errors
// that did not halt the run.
type Report struct {
	Results  []types.Result
	Failures []error
}

// OK reports whether every resource converged.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Err joins all recorded failures, or returns nil.
func (r Report) Err() error { return errors.Join(r.Failures...) }

// Changed counts resources that changed state.
func (r Report) Changed() int {
	n := 0
	for _, res := range r.Results {
		if res.Changed {
			n++
		}
	}
	return n
}

func (r *Report) record(res types.Result, err error) {
	if err != nil {
		res.Failed = true
		res.Msg = err.Error()
		r.Failures = append(r.Failures, err)
	}
	r.Results = append(r.Results, res)
}

// Run converges cfg. The returned error is set only when the run halted:
// the hosts file could not be updated or a command could not be launched.
// Per-resource failures are in the Report and do not stop later resources.
func (r *Runner) Run(ctx context.Context, cfg types.Config) (Report, error) {
	var rep Report

	entry := file.HostsEntry{Path: r.HostsPath, IP: file.Loopback, Hostname: cfg.APIFQDN, Unique: true}
	status, err := entry.Ensure(r.Hosts)
	rep.record(types.Result{
		Resource: "hosts_entry",
		Name:     entry.IP + " " + entry.Hostname,
		Changed:  status == file.Applied,
		Msg:      status.String(),
	}, err)
	if err != nil {
		return rep, fmt.Errorf("hosts entry: %w", err)
	}
	r.Log.Info().Str("resource", "hosts_entry").Str("name", cfg.APIFQDN).Str("status", status.String()).Msg("converged")

	users := &user.Resource{Probe: r.Probe, Exec: r.Exec, Ctl: r.Ctl, Log: r.Log}
	for _, spec := range cfg.Users {
		outcome, err := users.Converge(ctx, spec, cfg.OutputDir)
		if fatal(err) {
			rep.record(types.Result{Resource: "user", Name: spec.Username}, err)
			return rep, fmt.Errorf("user %q: %w", spec.Username, err)
		}
		rep.record(types.Result{
			Resource: "user",
			Name:     spec.Username,
			Changed:  outcome == user.Created,
			Msg:      outcome.String(),
		}, err)
	}

	orgs := &org.Resource{Probe: r.Probe, Exec: r.Exec, Ctl: r.Ctl, Log: r.Log}
	outcome, err := orgs.Converge(ctx, cfg.Org, cfg.OutputDir)
	res := types.Result{Resource: "org", Name: cfg.Org.Name, Changed: outcome.Created, Msg: orgMsg(outcome)}
	rep.record(res, err)
	if fatal(err) {
		return rep, fmt.Errorf("org %q: %w", cfg.Org.Name, err)
	}

	if rep.OK() {
		r.Log.Info().Int("changed", rep.Changed()).Msg("convergence complete")
	} else {
		r.Log.Error().Int("failures", len(rep.Failures)).Msg("convergence finished with failures")
	}
	return rep, nil
}

func fatal(err error) bool {
	var launchErr *shell.LaunchError
	return errors.As(err, &launchErr)
}

func orgMsg(o org.Outcome) string {
	if !o.Created {
		return "already exists"
	}
	if len(o.Associated) == 0 {
		return "created"
	}
	return "created, associated " + strings.Join(o.Associated, ", ")
}
