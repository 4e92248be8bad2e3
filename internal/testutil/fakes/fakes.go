// Package fakes holds in-memory stand-ins for the probe and executor.
package fakes

import (
	"context"
	"sync"

	"github.com/eniac111/chefsetup/internal/modules/shell"
)

// Probe is a map-backed StateProbe.
type Probe struct {
	Users   map[string]bool
	Orgs    map[string]bool
	Err     error
	Checked []string
}

// NewProbe returns a Probe that reports the given users and orgs as present.
func NewProbe(users, orgs []string) *Probe {
	p := &Probe{Users: map[string]bool{}, Orgs: map[string]bool{}}
	for _, u := range users {
		p.Users[u] = true
	}
	for _, o := range orgs {
		p.Orgs[o] = true
	}
	return p
}

func (p *Probe) UserExists(_ context.Context, username string) (bool, error) {
	p.Checked = append(p.Checked, "user:"+username)
	if p.Err != nil {
		return false, p.Err
	}
	return p.Users[username], nil
}

func (p *Probe) OrgExists(_ context.Context, org string) (bool, error) {
	p.Checked = append(p.Checked, "org:"+org)
	if p.Err != nil {
		return false, p.Err
	}
	return p.Orgs[org], nil
}

// Executor records every command it is asked to run. Commands whose name is
// in Fail exit with status 1; Hook, when set, runs after each success.
type Executor struct {
	mu       sync.Mutex
	Commands []shell.Command
	Fail     map[string]bool
	Launch   map[string]error
	Hook     func(cmd shell.Command)
}

// NewExecutor returns an Executor failing the named commands.
func NewExecutor(fail ...string) *Executor {
	e := &Executor{Fail: map[string]bool{}, Launch: map[string]error{}}
	for _, name := range fail {
		e.Fail[name] = true
	}
	return e
}

func (e *Executor) Run(_ context.Context, cmd shell.Command) (shell.Outcome, error) {
	e.mu.Lock()
	e.Commands = append(e.Commands, cmd)
	e.mu.Unlock()

	if err, ok := e.Launch[cmd.Name]; ok {
		return shell.Outcome{}, &shell.LaunchError{Command: cmd.Name, Err: err}
	}
	if e.Fail[cmd.Name] {
		return shell.Outcome{ExitStatus: 1, Stderr: []byte(cmd.Name + " failed")}, nil
	}
	if e.Hook != nil {
		e.Hook(cmd)
	}
	return shell.Outcome{}, nil
}

// Names returns the display names of recorded commands in order.
func (e *Executor) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.Commands))
	for _, c := range e.Commands {
		names = append(names, c.Name)
	}
	return names
}
