package user

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/chefsetup/internal/modules/chefctl"
	"github.com/eniac111/chefsetup/internal/modules/shell"
	"github.com/eniac111/chefsetup/internal/testutil/fakes"
	"github.com/eniac111/chefsetup/internal/types"
)

var alice = types.UserSpec{
	Username:  "alice",
	FirstName: "Alice",
	LastName:  "Smith",
	Email:     "alice@example.com",
	Password:  "hunter2",
}

func newResource(p *fakes.Probe, e *fakes.Executor) *Resource {
	return &Resource{Probe: p, Exec: e, Ctl: chefctl.Ctl{}, Log: zerolog.Nop()}
}

func TestConverge_ExistingUserIsNoOp(t *testing.T) {
	exec := fakes.NewExecutor()
	r := newResource(fakes.NewProbe([]string{"alice"}, nil), exec)

	outcome, err := r.Converge(context.Background(), alice, "/out")
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, outcome)
	assert.Empty(t, exec.Commands)
}

func TestConverge_AbsentUserIsCreatedOnce(t *testing.T) {
	exec := fakes.NewExecutor()
	p := fakes.NewProbe(nil, nil)
	r := newResource(p, exec)

	outcome, err := r.Converge(context.Background(), alice, "/out")
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.Equal(t, []string{"user:alice"}, p.Checked)

	require.Len(t, exec.Commands, 1)
	assert.Equal(t, "create chef user alice", exec.Commands[0].Name)
	assert.Equal(t, chefctl.Ctl{}.UserCreate(alice, "/out").Line, exec.Commands[0].Line)
	for _, field := range []string{"'Alice'", "'Smith'", "'alice@example.com'", "'hunter2'", "'/out/alice.pem'"} {
		assert.Contains(t, exec.Commands[0].Line, field)
	}
}

func TestConverge_CreationFailure(t *testing.T) {
	exec := fakes.NewExecutor("create chef user alice")
	r := newResource(fakes.NewProbe(nil, nil), exec)

	_, err := r.Converge(context.Background(), alice, "/out")
	var createErr *CreationError
	require.ErrorAs(t, err, &createErr)
	assert.Equal(t, "alice", createErr.Username)
	assert.Equal(t, 1, createErr.ExitStatus)
	assert.Len(t, exec.Commands, 1)
}

func TestConverge_ProbeErrorStopsBeforeCreate(t *testing.T) {
	p := fakes.NewProbe(nil, nil)
	p.Err = &shell.LaunchError{Command: "probe chef user alice", Err: errors.New("not found")}
	exec := fakes.NewExecutor()

	_, err := newResource(p, exec).Converge(context.Background(), alice, "/out")
	var launchErr *shell.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Empty(t, exec.Commands)
}
