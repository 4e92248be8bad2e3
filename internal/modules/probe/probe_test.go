package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/chefsetup/internal/modules/chefctl"
	"github.com/eniac111/chefsetup/internal/modules/shell"
	"github.com/eniac111/chefsetup/internal/testutil/fakes"
)

func TestCommand_ExitStatusDecides(t *testing.T) {
	exec := fakes.NewExecutor("probe chef user bob", "probe chef organization acme")
	p := New(exec, chefctl.Ctl{})
	ctx := context.Background()

	ok, err := p.UserExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.UserExists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.OrgExists(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, exec.Commands, 3)
	assert.Equal(t, chefctl.Ctl{}.UserList("alice").Line, exec.Commands[0].Line)
	assert.Equal(t, chefctl.Ctl{}.OrgList("acme").Line, exec.Commands[2].Line)
}

func TestCommand_LaunchErrorPropagates(t *testing.T) {
	exec := fakes.NewExecutor()
	exec.Launch["probe chef user alice"] = errors.New("permission denied")
	p := New(exec, chefctl.Ctl{})

	_, err := p.UserExists(context.Background(), "alice")
	var launchErr *shell.LaunchError
	require.ErrorAs(t, err, &launchErr)
}

func fakeProvider(t *testing.T, listing string) string {
	t.Helper()
	provider := filepath.Join(t.TempDir(), "chef-server-ctl")
	script := "#!/bin/sh\nprintf '" + listing + "'\n"
	require.NoError(t, os.WriteFile(provider, []byte(script), 0o755))
	return provider
}

func TestCommand_ExactLineMatch(t *testing.T) {
	// A listing of "alice2" must not count as "alice".
	provider := fakeProvider(t, "alice2\\njxsmith\\nacme-dev\\n")
	p := New(shell.NewLocal(5*time.Second), chefctl.Ctl{Provider: provider})
	ctx := context.Background()

	ok, err := p.UserExists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.UserExists(ctx, "alice2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.OrgExists(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommand_NamesAreLiteral(t *testing.T) {
	provider := fakeProvider(t, "jxsmith\\n-v\\nacme\\n")
	p := New(shell.NewLocal(5*time.Second), chefctl.Ctl{Provider: provider})
	ctx := context.Background()

	testCases := []struct {
		name   string
		exists bool
	}{
		{name: "j.smith", exists: false},
		{name: "j.*", exists: false},
		{name: "jxsmith", exists: true},
		{name: "-v", exists: true},
		{name: "ac[m]e", exists: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := p.UserExists(ctx, tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.exists, ok)
		})
	}
}

func TestCommand_MissingProviderIsLaunchError(t *testing.T) {
	p := New(shell.NewLocal(5*time.Second), chefctl.Ctl{Provider: "/nonexistent/chef-server-ctl"})

	for _, check := range []func(context.Context, string) (bool, error){p.UserExists, p.OrgExists} {
		ok, err := check(context.Background(), "alice")
		assert.False(t, ok)
		var launchErr *shell.LaunchError
		require.ErrorAs(t, err, &launchErr)
	}
}

func TestCommand_NotRunnableStatusIsLaunchError(t *testing.T) {
	for _, status := range []int{126, 127} {
		exec := &statusExecutor{status: status}
		_, err := New(exec, chefctl.Ctl{}).OrgExists(context.Background(), "acme")
		var launchErr *shell.LaunchError
		require.ErrorAs(t, err, &launchErr, "status %d", status)
	}

	_, err := New(&statusExecutor{status: 2}, chefctl.Ctl{}).OrgExists(context.Background(), "acme")
	assert.NoError(t, err)
}

type statusExecutor struct{ status int }

func (e *statusExecutor) Run(context.Context, shell.Command) (shell.Outcome, error) {
	return shell.Outcome{ExitStatus: e.status}, nil
}
