package cli_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ganot/timekeep/internal/cli"
	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/ganot/timekeep/internal/localstate"
	"github.com/stretchr/testify/require"
)

type device struct {
	db    string
	state string
}

func newDevice(t *testing.T, db string) device {
	t.Helper()
	t.Setenv("TIMEKEEP_CONFIG_PATH", "")
	return device{db: db, state: filepath.Join(t.TempDir(), "device.yaml")}
}

func (d device) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", d.db, "--state", d.state, "--user", "alice"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (d device) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := d.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

func TestCLI_SessionLifecycle(t *testing.T) {
	d := newDevice(t, filepath.Join(t.TempDir(), "timekeep.db"))

	out := d.mustRun(t, "status")
	require.Contains(t, out, "No active session")

	out = d.mustRun(t, "projects")
	require.Contains(t, out, "No projects")

	out = d.mustRun(t, "projects", "add", "Client work", "--id", "p1", "--rate", "90")
	require.Contains(t, out, "Created project Client work (p1)")

	_, err := d.run(t, "", "start")
	require.Error(t, err)

	out = d.mustRun(t, "start", "--project", "p1", "--notes", "kickoff")
	require.Contains(t, out, "RUNNING")
	require.Contains(t, out, "Client work")
	require.Contains(t, out, "billable: yes")

	_, err = d.run(t, "", "start", "--project", "p1")
	require.ErrorIs(t, err, session.ErrSessionActive)

	out = d.mustRun(t, "pause")
	require.Contains(t, out, "PAUSED")
	_, err = d.run(t, "", "pause")
	require.ErrorIs(t, err, session.ErrAlreadyPaused)
	out = d.mustRun(t, "resume")
	require.Contains(t, out, "RUNNING")

	out = d.mustRun(t, "notes", "reviewed", "the", "PR")
	require.Contains(t, out, "notes:    reviewed the PR")
	out = d.mustRun(t, "status")
	require.Contains(t, out, "reviewed the PR")

	out = d.mustRun(t, "billable", "off")
	require.Contains(t, out, "billable: no")
	_, err = d.run(t, "", "billable", "maybe")
	require.ErrorIs(t, err, session.ErrInvalidInput)

	out, err = d.run(t, "n\n", "stop")
	require.NoError(t, err)
	require.Contains(t, out, "Cancelled")
	require.Contains(t, d.mustRun(t, "status"), "RUNNING")

	out, err = d.run(t, "y\n", "stop")
	require.NoError(t, err)
	require.Contains(t, out, "Stopped session")
	require.Contains(t, out, "project:  Client work")
	require.NotContains(t, out, "earnings")

	require.Contains(t, d.mustRun(t, "status"), "No active session")
	_, err = d.run(t, "", "stop", "--yes")
	require.ErrorIs(t, err, session.ErrNoActiveSession)

	out = d.mustRun(t, "log", "--limit", "10")
	require.Contains(t, out, "session_started")
	require.Contains(t, out, "session_stopped")

	out = d.mustRun(t, "projects")
	require.Contains(t, out, "p1")
	require.Contains(t, out, "90.00")

	out = d.mustRun(t, "profile")
	require.Contains(t, out, "This week")
}

func TestCLI_ResetAndSwitch(t *testing.T) {
	d := newDevice(t, filepath.Join(t.TempDir(), "timekeep.db"))
	d.mustRun(t, "projects", "add", "One", "--id", "p1")
	d.mustRun(t, "projects", "add", "Two", "--id", "p2")

	_, err := d.run(t, "", "reset", "--yes")
	require.ErrorIs(t, err, session.ErrNothingToReset)

	d.mustRun(t, "start", "-p", "p1", "--no-billable")
	out := d.mustRun(t, "switch", "p2")
	require.Contains(t, out, "Two")
	require.Contains(t, out, "billable: no")

	out, err = d.run(t, "", "reset")
	require.NoError(t, err)
	require.Contains(t, out, "Cancelled")

	out = d.mustRun(t, "reset", "--yes")
	require.Contains(t, out, "Session discarded")
	require.Contains(t, d.mustRun(t, "status"), "No active session")
}

func TestCLI_TwoDevices(t *testing.T) {
	db := filepath.Join(t.TempDir(), "shared.db")
	laptop := newDevice(t, db)
	desktop := newDevice(t, db)

	laptop.mustRun(t, "projects", "add", "Client work", "--id", "p1")
	laptop.mustRun(t, "start", "-p", "p1")

	// The desktop already holds a token of its own.
	state, err := localstate.Open(desktop.state)
	require.NoError(t, err)
	require.NoError(t, state.For("alice").SetToken("desktop-token"))

	out := desktop.mustRun(t, "status")
	require.Contains(t, out, "another device owns this session")

	_, err = desktop.run(t, "", "pause")
	require.ErrorIs(t, err, session.ErrOwnershipConflict)

	out = desktop.mustRun(t, "takeover")
	require.NotContains(t, out, "another device owns")

	_, err = laptop.run(t, "", "pause")
	require.ErrorIs(t, err, session.ErrOwnershipConflict)

	out = laptop.mustRun(t, "abandon")
	require.Contains(t, out, "left to the other device")

	out = desktop.mustRun(t, "stop", "--yes")
	require.Contains(t, out, "Stopped session")
}

func TestCLI_WatchTakesOver(t *testing.T) {
	db := filepath.Join(t.TempDir(), "shared.db")
	laptop := newDevice(t, db)
	desktop := newDevice(t, db)

	laptop.mustRun(t, "projects", "add", "Client work", "--id", "p1")
	laptop.mustRun(t, "start", "-p", "p1")

	state, err := localstate.Open(desktop.state)
	require.NoError(t, err)
	require.NoError(t, state.For("alice").SetToken("desktop-token"))

	out, err := desktop.run(t, "t\n", "watch", "--for", "200ms", "--interval", "50ms")
	require.NoError(t, err)
	require.Contains(t, out, "[t]ake over")
	require.Contains(t, out, "Took over the session")

	_, err = laptop.run(t, "", "pause")
	require.ErrorIs(t, err, session.ErrOwnershipConflict)
	desktop.mustRun(t, "pause")
}

func TestCLI_SignOut(t *testing.T) {
	d := newDevice(t, filepath.Join(t.TempDir(), "timekeep.db"))
	d.mustRun(t, "projects", "add", "Client work", "--id", "p1")
	d.mustRun(t, "start", "-p", "p1")

	out := d.mustRun(t, "signout")
	require.Contains(t, out, "Signed out")
	require.Contains(t, d.mustRun(t, "status"), "No active session")

	out = d.mustRun(t, "log")
	require.Contains(t, out, "signed_out")
}

func TestCLI_KeyAdd(t *testing.T) {
	d := newDevice(t, filepath.Join(t.TempDir(), "timekeep.db"))
	out := d.mustRun(t, "key", "add", "--description", "laptop")
	require.Len(t, strings.TrimSpace(out), 36)
}
