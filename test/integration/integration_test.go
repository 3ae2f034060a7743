package integration_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ganot/timekeep/internal/app"
	"github.com/ganot/timekeep/internal/cli"
	"github.com/ganot/timekeep/internal/config"
	"github.com/ganot/timekeep/internal/domain/project"
	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/ganot/timekeep/internal/mcp"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const userID = "local"

type testEnv struct {
	dbPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{dbPath: filepath.Join(t.TempDir(), "timekeep.db")}
}

func (e *testEnv) config(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DB.Path = e.dbPath
	cfg.Device.StatePath = filepath.Join(t.TempDir(), "device.yaml")
	cfg.Timer.WatchInterval = 10 * time.Millisecond
	cfg.Timer.NotesDebounce = 20 * time.Millisecond
	return cfg
}

// device opens an App with its own state file on the shared database.
func (e *testEnv) device(t *testing.T) *app.App {
	t.Helper()
	a, err := app.Open(e.config(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func controller(t *testing.T, a *app.App) *session.Controller {
	t.Helper()
	c, err := a.NewController(userID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	_, err = c.Load(context.Background())
	require.NoError(t, err)
	return c
}

func waitFor(t *testing.T, c *session.Controller, cond func(session.TimerState) bool) session.TimerState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if st := c.State(); cond(st) {
			return st
		}
		select {
		case <-c.Updates():
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("condition not reached; state %+v", c.State())
		}
	}
}

func createProject(t *testing.T, a *app.App) {
	t.Helper()
	_, err := a.Projects.Create(context.Background(), userID, project.CreateRequest{ID: "p1", Name: "Client work", HourlyRate: 60})
	require.NoError(t, err)
}

func TestIntegration_RemoteChangesPropagate(t *testing.T) {
	env := newTestEnv(t)
	laptop, desktop := env.device(t), env.device(t)
	createProject(t, laptop)
	ctx := context.Background()

	a := controller(t, laptop)
	st, err := a.Start(ctx, session.StartRequest{ProjectID: "p1", Billable: true})
	require.NoError(t, err)

	// A device with no token of its own adopts the running session.
	b := controller(t, desktop)
	require.Equal(t, st.SessionID, b.State().SessionID)
	require.Equal(t, session.ConflictOwnedLocally, b.State().Conflict)

	_, err = a.Pause(ctx)
	require.NoError(t, err)
	waitFor(t, b, func(s session.TimerState) bool { return s.Paused })

	_, err = b.Resume(ctx)
	require.NoError(t, err)
	resumed := waitFor(t, a, func(s session.TimerState) bool { return !s.Paused })
	require.Len(t, resumed.PauseEvents, 2)

	_, err = b.SetNotes(ctx, "from the desktop")
	require.NoError(t, err)
	waitFor(t, a, func(s session.TimerState) bool { return s.Notes == "from the desktop" })

	summary, err := a.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, st.SessionID, summary.SessionID)
	waitFor(t, b, func(s session.TimerState) bool { return s.SessionID == "" })
}

func TestIntegration_FinalizeCountsOnce(t *testing.T) {
	env := newTestEnv(t)
	dev := env.device(t)
	createProject(t, dev)
	ctx := context.Background()

	c := controller(t, dev)
	st, err := c.Start(ctx, session.StartRequest{ProjectID: "p1", Billable: true})
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	first, err := session.Finalize(ctx, dev.Store, userID, st.SessionID, later, nil)
	require.NoError(t, err)
	require.False(t, first.AlreadyFinalized)
	require.GreaterOrEqual(t, first.Minutes, int64(59))
	require.InDelta(t, 60, first.Earnings, 1)

	second, err := session.Finalize(ctx, dev.Store, userID, st.SessionID, later.Add(time.Hour), nil)
	require.NoError(t, err)
	require.True(t, second.AlreadyFinalized)
	require.Equal(t, first.Duration, second.Duration)

	prof, err := dev.Profiles.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, first.Minutes, prof.TotalTrackedTime)

	p, err := dev.Projects.Get(ctx, userID, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.LastTrackedTime)
}

// TestIntegration_CLIAndMCPShareSessions starts a session from the command
// line and stops it through an MCP server in stdio mode on another device.
func TestIntegration_CLIAndMCPShareSessions(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("TIMEKEEP_CONFIG_PATH", "")
	cliState := filepath.Join(t.TempDir(), "cli.yaml")

	runCLI := func(args ...string) string {
		t.Helper()
		cmd := cli.NewRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--db", env.dbPath, "--state", cliState, "--user", userID}, args...))
		require.NoError(t, cmd.Execute(), out.String())
		return out.String()
	}
	runCLI("projects", "add", "Client work", "--id", "p1")
	out := runCLI("start", "--project", "p1")
	require.Contains(t, out, "RUNNING")

	server := env.device(t)
	registry := mcp.NewRegistry(server.NewController, nil)
	t.Cleanup(func() { _ = registry.Close() })
	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Timers:   registry,
			Projects: server.Projects,
			Profiles: server.Profiles,
			Activity: server.Activity,
		},
		TransportMode: "stdio",
		DefaultUser:   userID,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	go func() { _ = mcpServer.Run(ctx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{Name: "get_timer", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Contains(t, textOf(t, res), `"phase":"running"`)

	res, err = cs.CallTool(ctx, &sdkmcp.CallToolParams{Name: "stop_session", Arguments: map[string]any{"confirm": true}})
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))

	out = runCLI("status")
	require.Contains(t, out, "No active session")
	out = runCLI("log", "--limit", "5")
	require.Contains(t, out, "session_stopped")
}

func textOf(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range res.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}
