package mcp_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ganot/timekeep/internal/domain/activity"
	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/ganot/timekeep/internal/mcp"
	"github.com/ganot/timekeep/internal/testserver"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func TestServer_ListsToolsAndDocs(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	cs := ts.Connect(t, "")
	ctx := context.Background()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"get_timer", "start_session", "pause_session", "resume_session", "stop_session",
		"reset_session", "take_over_session", "abandon_session", "update_notes",
		"set_session_project", "set_billable", "create_project", "list_projects",
		"get_profile", "get_recent_activity",
	} {
		require.True(t, names[want], "missing tool %s", want)
	}

	doc, err := cs.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "timekeep://docs/timer"})
	require.NoError(t, err)
	require.Len(t, doc.Contents, 1)
	require.Contains(t, doc.Contents[0].Text, "Monday-start week")
}

func TestServer_SessionLifecycle(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	cs := ts.Connect(t, "")

	proj := testserver.Decode[mcp.ProjectView](t, cs, "create_project", map[string]any{
		"id": "p1", "name": "Client work", "hourly_rate": 120,
	})
	require.Equal(t, "p1", proj.ID)

	idle := testserver.Decode[session.View](t, cs, "get_timer", nil)
	require.Equal(t, session.PhaseIdle, idle.Phase)

	started := testserver.Decode[session.View](t, cs, "start_session", map[string]any{"project_id": "p1", "notes": "kickoff"})
	require.Equal(t, session.PhaseRunning, started.Phase)
	require.Equal(t, "Client work", started.ProjectName)
	require.True(t, started.Billable)
	require.Equal(t, session.ConflictOwnedLocally, started.Conflict)

	res := testserver.Call(t, cs, "start_session", map[string]any{"project_id": "p1"})
	require.True(t, res.IsError)
	require.Contains(t, testserver.Text(t, res), "SESSION_ACTIVE")

	paused := testserver.Decode[session.View](t, cs, "pause_session", nil)
	require.Equal(t, session.PhasePaused, paused.Phase)
	resumed := testserver.Decode[session.View](t, cs, "resume_session", nil)
	require.Equal(t, session.PhaseRunning, resumed.Phase)

	noted := testserver.Decode[session.View](t, cs, "update_notes", map[string]any{"notes": "reviewed PR"})
	require.Equal(t, "reviewed PR", noted.Notes)
	billable := testserver.Decode[session.View](t, cs, "set_billable", map[string]any{"billable": false})
	require.False(t, billable.Billable)

	res = testserver.Call(t, cs, "stop_session", nil)
	require.True(t, res.IsError)
	require.Contains(t, testserver.Text(t, res), "CONFIRMATION_REQUIRED")

	stopped := testserver.Decode[mcp.StopResult](t, cs, "stop_session", map[string]any{"confirm": true})
	require.Equal(t, started.SessionID, stopped.Summary.SessionID)
	require.Equal(t, "p1", stopped.Summary.ProjectID)
	require.False(t, stopped.Summary.Billable)
	require.Zero(t, stopped.Summary.Earnings)

	after := testserver.Decode[session.View](t, cs, "get_timer", nil)
	require.Equal(t, session.PhaseIdle, after.Phase)

	projects := testserver.Decode[mcp.ProjectList](t, cs, "list_projects", nil)
	require.Len(t, projects.Projects, 1)
	require.NotEmpty(t, projects.Projects[0].LastTracked)

	log := testserver.Decode[mcp.ActivityList](t, cs, "get_recent_activity", map[string]any{"session_id": started.SessionID})
	types := map[activity.ActivityType]bool{}
	for _, e := range log.Entries {
		types[e.ActivityType] = true
	}
	require.True(t, types[activity.TypeSessionStarted])
	require.True(t, types[activity.TypeSessionPaused])
	require.True(t, types[activity.TypeSessionStopped])

	prof := testserver.Decode[mcp.ProfileView](t, cs, "get_profile", nil)
	require.NotEmpty(t, prof.WeekStart)
}

func TestServer_ResetDiscards(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	cs := ts.Connect(t, "")

	testserver.Decode[mcp.ProjectView](t, cs, "create_project", map[string]any{"id": "p1", "name": "Client work"})
	testserver.Decode[session.View](t, cs, "start_session", map[string]any{"project_id": "p1"})

	res := testserver.Call(t, cs, "reset_session", map[string]any{"confirm": false})
	require.True(t, res.IsError)

	v := testserver.Decode[session.View](t, cs, "reset_session", map[string]any{"confirm": true})
	require.Equal(t, session.PhaseIdle, v.Phase)

	res = testserver.Call(t, cs, "pause_session", nil)
	require.True(t, res.IsError)
	require.Contains(t, testserver.Text(t, res), "NO_ACTIVE_SESSION")
}

func TestServer_TwoDevicesConflictAndTakeOver(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	laptop := testserver.New(t, testserver.Options{DBPath: dbPath})
	desktop := testserver.New(t, testserver.Options{DBPath: dbPath})
	a := laptop.Connect(t, "")
	b := desktop.Connect(t, "")

	testserver.Decode[mcp.ProjectView](t, a, "create_project", map[string]any{"id": "p1", "name": "Client work"})
	started := testserver.Decode[session.View](t, a, "start_session", map[string]any{"project_id": "p1"})

	// The desktop holds a token from earlier work, so it does not adopt.
	require.NoError(t, desktop.App.Device.For("local").SetToken("desktop-token"))
	seen := testserver.Decode[session.View](t, b, "get_timer", nil)
	require.Equal(t, started.SessionID, seen.SessionID)
	require.Equal(t, session.ConflictDetected, seen.Conflict)

	res := testserver.Call(t, b, "pause_session", nil)
	require.True(t, res.IsError)
	require.Contains(t, testserver.Text(t, res), "OWNERSHIP_CONFLICT")

	taken := testserver.Decode[session.View](t, b, "take_over_session", nil)
	require.Equal(t, session.ConflictOwnedLocally, taken.Conflict)

	lost := testserver.Decode[session.View](t, a, "get_timer", nil)
	require.Equal(t, session.ConflictDetected, lost.Conflict)

	res = testserver.Call(t, a, "stop_session", map[string]any{"confirm": true})
	require.True(t, res.IsError)
	require.Contains(t, testserver.Text(t, res), "OWNERSHIP_CONFLICT")

	stopped := testserver.Decode[mcp.StopResult](t, b, "stop_session", map[string]any{"confirm": true})
	require.Equal(t, started.SessionID, stopped.Summary.SessionID)
}

func TestServer_BearerAuth(t *testing.T) {
	ts := testserver.New(t, testserver.Options{AuthEnabled: true})
	ts.AddAPIKey(t, "secret", "alice")

	alice := ts.Connect(t, "secret")
	testserver.Decode[mcp.ProjectView](t, alice, "create_project", map[string]any{"id": "p1", "name": "Alice's"})

	p, err := ts.App.Projects.Get(context.Background(), "alice", "p1")
	require.NoError(t, err)
	require.Equal(t, "Alice's", p.Name)

	intruder := ts.Connect(t, "wrong")
	_, err = intruder.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "list_projects", Arguments: map[string]any{}})
	require.ErrorContains(t, err, "unauthorized")
}
