package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `timekeep tracks work time against projects. One server process is one device.

Core concepts:
- Project: something you bill time to. Has a name and an hourly rate.
- Session: one running timer. A user has at most one open session across all devices.
- Ownership: the device that started (or took over) a session owns it. Other devices see a conflict
  and cannot pause, resume, stop, or edit it until they take it over.

Default workflow:
1) Call get_timer to see whether a session is already open (possibly on another device).
2) start_session with a project_id from list_projects (create_project if none fits).
3) pause_session / resume_session as work is interrupted. update_notes as you go.
4) stop_session with confirm=true to finalize. Time counts toward the project and profile totals.
   reset_session with confirm=true discards the session instead.

Conflicts:
- get_timer reports conflict="conflict" when another device owns the session.
- take_over_session claims it for this device; the other device loses ownership.
- abandon_session leaves it alone on this device.

Docs:
- timekeep://docs/timer (state machine and accounting rules)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "timekeep://docs/timer",
		Name:        "docs_timer",
		Title:       "timekeep timer rules",
		Description: "Session states, pause accounting, stop finalization, and multi-device ownership.",
		Content: `# timekeep: timer rules

## States

idle -> running <-> paused -> stopped -> idle

- start: idle to running. Fails if any device already has an open session.
- pause / resume: toggle between running and paused. Each records a pause event.
- stop: running or paused to stopped. Requires confirmation.
- reset: discards the session. Nothing is added to totals.

## Elapsed time

Elapsed seconds = stored elapsed + (now - start reference) while running.
While paused the stored elapsed value is authoritative.

## Paused time

Pause events are paired in order. A pause still open at stop is closed at the
stop instant and counted as paused time.

## Stop

Stop finalizes the session in one transaction:
- status=stopped, endTime, elapsedTime, pausedTime
- project lastTrackedTime (only moves forward)
- profile totalTrackedTime and weeklyTrackedTime in minutes, rounded;
  the weekly total resets when a new Monday-start week has begun

Stopping twice returns the first summary without counting the time again.
Billable sessions report earnings = hours * hourly rate.

## Devices

Each device keeps an ownership token per user. When the session's token differs
from the local one, the device is in conflict: it shows the remote time but
refuses writes. take_over_session rewrites the token (last writer wins).
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
