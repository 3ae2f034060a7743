package mcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ganot/timekeep/internal/domain/activity"
	"github.com/ganot/timekeep/internal/domain/profile"
	"github.com/ganot/timekeep/internal/domain/project"
	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/ganot/timekeep/internal/domain/timer"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var errNoUser = errors.New("unauthorized: no user in request context")

// EmptyParams is the input of tools without arguments.
type EmptyParams struct{}

// StartSessionParams are the start_session arguments.
type StartSessionParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project to track time against"`
	Billable  *bool  `json:"billable,omitempty" jsonschema:"Whether the time is billable (default true)"`
	Notes     string `json:"notes,omitempty" jsonschema:"Initial session notes"`
}

// ConfirmParams guard destructive tools.
type ConfirmParams struct {
	Confirm bool `json:"confirm,omitempty" jsonschema:"Must be true. Ask the user before setting it."`
}

// UpdateNotesParams are the update_notes arguments.
type UpdateNotesParams struct {
	Notes string `json:"notes" jsonschema:"Replacement notes for the running session"`
}

// SetSessionProjectParams are the set_session_project arguments.
type SetSessionProjectParams struct {
	ProjectID string `json:"project_id" jsonschema:"Project to move the running session to"`
}

// SetBillableParams are the set_billable arguments.
type SetBillableParams struct {
	Billable bool `json:"billable" jsonschema:"Whether the running session is billable"`
}

// CreateProjectParams are the create_project arguments.
type CreateProjectParams struct {
	ID          string  `json:"id,omitempty" jsonschema:"Project identifier (generated when omitted)"`
	Name        string  `json:"name" jsonschema:"Project display name"`
	Description string  `json:"description,omitempty" jsonschema:"Project description"`
	HourlyRate  float64 `json:"hourly_rate,omitempty" jsonschema:"Hourly rate used for earnings"`
}

// ListActivityParams are the get_recent_activity arguments.
type ListActivityParams struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"Only entries for this project"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Only entries for this session"`
	Type      string `json:"type,omitempty" jsonschema:"Only entries of this type, e.g. session_stopped"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of entries (default 20)"`
	Offset    int    `json:"offset,omitempty" jsonschema:"Offset for pagination"`
}

// StopResult is the stop_session output.
type StopResult struct {
	Summary session.Summary `json:"summary"`
	Elapsed string          `json:"elapsed"`
}

// ProjectView is a project as reported by tools.
type ProjectView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	HourlyRate  float64   `json:"hourly_rate"`
	LastTracked string    `json:"last_tracked,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newProjectView(p project.Project) ProjectView {
	v := ProjectView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		HourlyRate:  p.HourlyRate,
		CreatedAt:   p.CreatedAt,
	}
	if p.LastTrackedTime != nil {
		v.LastTracked = p.LastTrackedTime.UTC().Format(time.RFC3339)
	}
	return v
}

// ProjectList is the list_projects output.
type ProjectList struct {
	Projects []ProjectView `json:"projects"`
}

// ProfileView is the get_profile output, in minutes.
type ProfileView struct {
	TotalMinutes  int64  `json:"total_minutes"`
	WeeklyMinutes int64  `json:"weekly_minutes"`
	WeekStart     string `json:"week_start"`
}

// ActivityList is the get_recent_activity output.
type ActivityList struct {
	Entries []activity.ActivityEntry `json:"entries"`
}

// Handler implements the MCP tools on top of the domain services.
type Handler struct {
	services Services
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{services: services, logger: logger, now: time.Now}
}

func (h *Handler) timer(ctx context.Context) (Timer, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, errNoUser
	}
	return h.services.Timers.Timer(ctx, userID)
}

func view(t Timer) session.View {
	return t.State().View(t.Now())
}

// GetTimer reloads the open session from the store and reports it.
func (h *Handler) GetTimer(ctx context.Context, _ EmptyParams) (session.View, error) {
	t, err := h.timer(ctx)
	if err != nil {
		return session.View{}, err
	}
	st, err := t.Load(ctx)
	if err != nil {
		return session.View{}, err
	}
	return st.View(t.Now()), nil
}

// StartSession starts a running session on this device.
func (h *Handler) StartSession(ctx context.Context, p StartSessionParams) (session.View, error) {
	t, err := h.timer(ctx)
	if err != nil {
		return session.View{}, err
	}
	billable := true
	if p.Billable != nil {
		billable = *p.Billable
	}
	st, err := t.Start(ctx, session.StartRequest{
		ProjectID: p.ProjectID,
		Billable:  billable,
		Notes:     p.Notes,
	})
	if err != nil {
		return session.View{}, err
	}
	return st.View(t.Now()), nil
}

// PauseSession pauses the running session.
func (h *Handler) PauseSession(ctx context.Context, _ EmptyParams) (session.View, error) {
	return h.transition(ctx, Timer.Pause)
}

// ResumeSession resumes the paused session.
func (h *Handler) ResumeSession(ctx context.Context, _ EmptyParams) (session.View, error) {
	return h.transition(ctx, Timer.Resume)
}

// TakeOverSession claims a session owned by another device.
func (h *Handler) TakeOverSession(ctx context.Context, _ EmptyParams) (session.View, error) {
	return h.transition(ctx, Timer.TakeOver)
}

func (h *Handler) transition(ctx context.Context, op func(Timer, context.Context) (session.TimerState, error)) (session.View, error) {
	t, err := h.timer(ctx)
	if err != nil {
		return session.View{}, err
	}
	st, err := op(t, ctx)
	if err != nil {
		return session.View{}, err
	}
	return st.View(t.Now()), nil
}

// StopSession finalizes the session.
func (h *Handler) StopSession(ctx context.Context, p ConfirmParams) (StopResult, error) {
	if !p.Confirm {
		return StopResult{}, ErrConfirmationRequired
	}
	t, err := h.timer(ctx)
	if err != nil {
		return StopResult{}, err
	}
	summary, err := t.Stop(ctx)
	if err != nil {
		return StopResult{}, err
	}
	return StopResult{Summary: *summary, Elapsed: timer.Format(summary.Duration)}, nil
}

// ResetSession discards the session without counting it.
func (h *Handler) ResetSession(ctx context.Context, p ConfirmParams) (session.View, error) {
	if !p.Confirm {
		return session.View{}, ErrConfirmationRequired
	}
	t, err := h.timer(ctx)
	if err != nil {
		return session.View{}, err
	}
	if err := t.Reset(ctx); err != nil {
		return session.View{}, err
	}
	return view(t), nil
}

// AbandonSession leaves another device's session alone on this device.
func (h *Handler) AbandonSession(ctx context.Context, _ EmptyParams) (session.View, error) {
	t, err := h.timer(ctx)
	if err != nil {
		return session.View{}, err
	}
	if err := t.Abandon(ctx); err != nil {
		return session.View{}, err
	}
	return view(t), nil
}

// UpdateNotes replaces the session notes and writes them through.
func (h *Handler) UpdateNotes(ctx context.Context, p UpdateNotesParams) (session.View, error) {
	t, err := h.timer(ctx)
	if err != nil {
		return session.View{}, err
	}
	if _, err := t.SetNotes(ctx, p.Notes); err != nil {
		return session.View{}, err
	}
	if err := t.FlushNotes(ctx); err != nil {
		return session.View{}, err
	}
	return view(t), nil
}

// SetSessionProject moves the session to another project.
func (h *Handler) SetSessionProject(ctx context.Context, p SetSessionProjectParams) (session.View, error) {
	t, err := h.timer(ctx)
	if err != nil {
		return session.View{}, err
	}
	st, err := t.SetProject(ctx, p.ProjectID, "")
	if err != nil {
		return session.View{}, err
	}
	return st.View(t.Now()), nil
}

// SetBillable toggles the billable flag.
func (h *Handler) SetBillable(ctx context.Context, p SetBillableParams) (session.View, error) {
	t, err := h.timer(ctx)
	if err != nil {
		return session.View{}, err
	}
	st, err := t.SetBillable(ctx, p.Billable)
	if err != nil {
		return session.View{}, err
	}
	return st.View(t.Now()), nil
}

// CreateProject creates a project for the current user.
func (h *Handler) CreateProject(ctx context.Context, p CreateProjectParams) (ProjectView, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return ProjectView{}, errNoUser
	}
	proj, err := h.services.Projects.Create(ctx, userID, project.CreateRequest{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		HourlyRate:  p.HourlyRate,
	})
	if err != nil {
		return ProjectView{}, err
	}
	return newProjectView(*proj), nil
}

// ListProjects lists the current user's projects.
func (h *Handler) ListProjects(ctx context.Context, _ EmptyParams) (ProjectList, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return ProjectList{}, errNoUser
	}
	projects, err := h.services.Projects.List(ctx, userID)
	if err != nil {
		return ProjectList{}, err
	}
	out := ProjectList{Projects: make([]ProjectView, 0, len(projects))}
	for _, p := range projects {
		out.Projects = append(out.Projects, newProjectView(p))
	}
	return out, nil
}

// GetProfile reports tracked-time totals.
func (h *Handler) GetProfile(ctx context.Context, _ EmptyParams) (ProfileView, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return ProfileView{}, errNoUser
	}
	prof, err := h.services.Profiles.Get(ctx, userID)
	if err != nil {
		return ProfileView{}, err
	}
	now := h.now()
	return ProfileView{
		TotalMinutes:  prof.TotalTrackedTime,
		WeeklyMinutes: prof.WeeklyAt(now),
		WeekStart:     profile.WeekStart(now).Format(time.DateOnly),
	}, nil
}

// GetRecentActivity lists activity log entries, newest first.
func (h *Handler) GetRecentActivity(ctx context.Context, p ListActivityParams) (ActivityList, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return ActivityList{}, errNoUser
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	opts := activity.ListActivityOptions{
		ProjectID: p.ProjectID,
		Limit:     limit,
		Offset:    p.Offset,
	}
	if p.SessionID != "" {
		opts.SessionID = &p.SessionID
	}
	if p.Type != "" {
		typ := activity.ActivityType(p.Type)
		opts.ActivityType = &typ
	}
	entries, err := h.services.Activity.GetRecentActivity(ctx, userID, opts)
	if err != nil {
		return ActivityList{}, err
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	return ActivityList{Entries: entries}, nil
}

// tool adapts a handler method to the SDK's typed tool signature, mapping
// domain errors to coded tool errors.
func tool[In, Out any](logger *slog.Logger, name string, fn func(context.Context, In) (Out, error)) sdkmcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
		out, err := fn(ctx, in)
		if err != nil {
			var zero Out
			logger.Debug("tool failed", "tool", name, "user_id", getUserID(ctx), "error", err)
			return nil, zero, toolError(err)
		}
		return nil, out, nil
	}
}

func registerTools(server *sdkmcp.Server, h *Handler) {
	add := func(name, description string) *sdkmcp.Tool {
		return &sdkmcp.Tool{Name: name, Description: description}
	}
	l := h.logger

	sdkmcp.AddTool(server, add("get_timer", "Reload and show the current session, including conflicts with other devices"), tool(l, "get_timer", h.GetTimer))
	sdkmcp.AddTool(server, add("start_session", "Start tracking time against a project on this device"), tool(l, "start_session", h.StartSession))
	sdkmcp.AddTool(server, add("pause_session", "Pause the running session"), tool(l, "pause_session", h.PauseSession))
	sdkmcp.AddTool(server, add("resume_session", "Resume the paused session"), tool(l, "resume_session", h.ResumeSession))
	sdkmcp.AddTool(server, add("stop_session", "Stop and finalize the session. Requires confirm=true"), tool(l, "stop_session", h.StopSession))
	sdkmcp.AddTool(server, add("reset_session", "Discard the session without counting its time. Requires confirm=true"), tool(l, "reset_session", h.ResetSession))
	sdkmcp.AddTool(server, add("take_over_session", "Claim a session that another device owns"), tool(l, "take_over_session", h.TakeOverSession))
	sdkmcp.AddTool(server, add("abandon_session", "Leave another device's session alone on this device"), tool(l, "abandon_session", h.AbandonSession))
	sdkmcp.AddTool(server, add("update_notes", "Replace the running session's notes"), tool(l, "update_notes", h.UpdateNotes))
	sdkmcp.AddTool(server, add("set_session_project", "Move the running session to another project"), tool(l, "set_session_project", h.SetSessionProject))
	sdkmcp.AddTool(server, add("set_billable", "Mark the running session billable or not"), tool(l, "set_billable", h.SetBillable))
	sdkmcp.AddTool(server, add("create_project", "Create a project to track time against"), tool(l, "create_project", h.CreateProject))
	sdkmcp.AddTool(server, add("list_projects", "List projects for the current user"), tool(l, "list_projects", h.ListProjects))
	sdkmcp.AddTool(server, add("get_profile", "Show total and weekly tracked minutes"), tool(l, "get_profile", h.GetProfile))
	sdkmcp.AddTool(server, add("get_recent_activity", "List recent session activity, newest first"), tool(l, "get_recent_activity", h.GetRecentActivity))
}
