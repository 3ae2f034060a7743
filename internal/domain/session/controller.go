package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ganot/timekeep/internal/docstore"
	"github.com/ganot/timekeep/internal/domain/activity"
	"github.com/ganot/timekeep/internal/domain/project"
	"github.com/ganot/timekeep/internal/domain/timer"
	"github.com/ganot/timekeep/internal/events"
	"github.com/google/uuid"
)

// LocalState is the device-local persistence the controller needs.
type LocalState interface {
	TokenStore
	ClearToken() error
	InstanceID() (string, error)
}

// ProjectLookup resolves project names and rates.
type ProjectLookup interface {
	Get(ctx context.Context, userID, id string) (*project.Project, error)
}

// ActivityRecorder appends lifecycle entries to the activity log.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, projectID, sessionID string, typ activity.ActivityType, summary string, details map[string]any)
}

// Config wires a Controller.
type Config struct {
	UserID    string
	Store     docstore.Store
	Local     LocalState
	Projects  ProjectLookup
	Activity  ActivityRecorder
	// Publisher is called with the controller lock held and should not block
	// on the network; events.Queue does not.
	Publisher events.Publisher

	Now            func() time.Time
	NotesDebounce  time.Duration
	NotesMaxLength int
	Logger         *slog.Logger
}

// DefaultNotesMaxLength bounds session notes, in characters.
const DefaultNotesMaxLength = 500

// StartRequest describes a new session.
type StartRequest struct {
	ProjectID   string
	ProjectName string
	Billable    bool
	Notes       string
}

// Controller drives one user's session on one device. Operations are
// serialized; remote snapshots are folded into the same state between them.
type Controller struct {
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	sync     *Synchronizer
	detector *Detector
	notes    *debouncer

	baseCtx context.Context
	cancel  context.CancelFunc
	updates chan TimerState

	mu     sync.Mutex
	state  TimerState
	closed bool
}

// NewController creates a controller in the idle state. Call Load to pick up
// a session already open in the store.
func NewController(cfg Config) (*Controller, error) {
	if cfg.UserID == "" || cfg.Store == nil || cfg.Local == nil {
		return nil, fmt.Errorf("controller config: %w", ErrInvalidInput)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NotesDebounce <= 0 {
		cfg.NotesDebounce = time.Second
	}
	if cfg.NotesMaxLength <= 0 {
		cfg.NotesMaxLength = DefaultNotesMaxLength
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("user_id", cfg.UserID)

	baseCtx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:      cfg,
		logger:   logger,
		now:      cfg.Now,
		sync:     NewSynchronizer(cfg.Store, logger),
		detector: NewDetector(cfg.Local, logger),
		baseCtx:  baseCtx,
		cancel:   cancel,
		updates:  make(chan TimerState, 1),
		state:    TimerState{Conflict: ConflictNoSession},
	}
	c.notes = newDebouncer(cfg.NotesDebounce, func(err error) {
		c.logger.Error("session write failed", "op", "notes", "error", err)
	})
	return c, nil
}

// UserID returns the user this controller acts for.
func (c *Controller) UserID() string {
	return c.cfg.UserID
}

// State returns a copy of the current local state.
func (c *Controller) State() TimerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Now returns the controller's clock reading.
func (c *Controller) Now() time.Time {
	return c.now()
}

// Updates delivers the state after every change. Only the latest undelivered
// state is kept.
func (c *Controller) Updates() <-chan TimerState {
	return c.updates
}

// Load finds the user's open session, applies it, runs the eager conflict
// check and attaches the live subscription. With no open session the
// controller goes idle and drops any stale local token.
func (c *Controller) Load(ctx context.Context) (TimerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.state.Clone(), docstore.ErrClosed
	}

	snaps, err := c.openSessions(ctx, c.cfg.Store)
	if err != nil {
		return c.state.Clone(), fmt.Errorf("load session: %w", err)
	}
	if len(snaps) == 0 {
		c.goIdleLocked()
		if err := c.cfg.Local.ClearToken(); err != nil {
			c.logger.Warn("clear stale token failed", "error", err)
		}
		return c.state.Clone(), nil
	}
	if len(snaps) > 1 {
		c.logger.Warn("multiple open sessions", "count", len(snaps))
	}
	latest := snaps[len(snaps)-1]

	if c.state.SessionID != latest.Ref.ID {
		c.sync.Detach()
		c.state = TimerState{Conflict: ConflictNoSession}
	}
	c.applyLocked(latest)
	if c.state.Running {
		if err := c.sync.Attach(c.baseCtx, latest.Ref.ID, c.onSnapshot); err != nil {
			return c.state.Clone(), err
		}
	}
	return c.state.Clone(), nil
}

// Start creates a new running session. The ownership token is persisted
// locally before the session document is written and cleared again if the
// write fails.
func (c *Controller) Start(ctx context.Context, req StartRequest) (TimerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Running {
		return c.state.Clone(), ErrSessionActive
	}
	if req.ProjectID == "" {
		return c.state.Clone(), ErrNoProject
	}
	if utf8.RuneCountInString(req.Notes) > c.cfg.NotesMaxLength {
		return c.state.Clone(), ErrNotesTooLong
	}
	if req.ProjectName == "" {
		name, err := c.projectName(ctx, req.ProjectID)
		if err != nil {
			return c.state.Clone(), err
		}
		req.ProjectName = name
	}
	instanceID, err := c.cfg.Local.InstanceID()
	if err != nil {
		return c.state.Clone(), fmt.Errorf("start session: %w", err)
	}
	sessionID := uuid.NewString()
	token := uuid.NewString()
	if err := c.cfg.Local.SetToken(token); err != nil {
		return c.state.Clone(), fmt.Errorf("start session: %w", err)
	}

	startMs := c.now().UnixMilli()
	fields := docstore.Fields{
		FieldID:              sessionID,
		FieldUserID:          c.cfg.UserID,
		FieldProjectID:       req.ProjectID,
		FieldProjectName:     req.ProjectName,
		FieldElapsedTime:     0,
		FieldPaused:          false,
		FieldStatus:          StatusRunning,
		FieldPauseEvents:     []any{},
		FieldPausedTime:      0,
		FieldOwnershipToken:  token,
		FieldInstanceID:      instanceID,
		FieldBillable:        req.Billable,
		FieldNotes:           req.Notes,
		FieldStartTime:       docstore.ServerTimestamp,
		FieldClientStartTime: startMs,
		FieldEndTime:         nil,
		FieldCreatedAt:       docstore.ServerTimestamp,
	}
	// The open-session check and the write share a transaction so two
	// devices cannot both start.
	err = c.cfg.Store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		open, err := c.openSessions(ctx, tx)
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return ErrSessionActive
		}
		return tx.Set(ctx, docstore.Doc(Collection, sessionID), fields)
	})
	if err != nil {
		// Nothing was written, so the token must not outlive the attempt.
		if clearErr := c.cfg.Local.ClearToken(); clearErr != nil {
			c.logger.Warn("clear token failed", "error", clearErr)
		}
		if errors.Is(err, ErrSessionActive) {
			return c.state.Clone(), err
		}
		c.logger.Error("session write failed", "op", "start", "session_id", sessionID, "error", err)
		return c.state.Clone(), fmt.Errorf("start session: %w", err)
	}

	c.sync.Detach()
	c.state = TimerState{
		SessionID:   sessionID,
		Running:     true,
		Status:      StatusRunning,
		StartRef:    &startMs,
		RemoteToken: token,
		ProjectID:   req.ProjectID,
		ProjectName: req.ProjectName,
		Notes:       req.Notes,
		Billable:    req.Billable,
		Conflict:    ConflictOwnedLocally,
	}
	c.confirmLocked(ctx)
	if err := c.sync.Attach(c.baseCtx, sessionID, c.onSnapshot); err != nil {
		c.logger.Error("attach failed", "session_id", sessionID, "error", err)
	}

	c.logger.Info("session started", "session_id", sessionID, "project_id", req.ProjectID)
	c.recordLocked(ctx, activity.TypeSessionStarted, events.TypeStarted, "Started session", nil)
	c.notifyLocked()
	return c.state.Clone(), nil
}

// Pause freezes the timer at its displayed value.
func (c *Controller) Pause(ctx context.Context) (TimerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwnedLocked(); err != nil {
		return c.state.Clone(), err
	}
	if c.state.Paused {
		return c.state.Clone(), ErrAlreadyPaused
	}

	now := c.now()
	base := c.state.Display(now)
	c.state.Paused = true
	c.state.Status = StatusPaused
	c.state.BaseElapsed = base
	c.state.StartRef = nil
	c.state.PauseEvents = append(c.state.PauseEvents, timer.Event{Type: timer.EventPause, Timestamp: now.UTC()})

	err := c.cfg.Store.Update(ctx, c.ref(), docstore.Fields{
		FieldElapsedTime: base,
		FieldPaused:      true,
		FieldStatus:      StatusPaused,
		FieldPauseEvents: docstore.ArrayAppend(pauseEvent(timer.EventPause)),
	})
	if err != nil {
		return c.state.Clone(), c.writeFailedLocked(ctx, "pause", err)
	}
	c.confirmLocked(ctx)

	c.recordLocked(ctx, activity.TypeSessionPaused, events.TypePaused, "Paused session", map[string]any{"elapsed": base})
	c.notifyLocked()
	return c.state.Clone(), nil
}

// Resume restarts the timer from the paused base.
func (c *Controller) Resume(ctx context.Context) (TimerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwnedLocked(); err != nil {
		return c.state.Clone(), err
	}
	if !c.state.Paused {
		return c.state.Clone(), ErrNotPaused
	}

	now := c.now()
	startMs := now.UnixMilli()
	c.state.Paused = false
	c.state.Status = StatusRunning
	c.state.StartRef = &startMs
	c.state.PauseEvents = append(c.state.PauseEvents, timer.Event{Type: timer.EventResume, Timestamp: now.UTC()})

	err := c.cfg.Store.Update(ctx, c.ref(), docstore.Fields{
		FieldPaused:          false,
		FieldStatus:          StatusRunning,
		FieldPauseEvents:     docstore.ArrayAppend(pauseEvent(timer.EventResume)),
		FieldStartTime:       docstore.ServerTimestamp,
		FieldClientStartTime: startMs,
	})
	if err != nil {
		return c.state.Clone(), c.writeFailedLocked(ctx, "resume", err)
	}
	c.confirmLocked(ctx)

	c.recordLocked(ctx, activity.TypeSessionResumed, events.TypeResumed, "Resumed session", nil)
	c.notifyLocked()
	return c.state.Clone(), nil
}

// Stop finalizes the session and its aggregates, then returns to idle.
// Callers confirm with the user before calling.
func (c *Controller) Stop(ctx context.Context) (*Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwnedLocked(); err != nil {
		return nil, err
	}
	if err := c.notes.Flush(ctx); err != nil {
		c.logger.Error("session write failed", "op", "notes", "session_id", c.state.SessionID, "error", err)
	}

	summary, err := Finalize(ctx, c.cfg.Store, c.cfg.UserID, c.state.SessionID, c.now(), c.logger)
	if err != nil {
		return nil, c.writeFailedLocked(ctx, "stop", err)
	}

	c.logger.Info("session stopped",
		"session_id", summary.SessionID,
		"elapsed", summary.Duration,
		"paused", summary.Paused,
		"already_finalized", summary.AlreadyFinalized,
	)
	if !summary.AlreadyFinalized {
		c.recordLocked(ctx, activity.TypeSessionStopped, events.TypeStopped, "Stopped session", map[string]any{
			"elapsed": summary.Duration,
			"paused":  summary.Paused,
		})
	}
	c.endLocked()
	return summary, nil
}

// Reset abandons the session without counting it toward any totals.
// Callers confirm with the user before calling.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.SessionID == "" && c.state.Display(c.now()) == 0 {
		return ErrNothingToReset
	}
	if c.state.SessionID != "" && c.state.Conflict == ConflictDetected {
		return ErrOwnershipConflict
	}
	c.notes.Cancel()

	if c.state.SessionID != "" {
		err := c.cfg.Store.Update(ctx, c.ref(), docstore.Fields{
			FieldStatus:      StatusReset,
			FieldPaused:      true,
			FieldElapsedTime: 0,
			FieldEndTime:     c.now().UTC(),
		})
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return c.writeFailedLocked(ctx, "reset", err)
		}
		c.recordLocked(ctx, activity.TypeSessionReset, events.TypeReset, "Reset session", nil)
	}

	c.logger.Info("session reset", "session_id", c.state.SessionID)
	c.endLocked()
	return nil
}

// SignOut ends the session as signed out, freezing its elapsed time without
// counting it toward totals, and clears the device token. A device that does
// not own the session leaves the document alone.
func (c *Controller) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Running && c.state.Conflict != ConflictDetected {
		if err := c.notes.Flush(ctx); err != nil {
			c.logger.Error("session write failed", "op", "notes", "session_id", c.state.SessionID, "error", err)
		}
		elapsed := c.state.Display(c.now())
		err := c.cfg.Store.Update(ctx, c.ref(), docstore.Fields{
			FieldStatus:      StatusSignedOut,
			FieldPaused:      true,
			FieldElapsedTime: elapsed,
			FieldEndTime:     c.now().UTC(),
		})
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return c.writeFailedLocked(ctx, "sign out", err)
		}
		c.recordLocked(ctx, activity.TypeSignedOut, events.TypeSignOut, "Signed out", map[string]any{"elapsed": elapsed})
		c.endLocked()
		return nil
	}

	c.notes.Cancel()
	c.goIdleLocked()
	if err := c.cfg.Local.ClearToken(); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	c.notifyLocked()
	return nil
}

// TakeOver claims the session for this device by writing the local token and
// instance id over the remote ones. Last writer wins.
func (c *Controller) TakeOver(ctx context.Context) (TimerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Running {
		return c.state.Clone(), ErrNoActiveSession
	}
	if c.state.Conflict != ConflictDetected {
		return c.state.Clone(), ErrNoConflict
	}

	token, err := c.cfg.Local.Token()
	if err != nil {
		return c.state.Clone(), fmt.Errorf("take over: %w", err)
	}
	if token == "" {
		token = uuid.NewString()
		if err := c.cfg.Local.SetToken(token); err != nil {
			return c.state.Clone(), fmt.Errorf("take over: %w", err)
		}
	}
	instanceID, err := c.cfg.Local.InstanceID()
	if err != nil {
		return c.state.Clone(), fmt.Errorf("take over: %w", err)
	}

	previous := c.state.RemoteToken
	c.state.RemoteToken = token
	c.state.Conflict = ConflictOwnedLocally

	err = c.cfg.Store.Update(ctx, c.ref(), docstore.Fields{
		FieldOwnershipToken: token,
		FieldInstanceID:     instanceID,
	})
	if err != nil {
		return c.state.Clone(), c.writeFailedLocked(ctx, "take over", err)
	}
	c.confirmLocked(ctx)

	c.logger.Info("session taken over", "session_id", c.state.SessionID)
	c.recordLocked(ctx, activity.TypeTakenOver, events.TypeTakeover, "Took over session", map[string]any{
		"instance_id": instanceID,
		"had_token":   previous != "",
	})
	c.notifyLocked()
	return c.state.Clone(), nil
}

// Abandon leaves a conflicting session to the device that owns it. Nothing is
// written remotely and the local token is kept, so a later Load reports the
// conflict again instead of adopting the other device's token.
func (c *Controller) Abandon(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.SessionID == "" {
		return ErrNoActiveSession
	}
	if c.state.Conflict != ConflictDetected {
		return ErrNoConflict
	}

	c.logger.Info("session abandoned to another device", "session_id", c.state.SessionID)
	if c.cfg.Activity != nil {
		c.cfg.Activity.Record(ctx, c.cfg.UserID, c.state.ProjectID, c.state.SessionID, activity.TypeAbandoned, "Abandoned session to another device", nil)
	}
	c.notes.Cancel()
	c.goIdleLocked()
	c.notifyLocked()
	return nil
}

// SetNotes updates the notes locally and writes them after the debounce
// interval. A newer edit supersedes a pending one.
func (c *Controller) SetNotes(ctx context.Context, notes string) (TimerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwnedLocked(); err != nil {
		return c.state.Clone(), err
	}
	if utf8.RuneCountInString(notes) > c.cfg.NotesMaxLength {
		return c.state.Clone(), ErrNotesTooLong
	}

	c.state.Notes = notes
	ref := c.ref()
	store := c.cfg.Store
	c.notes.Schedule(func(ctx context.Context) error {
		if err := store.Update(ctx, ref, docstore.Fields{FieldNotes: notes}); err != nil {
			return fmt.Errorf("write notes for %s: %w", ref.ID, err)
		}
		return nil
	})
	c.notifyLocked()
	return c.state.Clone(), nil
}

// FlushNotes writes pending notes immediately.
func (c *Controller) FlushNotes(ctx context.Context) error {
	return c.notes.Flush(ctx)
}

// SetProject reassigns the session. The name is looked up when not given.
func (c *Controller) SetProject(ctx context.Context, projectID, projectName string) (TimerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwnedLocked(); err != nil {
		return c.state.Clone(), err
	}
	if projectID == "" {
		return c.state.Clone(), ErrNoProject
	}
	if projectName == "" {
		name, err := c.projectName(ctx, projectID)
		if err != nil {
			return c.state.Clone(), err
		}
		projectName = name
	}

	c.state.ProjectID = projectID
	c.state.ProjectName = projectName
	err := c.cfg.Store.Update(ctx, c.ref(), docstore.Fields{
		FieldProjectID:   projectID,
		FieldProjectName: projectName,
	})
	if err != nil {
		return c.state.Clone(), c.writeFailedLocked(ctx, "set project", err)
	}
	c.confirmLocked(ctx)
	c.notifyLocked()
	return c.state.Clone(), nil
}

// SetBillable toggles whether the session earns at the project rate.
func (c *Controller) SetBillable(ctx context.Context, billable bool) (TimerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwnedLocked(); err != nil {
		return c.state.Clone(), err
	}

	c.state.Billable = billable
	if err := c.cfg.Store.Update(ctx, c.ref(), docstore.Fields{FieldBillable: billable}); err != nil {
		return c.state.Clone(), c.writeFailedLocked(ctx, "set billable", err)
	}
	c.confirmLocked(ctx)
	c.notifyLocked()
	return c.state.Clone(), nil
}

// Close flushes pending notes and tears down the subscription.
func (c *Controller) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := c.notes.Flush(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return err
	}
	c.closed = true
	c.sync.Detach()
	c.cancel()
	return err
}

func (c *Controller) onSnapshot(snap docstore.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || snap.Ref.ID != c.state.SessionID {
		return
	}
	// Snapshots read before one of our own confirmed writes are stale.
	if snap.Exists && snap.Version <= c.state.Version {
		return
	}
	c.applyLocked(snap)
}

// applyLocked folds an authoritative snapshot into local state and re-runs
// conflict detection.
func (c *Controller) applyLocked(snap docstore.Snapshot) {
	next, err := Reduce(c.state, snap)
	if errors.Is(err, ErrSessionVanished) {
		c.logger.Warn("session document vanished", "session_id", snap.Ref.ID)
		return
	}
	if err != nil {
		c.logger.Error("bad session snapshot", "session_id", snap.Ref.ID, "error", err)
		return
	}

	if !next.Running {
		c.logger.Info("session ended remotely", "session_id", next.SessionID, "status", next.Status)
		if local, err := c.cfg.Local.Token(); err == nil && local != "" && local == next.RemoteToken {
			if err := c.cfg.Local.ClearToken(); err != nil {
				c.logger.Warn("clear token failed", "error", err)
			}
		}
		c.notes.Cancel()
		c.goIdleLocked()
		c.notifyLocked()
		return
	}

	conflict, err := c.detector.Observe(next.Running, next.RemoteToken)
	if err != nil {
		c.logger.Error("conflict check failed", "session_id", next.SessionID, "error", err)
		conflict = c.state.Conflict
	}
	if conflict == ConflictDetected && c.state.Conflict != ConflictDetected {
		c.logger.Warn("ownership conflict detected", "session_id", next.SessionID)
		if c.cfg.Activity != nil {
			c.cfg.Activity.Record(c.baseCtx, c.cfg.UserID, next.ProjectID, next.SessionID, activity.TypeConflictDetected, "Session owned by another device", nil)
		}
	}
	next.Conflict = conflict
	if c.notes.Pending() {
		next.Notes = c.state.Notes
	}
	c.state = next
	c.notifyLocked()
}

// writeFailedLocked logs a failed remote write and re-derives local state
// from the store. Local state is not rolled back otherwise.
func (c *Controller) writeFailedLocked(ctx context.Context, op string, err error) error {
	c.logger.Error("session write failed", "op", op, "session_id", c.state.SessionID, "error", err)
	c.refreshLocked(ctx)
	return fmt.Errorf("%s session: %w", op, err)
}

// confirmLocked reads back the document after a successful write so local
// state carries the version the write produced.
func (c *Controller) confirmLocked(ctx context.Context) {
	snap, err := c.cfg.Store.Get(ctx, c.ref())
	if err != nil {
		c.logger.Warn("read back after write", "session_id", c.state.SessionID, "error", err)
		return
	}
	c.applyLocked(snap)
}

func (c *Controller) refreshLocked(ctx context.Context) {
	if c.state.SessionID == "" {
		return
	}
	snap, err := c.cfg.Store.Get(ctx, c.ref())
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		c.goIdleLocked()
		c.notifyLocked()
	case err != nil:
		c.logger.Warn("refresh after failed write", "session_id", c.state.SessionID, "error", err)
	default:
		c.applyLocked(snap)
	}
}

func (c *Controller) requireOwnedLocked() error {
	if !c.state.Running {
		return ErrNoActiveSession
	}
	if c.state.Conflict == ConflictDetected {
		return ErrOwnershipConflict
	}
	return nil
}

// endLocked clears local session state after this device ended the session.
func (c *Controller) endLocked() {
	c.goIdleLocked()
	if err := c.cfg.Local.ClearToken(); err != nil {
		c.logger.Warn("clear token failed", "error", err)
	}
	c.notifyLocked()
}

func (c *Controller) goIdleLocked() {
	c.sync.Detach()
	c.state = TimerState{Conflict: ConflictNoSession}
}

func (c *Controller) notifyLocked() {
	st := c.state.Clone()
	for {
		select {
		case c.updates <- st:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}

func (c *Controller) recordLocked(ctx context.Context, typ activity.ActivityType, evType events.Type, summary string, details map[string]any) {
	st := c.state
	if c.cfg.Activity != nil {
		c.cfg.Activity.Record(ctx, c.cfg.UserID, st.ProjectID, st.SessionID, typ, summary, details)
	}
	if c.cfg.Publisher != nil {
		instanceID, _ := c.cfg.Local.InstanceID()
		ev := events.Event{
			Type:           evType,
			UserID:         c.cfg.UserID,
			SessionID:      st.SessionID,
			ProjectID:      st.ProjectID,
			InstanceID:     instanceID,
			ElapsedSeconds: st.Display(c.now()),
			OccurredAt:     c.now().UTC(),
		}
		if v, ok := details["paused"].(int64); ok {
			ev.PausedSeconds = v
		}
		if v, ok := details["elapsed"].(int64); ok {
			ev.ElapsedSeconds = v
		}
		if err := c.cfg.Publisher.Publish(ctx, ev); err != nil {
			c.logger.Warn("event publish failed", "type", ev.Type, "session_id", ev.SessionID, "error", err)
		}
	}
}

func (c *Controller) openSessions(ctx context.Context, f docstore.Finder) ([]docstore.Snapshot, error) {
	snaps, err := f.Find(ctx, Collection,
		docstore.Where(FieldUserID, c.cfg.UserID),
		docstore.Where(FieldEndTime, nil),
	)
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

func (c *Controller) projectName(ctx context.Context, projectID string) (string, error) {
	if c.cfg.Projects == nil {
		return "", nil
	}
	proj, err := c.cfg.Projects.Get(ctx, c.cfg.UserID, projectID)
	if err != nil {
		return "", fmt.Errorf("project %s: %w", projectID, err)
	}
	return proj.Name, nil
}

func (c *Controller) ref() docstore.Ref {
	return docstore.Doc(Collection, c.state.SessionID)
}

func pauseEvent(typ timer.EventType) map[string]any {
	return map[string]any{
		"type":      typ,
		"timestamp": docstore.ServerTimestamp,
	}
}
