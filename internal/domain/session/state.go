package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/ganot/timekeep/internal/docstore"
	"github.com/ganot/timekeep/internal/domain/timer"
)

// Phase is the logical timer state derived from TimerState.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhasePaused  Phase = "paused"
	PhaseStopped Phase = "stopped"
)

// TimerState is the device-local view of the current session.
type TimerState struct {
	SessionID   string
	Running     bool
	Paused      bool
	Status      Status
	BaseElapsed int64
	// StartRef is nil while paused or idle.
	StartRef    *int64
	PauseEvents timer.Ledger
	RemoteToken string
	ProjectID   string
	ProjectName string
	Notes       string
	Billable    bool
	Version     int64
	Conflict    ConflictState
}

// Display returns the seconds to show at now.
func (s TimerState) Display(now time.Time) int64 {
	return timer.Elapsed(s.BaseElapsed, s.StartRef, now)
}

// Phase derives the logical state.
func (s TimerState) Phase() Phase {
	switch {
	case s.SessionID == "":
		return PhaseIdle
	case !s.Running:
		return PhaseStopped
	case s.Paused:
		return PhasePaused
	default:
		return PhaseRunning
	}
}

// Clone returns a copy that shares no mutable memory with s.
func (s TimerState) Clone() TimerState {
	out := s
	out.PauseEvents = slices.Clone(s.PauseEvents)
	if s.StartRef != nil {
		ref := *s.StartRef
		out.StartRef = &ref
	}
	return out
}

// View is a point-in-time rendering of TimerState for display.
type View struct {
	Phase          Phase         `json:"phase"`
	SessionID      string        `json:"session_id,omitempty"`
	ProjectID      string        `json:"project_id,omitempty"`
	ProjectName    string        `json:"project_name,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	Billable       bool          `json:"billable"`
	ElapsedSeconds int64         `json:"elapsed_seconds"`
	Elapsed        string        `json:"elapsed"`
	PausedSeconds  int64         `json:"paused_seconds"`
	Conflict       ConflictState `json:"conflict"`
}

// View renders s at now.
func (s TimerState) View(now time.Time) View {
	elapsed := s.Display(now)
	return View{
		Phase:          s.Phase(),
		SessionID:      s.SessionID,
		ProjectID:      s.ProjectID,
		ProjectName:    s.ProjectName,
		Notes:          s.Notes,
		Billable:       s.Billable,
		ElapsedSeconds: elapsed,
		Elapsed:        timer.Format(elapsed),
		PausedSeconds:  timer.Seconds(s.PauseEvents.TotalUntil(now)),
		Conflict:       s.Conflict,
	}
}

// Reduce folds a session snapshot into prev. A missing document returns prev
// unchanged with ErrSessionVanished. The conflict state is carried over; it
// is owned by the detector.
func Reduce(prev TimerState, snap docstore.Snapshot) (TimerState, error) {
	if !snap.Exists {
		return prev, ErrSessionVanished
	}
	var sess Session
	if err := snap.DataTo(&sess); err != nil {
		return prev, fmt.Errorf("reduce session snapshot: %w", err)
	}

	next := TimerState{
		SessionID:   snap.Ref.ID,
		Running:     sess.Status.Active(),
		Paused:      sess.Paused,
		Status:      sess.Status,
		BaseElapsed: sess.ElapsedTime,
		PauseEvents: sess.PauseEvents,
		RemoteToken: sess.OwnershipToken,
		ProjectID:   sess.ProjectID,
		ProjectName: sess.ProjectName,
		Notes:       sess.Notes,
		Billable:    sess.Billable,
		Version:     snap.Version,
		Conflict:    prev.Conflict,
	}
	if next.Running && !sess.Paused {
		next.StartRef = sess.StartRef()
	}
	return next, nil
}
