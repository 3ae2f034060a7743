package session

import (
	"time"

	"github.com/ganot/timekeep/internal/domain/timer"
)

// Collection holds session documents keyed by session id.
const Collection = "sessions"

// Status is the lifecycle status stored on a session document.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusStopped   Status = "stopped"
	StatusReset     Status = "reset"
	StatusSignedOut Status = "signedOut"
)

// Active reports whether the session has not been finalized or abandoned.
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

// Document field names.
const (
	FieldID              = "id"
	FieldUserID          = "userId"
	FieldProjectID       = "projectId"
	FieldProjectName     = "projectName"
	FieldElapsedTime     = "elapsedTime"
	FieldPaused          = "paused"
	FieldStatus          = "status"
	FieldPauseEvents     = "pauseEvents"
	FieldPausedTime      = "pausedTime"
	FieldOwnershipToken  = "ownershipToken"
	FieldInstanceID      = "instanceId"
	FieldBillable        = "billable"
	FieldNotes           = "notes"
	FieldStartTime       = "startTime"
	FieldClientStartTime = "clientStartTime"
	FieldEndTime         = "endTime"
	FieldCreatedAt       = "createdAt"
)

// Session is the stored session document. ElapsedTime is authoritative while
// paused and after the session ends; while running the live value is
// ElapsedTime plus the time since the start reference.
type Session struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	ProjectID       string       `json:"projectId"`
	ProjectName     string       `json:"projectName"`
	ElapsedTime     int64        `json:"elapsedTime"`
	Paused          bool         `json:"paused"`
	Status          Status       `json:"status"`
	PauseEvents     timer.Ledger `json:"pauseEvents"`
	PausedTime      int64        `json:"pausedTime"`
	OwnershipToken  string       `json:"ownershipToken"`
	InstanceID      string       `json:"instanceId"`
	Billable        bool         `json:"billable"`
	Notes           string       `json:"notes"`
	StartTime       *time.Time   `json:"startTime"`
	ClientStartTime *int64       `json:"clientStartTime"`
	EndTime         *time.Time   `json:"endTime"`
	CreatedAt       *time.Time   `json:"createdAt"`
}

// StartRef returns the start reference in epoch milliseconds, preferring the
// client-recorded value over the server timestamp.
func (s *Session) StartRef() *int64 {
	if s.ClientStartTime != nil {
		ms := *s.ClientStartTime
		return &ms
	}
	if s.StartTime != nil {
		ms := s.StartTime.UnixMilli()
		return &ms
	}
	return nil
}

// ElapsedAt returns the session's elapsed seconds as of now.
func (s *Session) ElapsedAt(now time.Time) int64 {
	if s.Paused || !s.Status.Active() {
		return s.ElapsedTime
	}
	return timer.Elapsed(s.ElapsedTime, s.StartRef(), now)
}

// Summary describes a finalized session.
type Summary struct {
	SessionID   string    `json:"sessionId"`
	ProjectID   string    `json:"projectId"`
	ProjectName string    `json:"projectName"`
	Duration    int64     `json:"duration"`
	Paused      int64     `json:"pausedTime"`
	Billable    bool      `json:"billable"`
	Earnings    float64   `json:"earnings"`
	Minutes     int64     `json:"trackedMinutes"`
	EndTime     time.Time `json:"endTime"`
	// AlreadyFinalized is set when the session had been stopped before and
	// no aggregates were touched.
	AlreadyFinalized bool `json:"alreadyFinalized,omitempty"`
}
