package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeSessionStarted   ActivityType = "session_started"
	TypeSessionPaused    ActivityType = "session_paused"
	TypeSessionResumed   ActivityType = "session_resumed"
	TypeSessionStopped   ActivityType = "session_stopped"
	TypeSessionReset     ActivityType = "session_reset"
	TypeSignedOut        ActivityType = "signed_out"
	TypeConflictDetected ActivityType = "conflict_detected"
	TypeTakenOver        ActivityType = "taken_over"
	TypeAbandoned        ActivityType = "abandoned"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	UserID       string       `json:"user_id"`
	ProjectID    string       `json:"project_id"`
	SessionID    *string      `json:"session_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
