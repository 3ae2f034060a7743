package mcp

import (
	"errors"
	"fmt"

	"github.com/ganot/timekeep/internal/domain/project"
	"github.com/ganot/timekeep/internal/domain/session"
)

// ErrConfirmationRequired is returned by destructive tools called without confirm=true.
var ErrConfirmationRequired = errors.New("confirmation required")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrConfirmationRequired):
		return &APIError{Code: "CONFIRMATION_REQUIRED", Message: "this action needs confirmation", RecoveryHint: "Ask the user, then retry with confirm=true"}
	case errors.Is(err, session.ErrNoProject):
		return &APIError{Code: "NO_PROJECT", Message: "no project selected", RecoveryHint: "Pass project_id; see list_projects"}
	case errors.Is(err, session.ErrSessionActive):
		return &APIError{Code: "SESSION_ACTIVE", Message: "a session is already open", RecoveryHint: "Call get_timer; stop or take over the open session"}
	case errors.Is(err, session.ErrNoActiveSession):
		return &APIError{Code: "NO_ACTIVE_SESSION", Message: "no session is running", RecoveryHint: "Call start_session first"}
	case errors.Is(err, session.ErrAlreadyPaused):
		return &APIError{Code: "ALREADY_PAUSED", Message: "session is already paused", RecoveryHint: "Call resume_session"}
	case errors.Is(err, session.ErrNotPaused):
		return &APIError{Code: "NOT_PAUSED", Message: "session is not paused", RecoveryHint: "Call pause_session"}
	case errors.Is(err, session.ErrNothingToReset):
		return &APIError{Code: "NOTHING_TO_RESET", Message: "there is no session to reset"}
	case errors.Is(err, session.ErrNotesTooLong):
		return &APIError{Code: "NOTES_TOO_LONG", Message: "notes exceed the length limit", RecoveryHint: "Shorten the notes"}
	case errors.Is(err, session.ErrOwnershipConflict):
		return &APIError{Code: "OWNERSHIP_CONFLICT", Message: "session is owned by another device", RecoveryHint: "Call take_over_session or abandon_session"}
	case errors.Is(err, session.ErrNoConflict):
		return &APIError{Code: "NO_CONFLICT", Message: "this device already owns the session"}
	case errors.Is(err, session.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found", RecoveryHint: "Call get_timer to reload"}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Check the id; see list_projects"}
	case errors.Is(err, session.ErrInvalidInput), errors.Is(err, project.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}

// toolError converts err into what a tool handler returns.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
