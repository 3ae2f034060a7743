package session

import "errors"

var (
	// ErrSessionNotFound indicates the session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionVanished indicates a watched session document disappeared.
	ErrSessionVanished = errors.New("session document vanished")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")

	// ErrNoProject indicates start was requested without a project.
	ErrNoProject = errors.New("no project selected")
	// ErrSessionActive indicates the user already has an active session.
	ErrSessionActive = errors.New("a session is already active")
	// ErrNoActiveSession indicates the action needs an active session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrAlreadyPaused indicates pause on a paused session.
	ErrAlreadyPaused = errors.New("session already paused")
	// ErrNotPaused indicates resume on a running session.
	ErrNotPaused = errors.New("session is not paused")
	// ErrNothingToReset indicates reset with no session and no elapsed time.
	ErrNothingToReset = errors.New("nothing to reset")
	// ErrNotesTooLong indicates notes over the configured limit.
	ErrNotesTooLong = errors.New("notes too long")
	// ErrOwnershipConflict indicates another device holds the session.
	ErrOwnershipConflict = errors.New("session is owned by another device")
	// ErrNoConflict indicates take over was requested while owning the session.
	ErrNoConflict = errors.New("no ownership conflict")
)
