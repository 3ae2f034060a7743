package session

import (
	"fmt"
	"log/slog"
)

// ConflictState is the outcome of comparing ownership tokens.
type ConflictState string

const (
	ConflictNoSession    ConflictState = "no-session"
	ConflictOwnedLocally ConflictState = "owned-locally"
	ConflictDetected     ConflictState = "conflict"
)

// TokenStore holds the device's ownership token.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
}

// Detector compares the local ownership token with the one on the session
// document. It is advisory: it reports a conflict, it does not prevent writes.
type Detector struct {
	local  TokenStore
	logger *slog.Logger
}

// NewDetector creates a new Detector.
func NewDetector(local TokenStore, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{local: local, logger: logger}
}

// Observe classifies one observation of the remote token. A device without a
// token adopts the remote one.
func (d *Detector) Observe(active bool, remoteToken string) (ConflictState, error) {
	if !active || remoteToken == "" {
		return ConflictNoSession, nil
	}

	local, err := d.local.Token()
	if err != nil {
		return ConflictNoSession, fmt.Errorf("read local token: %w", err)
	}

	switch local {
	case "":
		if err := d.local.SetToken(remoteToken); err != nil {
			return ConflictNoSession, fmt.Errorf("adopt remote token: %w", err)
		}
		d.logger.Info("adopted remote ownership token")
		return ConflictOwnedLocally, nil
	case remoteToken:
		return ConflictOwnedLocally, nil
	default:
		return ConflictDetected, nil
	}
}
