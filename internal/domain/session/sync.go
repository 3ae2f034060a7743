package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ganot/timekeep/internal/docstore"
)

// Synchronizer keeps one subscription to the current session document and
// hands every delivered snapshot, including the initial one, to a callback.
// Snapshots are delivered from a single goroutine in arrival order.
type Synchronizer struct {
	store  docstore.Store
	logger *slog.Logger

	mu        sync.Mutex
	sessionID string
	sub       *docstore.Subscription
}

// NewSynchronizer creates a new Synchronizer.
func NewSynchronizer(store docstore.Store, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Synchronizer{store: store, logger: logger}
}

// Attach subscribes to sessionID, replacing any previous subscription.
// Attaching to the current session is a no-op.
func (s *Synchronizer) Attach(ctx context.Context, sessionID string, apply func(docstore.Snapshot)) error {
	if sessionID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil && s.sessionID == sessionID {
		return nil
	}
	s.detachLocked()

	sub, err := s.store.Watch(ctx, docstore.Doc(Collection, sessionID))
	if err != nil {
		return fmt.Errorf("watch session %s: %w", sessionID, err)
	}
	s.sessionID = sessionID
	s.sub = sub

	go func() {
		for snap := range sub.Updates() {
			apply(snap)
		}
	}()

	s.logger.Debug("session subscription attached", "session_id", sessionID)
	return nil
}

// Detach tears down the subscription, if any.
func (s *Synchronizer) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
}

// SessionID returns the watched session, or "".
func (s *Synchronizer) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Synchronizer) detachLocked() {
	if s.sub == nil {
		return
	}
	s.sub.Stop()
	s.logger.Debug("session subscription detached", "session_id", s.sessionID)
	s.sub = nil
	s.sessionID = ""
}
