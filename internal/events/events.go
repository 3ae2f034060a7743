// Package events publishes session lifecycle events to external consumers.
package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Type names a lifecycle transition.
type Type string

const (
	TypeStarted  Type = "session.started"
	TypePaused   Type = "session.paused"
	TypeResumed  Type = "session.resumed"
	TypeStopped  Type = "session.stopped"
	TypeReset    Type = "session.reset"
	TypeSignOut  Type = "session.signed_out"
	TypeTakeover Type = "session.taken_over"
)

// Event is one lifecycle transition as published.
type Event struct {
	Type           Type      `json:"type"`
	UserID         string    `json:"user_id"`
	SessionID      string    `json:"session_id"`
	ProjectID      string    `json:"project_id,omitempty"`
	InstanceID     string    `json:"instance_id,omitempty"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	PausedSeconds  int64     `json:"paused_seconds,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// publishTimeout bounds a single delivery.
const publishTimeout = 5 * time.Second

// drainTimeout bounds how long Close waits for queued events.
const drainTimeout = 10 * time.Second

// DefaultQueueSize is used when NewQueue is given a non-positive size.
const DefaultQueueSize = 64

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Queue hands events to a Publisher from one goroutine, so they reach it in
// the order they were queued. Publish never blocks on the broker. Close
// drains what is queued before closing the underlying publisher.
type Queue struct {
	pub    Publisher
	logger *slog.Logger
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts the sender goroutine. A nil publisher gives a nil Queue,
// on which Publish and Close are no-ops.
func NewQueue(pub Publisher, size int, logger *slog.Logger) *Queue {
	if pub == nil {
		return nil
	}
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	q := &Queue{
		pub:    pub,
		logger: logger,
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Publish queues event for delivery. The context is not used for delivery,
// which outlives the caller.
func (q *Queue) Publish(_ context.Context, event Event) error {
	if q == nil {
		return nil
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for event := range q.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := q.pub.Publish(ctx, event); err != nil {
			q.logger.Warn("event publish failed", "type", event.Type, "session_id", event.SessionID, "error", err)
		}
		cancel()
	}
}

// Close stops accepting events, waits for the queued ones to be delivered
// and closes the publisher if it is an io.Closer.
func (q *Queue) Close() error {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.events)
	q.mu.Unlock()

	var err error
	select {
	case <-q.done:
	case <-time.After(drainTimeout):
		err = fmt.Errorf("drain events: %d undelivered", len(q.events))
	}
	if c, ok := q.pub.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
