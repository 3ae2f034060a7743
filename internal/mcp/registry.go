package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ganot/timekeep/internal/domain/session"
)

// ControllerFactory builds the device's controller for a user.
type ControllerFactory func(userID string) (*session.Controller, error)

// Registry keeps one loaded controller per user for the life of the server.
type Registry struct {
	factory ControllerFactory
	logger  *slog.Logger

	mu          sync.Mutex
	controllers map[string]*session.Controller
	closed      bool
}

// NewRegistry creates an empty registry.
func NewRegistry(factory ControllerFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		factory:     factory,
		logger:      logger,
		controllers: make(map[string]*session.Controller),
	}
}

// Timer returns the user's controller, creating and loading it on first use.
func (r *Registry) Timer(ctx context.Context, userID string) (Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.New("registry closed")
	}
	if c, ok := r.controllers[userID]; ok {
		return c, nil
	}

	c, err := r.factory(userID)
	if err != nil {
		return nil, fmt.Errorf("creating controller: %w", err)
	}
	if _, err := c.Load(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("loading controller: %w", err)
	}
	r.controllers[userID] = c
	r.logger.Debug("controller created", "user_id", userID)
	return c, nil
}

// Close closes every controller, flushing pending notes.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var errs []error
	for userID, c := range r.controllers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing controller for %s: %w", userID, err))
		}
	}
	clear(r.controllers)
	return errors.Join(errs...)
}
