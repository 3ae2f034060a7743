// Package profile keeps the per-user tracked-time counters updated when
// sessions are finalized.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganot/timekeep/internal/docstore"
)

// Collection holds profile documents keyed by user id.
const Collection = "profiles"

// Profile holds tracked-time aggregates in minutes.
type Profile struct {
	UserID            string     `json:"userId"`
	TotalTrackedTime  int64      `json:"totalTrackedTime"`
	WeeklyTrackedTime int64      `json:"weeklyTrackedTime"`
	WeekStart         *time.Time `json:"weekStart"`
}

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	y, m, d := t.Date()
	return time.Date(y, m, d-(weekday-1), 0, 0, 0, 0, t.Location())
}

// AddTracked adds minutes tracked at the given instant. The weekly counter
// restarts when at falls in a later week than the stored marker.
func (p *Profile) AddTracked(minutes int64, at time.Time) {
	current := WeekStart(at)
	if p.WeekStart == nil || p.WeekStart.Before(current) {
		p.WeeklyTrackedTime = 0
		p.WeekStart = &current
	}
	if minutes <= 0 {
		return
	}
	p.TotalTrackedTime += minutes
	p.WeeklyTrackedTime += minutes
}

// WeeklyAt returns the weekly counter as of now: zero once the stored week
// has ended.
func (p *Profile) WeeklyAt(now time.Time) int64 {
	if p.WeekStart == nil || p.WeekStart.Before(WeekStart(now)) {
		return 0
	}
	return p.WeeklyTrackedTime
}

// AddTrackedTx applies AddTracked to the stored profile inside tx, creating
// the profile on first use.
func AddTrackedTx(ctx context.Context, tx docstore.Tx, userID string, minutes int64, at time.Time) (*Profile, error) {
	p, err := read(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	p.AddTracked(minutes, at)
	err = tx.Set(ctx, docstore.Doc(Collection, userID), docstore.Fields{
		"userId":            p.UserID,
		"totalTrackedTime":  p.TotalTrackedTime,
		"weeklyTrackedTime": p.WeeklyTrackedTime,
		"weekStart":         p.WeekStart,
	})
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return p, nil
}

// Service reads profiles.
type Service struct {
	store  docstore.Store
	logger *slog.Logger
}

// NewService creates a new profile service.
func NewService(store docstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, logger: logger}
}

// Get returns the user's profile. A user who never finished a session has a
// zero profile.
func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("profile: %w", docstore.ErrInvalidInput)
	}
	return read(ctx, s.store, userID)
}

func read(ctx context.Context, r docstore.Reader, userID string) (*Profile, error) {
	snap, err := r.Get(ctx, docstore.Doc(Collection, userID))
	if errors.Is(err, docstore.ErrNotFound) {
		return &Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	var p Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	p.UserID = userID
	return &p, nil
}
