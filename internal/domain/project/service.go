package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ganot/timekeep/internal/docstore"
	"github.com/google/uuid"
)

// Service handles project operations.
type Service struct {
	store  docstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new project service.
func NewService(store docstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	ID          string
	Name        string
	Description string
	HourlyRate  float64
}

// Create creates a new project.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Project, error) {
	if strings.TrimSpace(req.Name) == "" || req.HourlyRate < 0 || userID == "" {
		return nil, ErrInvalidInput
	}

	id := req.ID
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}

	proj := &Project{
		ID:          id,
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		HourlyRate:  req.HourlyRate,
		CreatedAt:   s.now().UTC(),
	}

	err := s.store.Set(ctx, docstore.Doc(Collection, id), docstore.Fields{
		"id":                 proj.ID,
		FieldUserID:          proj.UserID,
		"name":               proj.Name,
		"description":        proj.Description,
		"hourlyRate":         proj.HourlyRate,
		FieldLastTrackedTime: nil,
		"createdAt":          proj.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Debug("project created", "project_id", id, "user_id", userID)
	return proj, nil
}

// Get fetches a project by ID. Projects of other users are reported missing.
func (s *Service) Get(ctx context.Context, userID, id string) (*Project, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return Lookup(ctx, s.store, userID, id)
}

// List returns the user's projects sorted by name.
func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	snaps, err := s.store.Find(ctx, Collection, docstore.Where(FieldUserID, userID))
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	projects := make([]Project, 0, len(snaps))
	for _, snap := range snaps {
		var p Project
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("listing projects: %w", err)
		}
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		return strings.ToLower(projects[i].Name) < strings.ToLower(projects[j].Name)
	})
	return projects, nil
}

// TouchLastTracked advances the project's last-tracked time to endTime inside
// tx, leaving it alone when a later session already ended. Returns the project
// as read.
func TouchLastTracked(ctx context.Context, tx docstore.Tx, userID, id string, endTime time.Time) (*Project, error) {
	proj, err := Lookup(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if proj.LastTrackedTime != nil && !proj.LastTrackedTime.Before(endTime) {
		return proj, nil
	}
	if err := tx.Update(ctx, docstore.Doc(Collection, id), docstore.Fields{
		FieldLastTrackedTime: endTime,
	}); err != nil {
		return nil, fmt.Errorf("updating last tracked time: %w", err)
	}
	proj.LastTrackedTime = &endTime
	return proj, nil
}

// Lookup reads a project through r, which may be a store or a transaction.
func Lookup(ctx context.Context, r docstore.Reader, userID, id string) (*Project, error) {
	snap, err := r.Get(ctx, docstore.Doc(Collection, id))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	var proj Project
	if err := snap.DataTo(&proj); err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	if proj.UserID != userID {
		return nil, ErrProjectNotFound
	}
	return &proj, nil
}
