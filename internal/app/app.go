// Package app wires the stores and services both front ends run on.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ganot/timekeep/internal/config"
	"github.com/ganot/timekeep/internal/domain/activity"
	"github.com/ganot/timekeep/internal/domain/profile"
	"github.com/ganot/timekeep/internal/domain/project"
	"github.com/ganot/timekeep/internal/domain/session"
	"github.com/ganot/timekeep/internal/events"
	"github.com/ganot/timekeep/internal/localstate"
	"github.com/ganot/timekeep/internal/sqlite"
)

// App holds one device's collaborators.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *sqlite.DB
	Store    *sqlite.DocumentStore
	Projects *project.Service
	Profiles *profile.Service
	Activity *activity.Service
	APIKeys  *sqlite.APIKeyRepository
	Device   *localstate.File
	Events   *events.Queue
}

// Open opens the database, runs migrations and builds the services.
func Open(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	device, err := localstate.Open(cfg.Device.StatePath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open device state: %w", err)
	}

	store := sqlite.NewDocumentStore(db, sqlite.DocumentStoreOptions{
		PollInterval: cfg.Timer.WatchInterval,
		Logger:       logger,
	})
	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Store:    store,
		Projects: project.NewService(store, logger),
		Profiles: profile.NewService(store, logger),
		Activity: activity.NewService(sqlite.NewActivityRepository(db), logger),
		APIKeys:  sqlite.NewAPIKeyRepository(db),
		Device:   device,
	}
	if kafka := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic); kafka != nil {
		a.Events = events.NewQueue(kafka, events.DefaultQueueSize, logger)
		logger.Info("publishing session events", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.KafkaTopic)
	}
	return a, nil
}

// NewController builds this device's session controller for userID. The
// caller loads and closes it.
func (a *App) NewController(userID string) (*session.Controller, error) {
	cfg := session.Config{
		UserID:         userID,
		Store:          a.Store,
		Local:          a.Device.For(userID),
		Projects:       a.Projects,
		Activity:       a.Activity,
		NotesDebounce:  a.Config.Timer.NotesDebounce,
		NotesMaxLength: a.Config.Timer.NotesMaxLength,
		Logger:         a.Logger,
	}
	// A nil *Queue in the interface would not compare equal to nil.
	if a.Events != nil {
		cfg.Publisher = a.Events
	}
	return session.NewController(cfg)
}

// Close delivers queued events, then releases the publisher and the database.
func (a *App) Close() error {
	return errors.Join(a.Events.Close(), a.DB.Close())
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
