// Package sqlitetest builds throwaway SQLite-backed stores for tests in other
// packages.
package sqlitetest

import (
	"testing"
	"time"

	"github.com/ganot/timekeep/internal/sqlite"
	"github.com/stretchr/testify/require"
)

// PollInterval is the watch interval of stores built here.
const PollInterval = 5 * time.Millisecond

// NewDB opens a migrated in-memory database closed at test cleanup.
func NewDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err, "failed to create test database")
	require.NoError(t, db.RunMigrations(), "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// NewStore returns a document store on a fresh in-memory database. A nil now
// uses the wall clock.
func NewStore(t *testing.T, now func() time.Time) *sqlite.DocumentStore {
	t.Helper()
	return sqlite.NewDocumentStore(NewDB(t), sqlite.DocumentStoreOptions{
		PollInterval: PollInterval,
		Now:          now,
	})
}
