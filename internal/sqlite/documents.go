package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ganot/timekeep/internal/docstore"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DocumentStoreOptions configures a DocumentStore.
type DocumentStoreOptions struct {
	// PollInterval is how often watchers re-read their document.
	PollInterval time.Duration
	// Now resolves server timestamps. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// DocumentStore implements docstore.Store on a documents table. Every write
// bumps the document version, which watchers in any process sharing the
// database file pick up on their next poll.
type DocumentStore struct {
	db           *DB
	pollInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

var _ docstore.Store = (*DocumentStore)(nil)

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB, opts DocumentStoreOptions) *DocumentStore {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &DocumentStore{
		db:           db,
		pollInterval: opts.PollInterval,
		now:          opts.Now,
		logger:       opts.Logger,
	}
}

func (s *DocumentStore) Get(ctx context.Context, ref docstore.Ref) (docstore.Snapshot, error) {
	return getDocument(ctx, s.db, ref)
}

func (s *DocumentStore) Set(ctx context.Context, ref docstore.Ref, data docstore.Fields) error {
	return setDocument(ctx, s.db, ref, data, s.now().UTC())
}

func (s *DocumentStore) Update(ctx context.Context, ref docstore.Ref, data docstore.Fields) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Update(ctx, ref, data)
	})
}

func (s *DocumentStore) Delete(ctx context.Context, ref docstore.Ref) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, ref.Collection, ref.ID)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", ref, err)
	}
	return nil
}

// Find returns documents in collection matching every filter, oldest write first.
func (s *DocumentStore) Find(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Snapshot, error) {
	return findDocuments(ctx, s.db, collection, filters)
}

func (s *DocumentStore) Watch(ctx context.Context, ref docstore.Ref) (*docstore.Subscription, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	fetch := func(ctx context.Context) (docstore.Snapshot, error) {
		return s.Get(ctx, ref)
	}
	return docstore.Poll(ctx, s.pollInterval, fetch, s.logger.With("doc", ref.String())), nil
}

func (s *DocumentStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &documentTx{q: sqlTx, now: s.now().UTC()}
	if err := fn(ctx, tx); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type documentTx struct {
	q   querier
	now time.Time
}

func (t *documentTx) Get(ctx context.Context, ref docstore.Ref) (docstore.Snapshot, error) {
	return getDocument(ctx, t.q, ref)
}

func (t *documentTx) Set(ctx context.Context, ref docstore.Ref, data docstore.Fields) error {
	return setDocument(ctx, t.q, ref, data, t.now)
}

func (t *documentTx) Find(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Snapshot, error) {
	return findDocuments(ctx, t.q, collection, filters)
}

func (t *documentTx) Update(ctx context.Context, ref docstore.Ref, data docstore.Fields) error {
	snap, err := getDocument(ctx, t.q, ref)
	if err != nil {
		return err
	}
	base, err := snap.Data()
	if err != nil {
		return err
	}
	merged, err := docstore.Apply(base, data, t.now)
	if err != nil {
		return err
	}
	return writeDocument(ctx, t.q, ref, merged, t.now)
}

func findDocuments(ctx context.Context, q querier, collection string, filters []docstore.Filter) ([]docstore.Snapshot, error) {
	if collection == "" {
		return nil, fmt.Errorf("empty collection: %w", docstore.ErrInvalidInput)
	}

	query := `SELECT id, data, version, updated_at FROM documents WHERE collection = ?`
	args := []any{collection}
	for _, f := range filters {
		if !docstore.ValidField(f.Field) {
			return nil, fmt.Errorf("filter field %q: %w", f.Field, docstore.ErrInvalidInput)
		}
		path := fmt.Sprintf("json_extract(data, '$.%s')", f.Field)
		if f.Value == nil {
			query += " AND " + path + " IS NULL"
			continue
		}
		query += " AND " + path + " = ?"
		args = append(args, bindValue(f.Value))
	}
	query += " ORDER BY updated_at, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var snaps []docstore.Snapshot
	for rows.Next() {
		var (
			id      string
			data    string
			version int64
			updated int64
		)
		if err := rows.Scan(&id, &data, &version, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		snaps = append(snaps, docstore.Snapshot{
			Ref:        docstore.Doc(collection, id),
			Exists:     true,
			Version:    version,
			UpdateTime: time.UnixMilli(updated).UTC(),
			Raw:        json.RawMessage(data),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return snaps, nil
}

func getDocument(ctx context.Context, q querier, ref docstore.Ref) (docstore.Snapshot, error) {
	snap := docstore.Snapshot{Ref: ref}
	if err := ref.Validate(); err != nil {
		return snap, err
	}

	var (
		data    string
		updated int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT data, version, updated_at FROM documents WHERE collection = ? AND id = ?`,
		ref.Collection, ref.ID,
	).Scan(&data, &snap.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("%s: %w", ref, docstore.ErrNotFound)
	}
	if err != nil {
		return snap, fmt.Errorf("failed to get %s: %w", ref, err)
	}

	snap.Exists = true
	snap.UpdateTime = time.UnixMilli(updated).UTC()
	snap.Raw = json.RawMessage(data)
	return snap, nil
}

func setDocument(ctx context.Context, q querier, ref docstore.Ref, data docstore.Fields, now time.Time) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	resolved, err := docstore.Apply(nil, data, now)
	if err != nil {
		return err
	}
	return writeDocument(ctx, q, ref, resolved, now)
}

func writeDocument(ctx context.Context, q querier, ref docstore.Ref, data docstore.Fields, now time.Time) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ref, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			version = documents.version + 1,
			updated_at = excluded.updated_at
	`, ref.Collection, ref.ID, string(body), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", ref, err)
	}
	return nil
}

// bindValue converts a filter value to what json_extract yields for it.
func bindValue(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case time.Time:
		b, _ := json.Marshal(val)
		return strings.Trim(string(b), `"`)
	default:
		return v
	}
}
