package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ganot/timekeep/internal/domain/activity"
)

// ActivityRepository stores the session activity log.
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log appends entry for userID and fills in its ID, user and timestamp.
func (r *ActivityRepository) Log(ctx context.Context, userID string, entry *activity.ActivityEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var details sql.NullString
	if entry.Details != "" {
		details = sql.NullString{String: entry.Details, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO activity_log (user_id, project_id, session_id, activity_type, summary, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, userID, entry.ProjectID, entry.SessionID, entry.ActivityType, entry.Summary, details, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	entry.UserID = userID
	return nil
}

// activityFilter accumulates WHERE clauses and their arguments.
type activityFilter struct {
	clauses []string
	args    []any
}

func (f *activityFilter) add(clause string, arg any) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, arg)
}

// List returns the user's entries matching opts, newest first.
func (r *ActivityRepository) List(ctx context.Context, userID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	var f activityFilter
	f.add("user_id = ?", userID)
	if opts.ProjectID != "" {
		f.add("project_id = ?", opts.ProjectID)
	}
	if opts.SessionID != nil {
		f.add("session_id = ?", *opts.SessionID)
	}
	if opts.ActivityType != nil {
		f.add("activity_type = ?", *opts.ActivityType)
	}

	query := `SELECT id, user_id, project_id, session_id, activity_type, summary, details, created_at
		FROM activity_log WHERE ` + strings.Join(f.clauses, " AND ") + `
		ORDER BY created_at DESC, id DESC`
	args := f.args
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, max(opts.Offset, 0))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []activity.ActivityEntry
	for rows.Next() {
		entry, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return entries, nil
}

func scanActivity(rows *sql.Rows) (activity.ActivityEntry, error) {
	var (
		entry     activity.ActivityEntry
		sessionID sql.NullString
		details   sql.NullString
	)
	err := rows.Scan(&entry.ID, &entry.UserID, &entry.ProjectID, &sessionID,
		&entry.ActivityType, &entry.Summary, &details, &entry.CreatedAt)
	if err != nil {
		return entry, fmt.Errorf("failed to scan activity entry: %w", err)
	}
	if sessionID.Valid {
		entry.SessionID = &sessionID.String
	}
	entry.Details = details.String
	return entry, nil
}
