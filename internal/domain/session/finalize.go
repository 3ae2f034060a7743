package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganot/timekeep/internal/docstore"
	"github.com/ganot/timekeep/internal/domain/profile"
	"github.com/ganot/timekeep/internal/domain/project"
	"github.com/ganot/timekeep/internal/domain/timer"
)

// Finalize closes a session and applies its aggregates in one transaction:
// the session is marked stopped with its final elapsed and paused totals, the
// project's last-tracked time moves forward, and the user's profile counters
// grow by the tracked minutes. Finalizing an already stopped session returns
// its stored summary and changes nothing.
func Finalize(ctx context.Context, store docstore.Store, userID, sessionID string, now time.Time, logger *slog.Logger) (*Summary, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	// Weeks roll over on the caller's Monday; stored times are UTC.
	local := now
	now = now.UTC()
	ref := docstore.Doc(Collection, sessionID)

	var summary *Summary
	err := store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		summary = nil

		snap, err := tx.Get(ctx, ref)
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var sess Session
		if err := snap.DataTo(&sess); err != nil {
			return err
		}
		if sess.UserID != userID {
			return ErrSessionNotFound
		}

		switch {
		case sess.Status == StatusStopped:
			summary = storedSummary(ctx, tx, userID, &sess)
			return nil
		case !sess.Status.Active():
			return ErrNoActiveSession
		}

		elapsed := sess.ElapsedAt(now)
		paused := timer.Seconds(sess.PauseEvents.TotalUntil(now))

		if err := tx.Update(ctx, ref, docstore.Fields{
			FieldStatus:      StatusStopped,
			FieldElapsedTime: elapsed,
			FieldEndTime:     now,
			FieldPauseEvents: sess.PauseEvents,
			FieldPausedTime:  paused,
		}); err != nil {
			return fmt.Errorf("mark session stopped: %w", err)
		}

		proj, err := project.TouchLastTracked(ctx, tx, userID, sess.ProjectID, now)
		switch {
		case errors.Is(err, project.ErrProjectNotFound):
			logger.Warn("stopped session references missing project", "session_id", sessionID, "project_id", sess.ProjectID)
		case err != nil:
			return err
		}

		minutes := timer.Minutes(elapsed)
		if _, err := profile.AddTrackedTx(ctx, tx, userID, minutes, local); err != nil {
			return err
		}

		summary = &Summary{
			SessionID:   sessionID,
			ProjectID:   sess.ProjectID,
			ProjectName: sess.ProjectName,
			Duration:    elapsed,
			Paused:      paused,
			Billable:    sess.Billable,
			Minutes:     minutes,
			EndTime:     now,
		}
		if sess.Billable {
			summary.Earnings = proj.Earnings(elapsed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func storedSummary(ctx context.Context, r docstore.Reader, userID string, sess *Session) *Summary {
	s := &Summary{
		SessionID:        sess.ID,
		ProjectID:        sess.ProjectID,
		ProjectName:      sess.ProjectName,
		Duration:         sess.ElapsedTime,
		Paused:           sess.PausedTime,
		Billable:         sess.Billable,
		Minutes:          timer.Minutes(sess.ElapsedTime),
		AlreadyFinalized: true,
	}
	if sess.EndTime != nil {
		s.EndTime = *sess.EndTime
	}
	if sess.Billable {
		if proj, err := project.Lookup(ctx, r, userID, sess.ProjectID); err == nil {
			s.Earnings = proj.Earnings(sess.ElapsedTime)
		}
	}
	return s
}
