package docstore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// FetchFunc reads the current snapshot of a watched document.
type FetchFunc func(ctx context.Context) (Snapshot, error)

// Subscription streams snapshots of one document. The channel holds at most
// one pending snapshot; a newer one replaces an undelivered older one.
type Subscription struct {
	updates chan Snapshot
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Updates returns the snapshot channel. It is closed after Stop.
func (s *Subscription) Updates() <-chan Snapshot {
	return s.updates
}

// Stop ends the subscription and waits for the poller to exit.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Poll starts a subscription that calls fetch every interval and emits the
// snapshot whenever its existence or version changes. The first snapshot is
// always emitted.
func Poll(ctx context.Context, interval time.Duration, fetch FetchFunc, logger *slog.Logger) *Subscription {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		updates: make(chan Snapshot, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.updates)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var (
			last  Snapshot
			first = true
		)
		for {
			snap, err := fetch(ctx)
			switch {
			case err != nil && !errors.Is(err, ErrNotFound):
				if ctx.Err() == nil {
					logger.Warn("watch poll failed", "error", err)
				}
			case first || snap.Exists != last.Exists || snap.Version != last.Version:
				first = false
				last = snap
				sub.offer(snap)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return sub
}

func (s *Subscription) offer(snap Snapshot) {
	for {
		select {
		case s.updates <- snap:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}
