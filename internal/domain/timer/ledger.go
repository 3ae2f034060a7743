package timer

import (
	"sort"
	"time"
)

// EventType distinguishes pause and resume entries.
type EventType string

const (
	EventPause  EventType = "pause"
	EventResume EventType = "resume"
)

// Event is one entry of a session's pause/resume log.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger is a pause/resume log. Entries may arrive out of order.
type Ledger []Event

// Total sums the closed pause intervals. A resume without an open pause is
// ignored and a trailing open pause is not counted.
func (l Ledger) Total() time.Duration {
	total, _ := l.scan()
	return total
}

// TotalUntil is Total with a trailing open pause closed at end.
func (l Ledger) TotalUntil(end time.Time) time.Duration {
	total, open := l.scan()
	if open != nil && end.After(*open) {
		total += end.Sub(*open)
	}
	return total
}

// Seconds rounds d to whole seconds, never negative.
func Seconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d.Round(time.Second) / time.Second)
}

// Open reports whether the log ends inside a pause.
func (l Ledger) Open() bool {
	_, open := l.scan()
	return open != nil
}

func (l Ledger) scan() (time.Duration, *time.Time) {
	events := make([]Event, len(l))
	copy(events, l)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	var total time.Duration
	var open *time.Time
	for i := range events {
		switch events[i].Type {
		case EventPause:
			ts := events[i].Timestamp
			open = &ts
		case EventResume:
			if open == nil {
				continue
			}
			if d := events[i].Timestamp.Sub(*open); d > 0 {
				total += d
			}
			open = nil
		}
	}
	return total, open
}
