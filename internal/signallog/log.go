// Package signallog keeps the process-lifetime record of accepted signals.
package signallog

import (
	"sync"
	"time"

	"github.com/samber/lo"

	"xaubot/internal/signal"
)

// Log is an append-only, mutex-guarded sequence of signals.
// Readers always get copies; entries are never mutated or removed.
type Log struct {
	mu      sync.RWMutex
	entries []signal.Signal
}

func New() *Log { return &Log{} }

func (l *Log) Append(s signal.Signal) {
	l.mu.Lock()
	l.entries = append(l.entries, s)
	l.mu.Unlock()
}

// All returns every signal in append order.
func (l *Log) All() []signal.Signal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]signal.Signal, len(l.entries))
	copy(out, l.entries)
	return out
}

// Recent returns every signal, newest first.
func (l *Log) Recent() []signal.Signal {
	out := l.All()
	return lo.Reverse(out)
}

func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Since returns signals with timestamps at or after t, newest first.
func (l *Log) Since(t time.Time) []signal.Signal {
	return lo.Filter(l.Recent(), func(s signal.Signal, _ int) bool {
		return !s.Timestamp.Before(t)
	})
}

func (l *Log) CountSince(t time.Time) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.CountBy(l.entries, func(s signal.Signal) bool {
		return !s.Timestamp.Before(t)
	})
}

// CountByAction tallies signals at or after t per action.
func (l *Log) CountByAction(t time.Time) map[signal.Action]int {
	recent := l.Since(t)
	counts := lo.CountValuesBy(recent, func(s signal.Signal) signal.Action { return s.Action })
	for _, a := range signal.Actions {
		if _, ok := counts[a]; !ok {
			counts[a] = 0
		}
	}
	return counts
}

// Last returns the most recently appended signal.
func (l *Log) Last() (signal.Signal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return signal.Signal{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
