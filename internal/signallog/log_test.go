package signallog

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xaubot/internal/signal"
)

func sig(id int, action signal.Action, at time.Time) signal.Signal {
	return signal.Signal{ID: strconv.Itoa(id), Symbol: signal.Symbol, Action: action, Price: 1, Timestamp: at}
}

func TestAppendOrderAndCopies(t *testing.T) {
	t.Parallel()
	l := New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l.Append(sig(1, signal.Buy, base))
	l.Append(sig(2, signal.Sell, base.Add(time.Hour)))
	l.Append(sig(3, signal.Close, base.Add(2*time.Hour)))

	all := l.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	recent := l.Recent()
	assert.Equal(t, []string{"3", "2", "1"}, []string{recent[0].ID, recent[1].ID, recent[2].ID})

	all[0].ID = "mutated"
	assert.Equal(t, "1", l.All()[0].ID)

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "3", last.ID)
	assert.Equal(t, 3, l.Count())
}

func TestSinceAndCounts(t *testing.T) {
	t.Parallel()
	l := New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l.Append(sig(1, signal.Buy, base.Add(-time.Hour)))
	l.Append(sig(2, signal.Buy, base))
	l.Append(sig(3, signal.Sell, base.Add(time.Minute)))

	assert.Equal(t, 2, l.CountSince(base))
	since := l.Since(base)
	require.Len(t, since, 2)
	assert.Equal(t, "3", since[0].ID)

	counts := l.CountByAction(base)
	assert.Equal(t, 1, counts[signal.Buy])
	assert.Equal(t, 1, counts[signal.Sell])
	assert.Equal(t, 0, counts[signal.Close])
}

func TestEmptyLog(t *testing.T) {
	t.Parallel()
	l := New()
	_, ok := l.Last()
	assert.False(t, ok)
	assert.Empty(t, l.Recent())
	assert.Zero(t, l.CountSince(time.Time{}))
}

func TestConcurrentAppend(t *testing.T) {
	t.Parallel()
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Append(sig(i, signal.Buy, time.Now()))
			_ = l.Recent()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, l.Count())
}

func TestStartOfDay(t *testing.T) {
	t.Parallel()
	wib := time.FixedZone("WIB", 7*3600)
	// 20:00 UTC is already the next day in WIB.
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, wib), StartOfDay(at, wib))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), StartOfDay(at, nil))
}
