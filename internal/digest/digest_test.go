package digest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xaubot/internal/notifier"
	"xaubot/internal/signal"
	"xaubot/internal/signallog"
	logx "xaubot/pkg/logx"
)

type recorder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (r *recorder) Deliver(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.err
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()
	for _, ok := range []string{"0 21 * * *", "@daily", "*/5 * * * 1-5"} {
		_, err := ParseSchedule(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "0 0 21 * * *", "nonsense"} {
		_, err := ParseSchedule(bad)
		assert.Error(t, err, bad)
	}
}

func TestTextCountsToday(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	l := signallog.New()
	l.Append(signal.Signal{ID: "1", Symbol: signal.Symbol, Action: signal.Buy, Price: 1, Timestamp: now.Add(-24 * time.Hour)})
	l.Append(signal.Signal{ID: "2", Symbol: signal.Symbol, Action: signal.Buy, Price: 2650.5, Timestamp: now.Add(-2 * time.Hour)})
	l.Append(signal.Signal{ID: "3", Symbol: signal.Symbol, Action: signal.Sell, Price: 2655, Timestamp: now.Add(-time.Hour)})

	s := New(l, &recorder{}, logx.Nop())
	s.now = func() time.Time { return now }

	text := s.Text()
	assert.Contains(t, text, Title)
	assert.Contains(t, text, "<b>Signals:</b> 2")
	assert.Contains(t, text, "<b>BUY:</b> 1")
	assert.Contains(t, text, "<b>SELL:</b> 1")
	assert.Contains(t, text, "<b>CLOSE:</b> 0")
	assert.Contains(t, text, "$2655.00")
}

func TestRunDelivers(t *testing.T) {
	t.Parallel()
	out := &recorder{}
	s := New(signallog.New(), out, logx.Nop())
	require.NoError(t, s.Run(context.Background()))
	require.Len(t, out.texts, 1)
	assert.NotContains(t, out.texts[0], "Last:")

	out.err = errors.New("down")
	assert.Error(t, s.Run(context.Background()))
}

func TestScheduledRunLogsOutcome(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "digest.log")
	svc, log := logx.New(logx.Config{Level: "info", File: logx.FileConfig{Enabled: true, Path: path}}, nil)
	out := &recorder{err: notifier.ErrConfigurationMissing}
	s := New(signallog.New(), out, log.With(logx.String("comp", "digest")))

	s.runScheduled(context.Background())
	out.mu.Lock()
	out.err = nil
	out.mu.Unlock()
	s.runScheduled(context.Background())
	require.NoError(t, svc.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"comp":"digest"`)
	assert.Contains(t, lines[0], `"message":"digest not delivered"`)
	assert.Contains(t, lines[0], `"code":"ConfigurationMissing"`)
	assert.Contains(t, lines[1], `"message":"digest delivered"`)
}

func TestApplyRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	s := New(signallog.New(), &recorder{}, logx.Nop())
	assert.Error(t, s.Apply(true, "not a cron", time.UTC))
	// Disabled digests do not need a valid schedule.
	assert.NoError(t, s.Apply(false, "", nil))
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	s := New(signallog.New(), &recorder{}, logx.Nop())
	require.NoError(t, s.Apply(true, "@every 1h", time.UTC))
	s.Start(context.Background())
	s.mu.Lock()
	running := s.c != nil
	s.mu.Unlock()
	assert.True(t, running)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	s.mu.Lock()
	assert.Nil(t, s.c)
	s.mu.Unlock()
}
