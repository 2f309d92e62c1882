package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xaubot/internal/eventbus"
	"xaubot/internal/guard"
	"xaubot/internal/notifier"
	"xaubot/internal/signal"
	"xaubot/internal/signallog"
	logx "xaubot/pkg/logx"
)

type recordingChannel struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (c *recordingChannel) Send(_ context.Context, _, _, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return c.err
}

func (c *recordingChannel) sends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.texts)
}

type harness struct {
	pipe    *Pipeline
	log     *signallog.Log
	channel *recordingChannel
	bus     eventbus.Bus
}

func newHarness(t *testing.T, secret, token string) *harness {
	t.Helper()
	ch := &recordingChannel{}
	bus := eventbus.New()
	creds := func() notifier.Credentials { return notifier.Credentials{Token: token, ChatID: "1"} }
	d := notifier.NewDispatcher(ch, creds, logx.Nop(), bus)
	l := signallog.New()
	p := New(guard.New(func() string { return secret }), l, d,
		WithBus(bus),
		WithNormalizer(&signal.Normalizer{Now: func() time.Time { return time.UnixMilli(1700000000000) }, IDs: &signal.IDSource{}}),
	)
	return &harness{pipe: p, log: l, channel: ch, bus: bus}
}

const validBody = `{"symbol":"XAUUSD","action":"buy","price":"2650.50","stop_loss":2645}`

func TestProcessAutomatedSuccess(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "", "tok")
	events, unsub := h.bus.Subscribe(8)
	defer unsub()

	res, err := h.pipe.Process(context.Background(), Automated, []byte(validBody), "")
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.Equal(t, "1700000000000", res.Signal.ID)
	assert.Equal(t, signal.Buy, res.Signal.Action)
	assert.Equal(t, signal.StrategyAutomated, res.Signal.Strategy)

	assert.Equal(t, 1, h.log.Count())
	require.Equal(t, 1, h.channel.sends())
	assert.True(t, strings.HasPrefix(h.channel.texts[0], "🟢 <b>XAUUSD Signal Alert</b>"))

	var types []string
	for len(types) < 2 {
		select {
		case e := <-events:
			types = append(types, e.Type)
		case <-time.After(time.Second):
			t.Fatalf("missing events, got %v", types)
		}
	}
	assert.Equal(t, []string{eventbus.SignalAccepted, eventbus.SignalDelivered}, types)
}

func TestProcessValidationFailureHasNoSideEffects(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "", "tok")
	for _, body := range []string{
		`{"symbol":"EURUSD","action":"BUY","price":1}`,
		`{"symbol":"XAUUSD","action":"HOLD","price":1}`,
		`{"symbol":"XAUUSD","action":"BUY"}`,
		`not json`,
	} {
		res, err := h.pipe.Process(context.Background(), Automated, []byte(body), "")
		require.Error(t, err, body)
		assert.False(t, res.Accepted)
	}
	assert.Zero(t, h.log.Count())
	assert.Zero(t, h.channel.sends())
}

func TestProcessSignatureCheckedBeforeParsing(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "s3cret", "tok")

	_, err := h.pipe.Process(context.Background(), Automated, []byte(`not json`), "deadbeef")
	assert.ErrorIs(t, err, guard.ErrSignatureMismatch)

	_, err = h.pipe.Process(context.Background(), Automated, []byte(validBody), guard.Sign("s3cret", []byte(validBody)))
	require.NoError(t, err)

	// No header means no check.
	_, err = h.pipe.Process(context.Background(), Automated, []byte(validBody), "")
	require.NoError(t, err)
	assert.Equal(t, 2, h.log.Count())
}

func TestProcessManualSkipsGuardAndSymbol(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "s3cret", "tok")
	res, err := h.pipe.Process(context.Background(), Manual, []byte(`{"symbol":"BTCUSD","action":"sell","price":10,"reason":"x"}`), "bogus")
	require.NoError(t, err)
	assert.Equal(t, "1700000000000_manual", res.Signal.ID)
	assert.Equal(t, signal.Symbol, res.Signal.Symbol)
	assert.True(t, res.Signal.IsManual())
	assert.Contains(t, h.channel.texts[0], "XAUUSD Manual Signal")
}

func TestProcessDeliveryFailureKeepsSignal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "", "")
	res, err := h.pipe.Process(context.Background(), Automated, []byte(validBody), "")
	assert.ErrorIs(t, err, notifier.ErrConfigurationMissing)
	assert.True(t, res.Accepted)
	assert.Equal(t, 1, h.log.Count())
	assert.Zero(t, h.channel.sends())

	h = newHarness(t, "", "tok")
	h.channel.err = errors.New("502 from api")
	res, err = h.pipe.Process(context.Background(), Automated, []byte(validBody), "")
	assert.ErrorIs(t, err, notifier.ErrChannel)
	assert.True(t, res.Accepted)
	last, ok := h.log.Last()
	require.True(t, ok)
	assert.Equal(t, res.Signal.ID, last.ID)
	assert.Equal(t, 1, h.channel.sends())
}

func TestProcessConcurrentUniqueIDs(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "", "tok")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.pipe.Process(context.Background(), Automated, []byte(validBody), "")
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, s := range h.log.All() {
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
	}
	assert.Len(t, seen, 20)
	assert.Equal(t, 20, h.channel.sends())
}

// slowChannel answers after delay unless its context ends first.
type slowChannel struct {
	delay time.Duration
	mu    sync.Mutex
	sent  int
}

func (c *slowChannel) Send(ctx context.Context, _, _, _ string) error {
	select {
	case <-time.After(c.delay):
		c.mu.Lock()
		c.sent++
		c.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestProcessDeliveryOutlivesCallerCancel(t *testing.T) {
	t.Parallel()
	ch := &slowChannel{delay: 200 * time.Millisecond}
	creds := func() notifier.Credentials { return notifier.Credentials{Token: "tok", ChatID: "1"} }
	d := notifier.NewDispatcher(ch, creds, logx.Nop(), nil)
	p := New(guard.New(func() string { return "" }), signallog.New(), d)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := p.Process(ctx, Automated, []byte(validBody), "")
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	stats := d.Stats()
	assert.EqualValues(t, 1, stats.Delivered)
	assert.Zero(t, stats.Failed)
	ch.mu.Lock()
	defer ch.mu.Unlock()
	assert.Equal(t, 1, ch.sent)
}
