package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"xaubot/internal/eventbus"
	logx "xaubot/pkg/logx"
)

var (
	ErrConfigurationMissing = errors.New("telegram bot token or chat id not configured")
	ErrChannel              = errors.New("telegram delivery failed")
)

// ChannelError wraps a failed send. errors.Is(err, ErrChannel) matches it.
type ChannelError struct {
	Err error
}

func (e *ChannelError) Error() string {
	if e.Err == nil {
		return ErrChannel.Error()
	}
	return ErrChannel.Error() + ": " + e.Err.Error()
}

func (e *ChannelError) Unwrap() error { return e.Err }

func (e *ChannelError) Is(target error) bool { return target == ErrChannel }

// Code maps delivery failures to stable codes, or "" for anything else.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrConfigurationMissing):
		return "ConfigurationMissing"
	case errors.Is(err, ErrChannel):
		return "ChannelError"
	default:
		return ""
	}
}

const (
	defaultTimeout = 10 * time.Second
	historyLimit   = 100
)

// Dispatcher delivers formatted messages to the configured chat.
//
// It is safe for concurrent use.
type Dispatcher struct {
	log     logx.Logger
	channel Channel
	creds   CredentialsFunc
	bus     eventbus.Bus
	timeout time.Duration

	mu      sync.Mutex
	stats   Stats
	history []HistoryItem
}

func NewDispatcher(channel Channel, creds CredentialsFunc, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if creds == nil {
		creds = func() Credentials { return Credentials{} }
	}
	return &Dispatcher{
		log:     log,
		channel: channel,
		creds:   creds,
		bus:     bus,
		timeout: defaultTimeout,
	}
}

// SetTimeout bounds each send. Non-positive values restore the default.
func (d *Dispatcher) SetTimeout(t time.Duration) {
	if t <= 0 {
		t = defaultTimeout
	}
	d.mu.Lock()
	d.timeout = t
	d.mu.Unlock()
}

// Deliver sends text to the configured chat once.
func (d *Dispatcher) Deliver(ctx context.Context, text string) error {
	return d.DeliverSignal(ctx, "", text)
}

// DeliverSignal is Deliver with the signal id attached to stats and events.
func (d *Dispatcher) DeliverSignal(ctx context.Context, signalID, text string) error {
	err := d.send(ctx, d.creds(), text)
	d.record(signalID, err)
	return err
}

// SendTest probes connectivity with caller-supplied credentials.
// It does not touch stats or history.
func (d *Dispatcher) SendTest(ctx context.Context, creds Credentials, text string) error {
	return d.send(ctx, creds, text)
}

func (d *Dispatcher) send(ctx context.Context, creds Credentials, text string) error {
	creds.Token = strings.TrimSpace(creds.Token)
	creds.ChatID = strings.TrimSpace(creds.ChatID)
	if !creds.Complete() || d.channel == nil {
		return ErrConfigurationMissing
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	timeout := d.timeout
	d.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := d.channel.Send(cctx, creds.Token, creds.ChatID, text); err != nil {
		return &ChannelError{Err: err}
	}
	return nil
}

func (d *Dispatcher) record(signalID string, err error) {
	now := time.Now()
	item := HistoryItem{At: now, SignalID: signalID, Delivered: err == nil}

	d.mu.Lock()
	if err == nil {
		d.stats.Delivered++
		d.stats.LastDelivered = &now
	} else {
		item.Error = err.Error()
		d.stats.Failed++
		d.stats.LastError = item.Error
		d.stats.LastFailed = &now
	}
	d.history = append(d.history, item)
	if len(d.history) > historyLimit {
		d.history = d.history[len(d.history)-historyLimit:]
	}
	d.mu.Unlock()

	ev := DeliveryEvent{SignalID: signalID, At: now}
	if err != nil {
		ev.Error = err.Error()
		d.log.Error("signal delivery failed", logx.String("signal_id", signalID), logx.String("code", Code(err)), logx.Err(err))
		eventbus.Publish(d.bus, eventbus.SignalDeliveryFailed, ev)
		return
	}
	d.log.Info("signal delivered", logx.String("signal_id", signalID))
	eventbus.Publish(d.bus, eventbus.SignalDelivered, ev)
}

// Stats returns a copy of the delivery counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Snapshot returns recent delivery attempts, oldest first.
func (d *Dispatcher) Snapshot() []HistoryItem {
	d.mu.Lock()
	out := append([]HistoryItem(nil), d.history...)
	d.mu.Unlock()
	return out
}

// Configured reports whether live credentials are complete.
func (d *Dispatcher) Configured() bool {
	c := d.creds()
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.ChatID) != ""
}
