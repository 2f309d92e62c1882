package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	alertQueue    = 128
	alertTimeout  = 10 * time.Second
	alertMaxRunes = 3500
	alertMaxValue = 600
)

// Sender delivers a plain text line to a chat. The Telegram client implements it.
type Sender interface {
	SendLog(ctx context.Context, chatID, text string) error
}

type alertLine struct {
	chatID string
	text   string
}

// alertSink is a zerolog.LevelWriter that forwards operator-facing lines
// to Telegram without ever blocking the caller.
type alertSink struct {
	sender Sender
	queue  chan alertLine

	mu       sync.Mutex
	chatID   string
	minLevel zerolog.Level
	limiter  *rate.Limiter
	cancel   context.CancelFunc
	done     chan struct{}
}

func newAlertSink(sender Sender) *alertSink {
	return &alertSink{sender: sender, queue: make(chan alertLine, alertQueue)}
}

func (a *alertSink) configure(cfg TelegramConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.chatID = strings.TrimSpace(cfg.ChatID)
	a.minLevel = parseLevel(cfg.MinLevel, zerolog.WarnLevel)
	rps := max(1, cfg.RatePerSec)
	a.limiter = rate.NewLimiter(rate.Limit(rps), rps)

	if !cfg.Enabled || a.cancel != nil {
		return
	}
	if a.chatID == "" {
		fmt.Fprintln(os.Stderr, "logx: telegram sink enabled without a chat id")
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx, a.done)
}

func (a *alertSink) stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *alertSink) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-a.queue:
			if a.sender == nil {
				continue
			}
			sctx, cancel := context.WithTimeout(ctx, alertTimeout)
			_ = a.sender.SendLog(sctx, line.chatID, line.text)
			cancel()
		}
	}
}

func (a *alertSink) Write(p []byte) (int, error) { return a.WriteLevel(zerolog.InfoLevel, p) }

func (a *alertSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	a.mu.Lock()
	chatID, minLevel, lim := a.chatID, a.minLevel, a.limiter
	a.mu.Unlock()

	if chatID == "" || level < minLevel || lim == nil || !lim.Allow() {
		return len(p), nil
	}
	text := renderAlert(p)
	if text == "" {
		return len(p), nil
	}
	select {
	case a.queue <- alertLine{chatID: chatID, text: text}:
	default:
	}
	return len(p), nil
}

// renderAlert turns a JSON log line into "LEVEL comp: message" followed by
// one "key: value" line per remaining field, sorted by key.
func renderAlert(p []byte) string {
	raw := strings.TrimSpace(string(p))
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return clip(raw, alertMaxRunes)
	}

	var b strings.Builder
	if lvl, _ := m["level"].(string); lvl != "" {
		b.WriteString(strings.ToUpper(lvl))
		b.WriteByte(' ')
	}
	if comp, _ := m["comp"].(string); comp != "" {
		b.WriteString(comp)
		b.WriteString(": ")
	}
	msg, _ := m[zerolog.MessageFieldName].(string)
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "comp", zerolog.MessageFieldName:
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, clip(fmt.Sprint(m[k]), alertMaxValue))
	}
	return clip(b.String(), alertMaxRunes)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
