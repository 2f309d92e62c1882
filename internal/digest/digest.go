// Package digest posts a scheduled summary of the day's signals.
package digest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"xaubot/internal/notifier"
	"xaubot/internal/signal"
	"xaubot/internal/signallog"
	logx "xaubot/pkg/logx"
)

const Title = "XAUUSD daily digest"

// Deliverer sends one message to the configured chat.
type Deliverer interface {
	Deliver(ctx context.Context, text string) error
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule checks a five-field cron expression or descriptor.
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("digest schedule %q: %w", spec, err)
	}
	return s, nil
}

type Service struct {
	log     logx.Logger
	signals *signallog.Log
	out     Deliverer
	now     func() time.Time

	mu      sync.Mutex
	c       *cron.Cron
	ctx     context.Context
	enabled bool
	spec    string
	loc     *time.Location
}

func New(signals *signallog.Log, out Deliverer, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:     log,
		signals: signals,
		out:     out,
		now:     time.Now,
		loc:     time.UTC,
	}
}

// Start arms the schedule set by the last Apply. ctx bounds every run.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	s.restartLocked()
}

// Apply swaps the schedule and timezone. A running cron is restarted only
// when something changed.
func (s *Service) Apply(enabled bool, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if enabled {
		if _, err := ParseSchedule(spec); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled == enabled && s.spec == spec && s.loc.String() == loc.String() {
		return nil
	}
	s.enabled, s.spec, s.loc = enabled, spec, loc
	if s.ctx != nil {
		s.restartLocked()
	}
	return nil
}

func (s *Service) restartLocked() {
	s.stopLocked()
	if !s.enabled {
		return
	}
	c := cron.New(cron.WithParser(parser), cron.WithLocation(s.loc))
	ctx := s.ctx
	if _, err := c.AddFunc(s.spec, func() { s.runScheduled(ctx) }); err != nil {
		s.log.Error("digest schedule rejected", logx.String("schedule", s.spec), logx.Err(err))
		return
	}
	c.Start()
	s.c = c
	s.log.Info("digest scheduled", logx.String("schedule", s.spec), logx.String("tz", s.loc.String()))
}

func (s *Service) stopLocked() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.ctx = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// Text renders the digest for the current local day.
func (s *Service) Text() string {
	s.mu.Lock()
	loc := s.loc
	s.mu.Unlock()

	start := signallog.StartOfDay(s.now(), loc)
	var last *signal.Signal
	if l, ok := s.signals.Last(); ok && !l.Timestamp.Before(start) {
		last = &l
	}
	f := notifier.Formatter{Location: loc}
	return f.Summary(Title, s.signals.CountSince(start), s.signals.CountByAction(start), last)
}

// Run sends one digest now.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.out.Deliver(ctx, s.Text())
}

// runScheduled is the cron job.
func (s *Service) runScheduled(ctx context.Context) {
	started := time.Now()
	if err := s.Run(ctx); err != nil {
		s.log.Warn("digest not delivered", logx.String("code", notifier.Code(err)), logx.Err(err))
		return
	}
	s.log.Info("digest delivered", logx.Duration("took", time.Since(started)))
}
