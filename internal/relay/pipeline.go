// Package relay runs one inbound payload through guard, validation,
// normalization, the signal log and delivery.
package relay

import (
	"context"
	"time"

	"xaubot/internal/eventbus"
	"xaubot/internal/guard"
	"xaubot/internal/notifier"
	"xaubot/internal/signal"
	"xaubot/internal/signallog"
	logx "xaubot/pkg/logx"
)

// Profile parameterizes the pipeline per entry path.
type Profile struct {
	Name            string
	Source          signal.Source
	Rules           signal.Rules
	VerifySignature bool
}

var (
	Automated = Profile{Name: "webhook", Source: signal.SourceAutomated, Rules: signal.AutomatedRules, VerifySignature: true}
	Manual    = Profile{Name: "manual", Source: signal.SourceManual, Rules: signal.ManualRules}
)

// Deliverer sends one formatted message for a signal.
type Deliverer interface {
	DeliverSignal(ctx context.Context, signalID, text string) error
}

// Result describes how far a payload got.
// Accepted is true once the signal is in the log, even if delivery failed.
type Result struct {
	Payload  signal.Payload
	Signal   signal.Signal
	Accepted bool
}

type Pipeline struct {
	guard      *guard.Guard
	normalizer *signal.Normalizer
	log        *signallog.Log
	dispatch   Deliverer
	location   func() *time.Location
	bus        eventbus.Bus
	logger     logx.Logger
}

type Option func(*Pipeline)

func WithBus(b eventbus.Bus) Option { return func(p *Pipeline) { p.bus = b } }

func WithLogger(l logx.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithLocation sets the live display timezone for formatted messages.
func WithLocation(fn func() *time.Location) Option { return func(p *Pipeline) { p.location = fn } }

func WithNormalizer(n *signal.Normalizer) Option { return func(p *Pipeline) { p.normalizer = n } }

func New(g *guard.Guard, log *signallog.Log, d Deliverer, opts ...Option) *Pipeline {
	p := &Pipeline{
		guard:    g,
		log:      log,
		dispatch: d,
		location: func() *time.Location { return time.UTC },
	}
	for _, o := range opts {
		o(p)
	}
	if p.normalizer == nil {
		p.normalizer = signal.NewNormalizer()
	}
	if p.logger.IsZero() {
		p.logger = logx.Nop()
	}
	return p
}

// Process handles one request body. sig is the signature header value, if any.
//
// Steps run in order and stop at the first failure: guard (profiles with
// VerifySignature only), decode, validate, normalize, append, format, deliver.
// There is no rollback: a delivery failure leaves the signal in the log.
func (p *Pipeline) Process(ctx context.Context, prof Profile, raw []byte, sig string) (Result, error) {
	var res Result
	log := p.logger.With(logx.String("path", prof.Name))

	if prof.VerifySignature {
		if err := p.guard.Verify(raw, sig); err != nil {
			log.Warn("signature rejected", logx.Int("bytes", len(raw)))
			return res, err
		}
	}

	payload, err := signal.Decode(raw)
	if err != nil {
		log.Warn("payload rejected", logx.String("code", signal.Code(err)), logx.Err(err))
		return res, err
	}
	res.Payload = payload

	fields, err := signal.Validate(payload, prof.Rules)
	if err != nil {
		log.Warn("payload rejected", logx.String("code", signal.Code(err)), logx.Err(err))
		return res, err
	}

	s := p.normalizer.Normalize(fields, prof.Source)
	p.log.Append(s)
	res.Signal, res.Accepted = s, true
	log.Info("signal accepted",
		logx.String("signal_id", s.ID),
		logx.String("action", string(s.Action)),
		logx.Float64("price", s.Price),
	)
	eventbus.Publish(p.bus, eventbus.SignalAccepted, s)

	text := notifier.Formatter{Location: p.location()}.Format(s)
	// An accepted signal is always dispatched to completion; the caller
	// hanging up must not abort the send. The dispatcher applies its own timeout.
	if err := p.dispatch.DeliverSignal(context.WithoutCancel(ctx), s.ID, text); err != nil {
		return res, err
	}
	return res, nil
}
