package signal

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	StrategyAutomated = "TradingView Alert"
	StrategyManual    = "Manual Entry"

	inputMethodDashboard = "dashboard"
	anonymousUser        = "anonymous"
)

// DefaultStrategy returns the label used when a payload names no strategy.
func DefaultStrategy(src Source) string {
	if src == SourceManual {
		return StrategyManual
	}
	return StrategyAutomated
}

// IDSource hands out strictly increasing millisecond-derived ids.
// Calls within the same millisecond get consecutive values, so ids never collide.
type IDSource struct {
	last atomic.Int64
}

func (g *IDSource) Next(now time.Time) int64 {
	ms := now.UnixMilli()
	for {
		prev := g.last.Load()
		next := ms
		if next <= prev {
			next = prev + 1
		}
		if g.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// Normalizer turns validated fields into a complete Signal.
// Only the clock and id source make it impure. A zero Normalizer is usable
// from concurrent requests; it gets its own id source on first use.
type Normalizer struct {
	Now func() time.Time
	IDs *IDSource

	idsOnce sync.Once
}

func (n *Normalizer) idSource() *IDSource {
	n.idsOnce.Do(func() {
		if n.IDs == nil {
			n.IDs = &IDSource{}
		}
	})
	return n.IDs
}

func NewNormalizer() *Normalizer {
	return &Normalizer{Now: time.Now, IDs: &IDSource{}}
}

func (n *Normalizer) Normalize(f Fields, src Source) Signal {
	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}
	id := strconv.FormatInt(n.idSource().Next(now), 10)
	s := Signal{
		ID:         id,
		Symbol:     Symbol,
		Action:     f.Action,
		Price:      f.Price,
		StopLoss:   f.StopLoss,
		TakeProfit: f.TakeProfit,
		Timestamp:  now.UTC().Truncate(time.Millisecond),
		Timeframe:  f.Timeframe,
		Reason:     f.Reason,
		Strategy:   strings.TrimSpace(f.Strategy),
	}
	if s.Timeframe == "" {
		s.Timeframe = DefaultTimeframe
	}
	if s.Strategy == "" {
		s.Strategy = DefaultStrategy(src)
	}
	if src == SourceManual {
		s.ID = id + "_manual"
		s.Source = string(SourceManual)
		s.InputMethod = inputMethodDashboard
		s.UserID = f.UserID
		if s.UserID == "" {
			s.UserID = anonymousUser
		}
	}
	return s
}
