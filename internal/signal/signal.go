// Package signal holds the Signal record and the pure validate/normalize
// steps shared by every inbound path.
package signal

import (
	"strings"
	"time"
)

// Symbol is the only instrument the relay accepts.
const Symbol = "XAUUSD"

// DefaultTimeframe is applied when a payload carries no timeframe.
const DefaultTimeframe = "1H"

type Action string

const (
	Buy   Action = "BUY"
	Sell  Action = "SELL"
	Close Action = "CLOSE"
)

// Actions lists the accepted actions in display order.
var Actions = []Action{Buy, Sell, Close}

// ParseAction upper-cases s and reports whether it names a known action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case Buy, Sell, Close:
		return a, true
	default:
		return "", false
	}
}

// Source tags which inbound path produced a Signal.
type Source string

const (
	SourceAutomated Source = "automated"
	SourceManual    Source = "manual"
)

// Signal is a normalized trading alert. It is immutable once appended to the log.
type Signal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"action"`
	Price      float64   `json:"price"`
	StopLoss   *float64  `json:"stopLoss"`
	TakeProfit *float64  `json:"takeProfit"`
	Timestamp  time.Time `json:"timestamp"`
	Timeframe  string    `json:"timeframe"`
	Reason     string    `json:"reason"`
	Strategy   string    `json:"strategy"`

	// Manual path only.
	Source      string `json:"source,omitempty"`
	InputMethod string `json:"inputMethod,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// IsManual reports whether the signal was entered by a human.
func (s Signal) IsManual() bool { return s.Source == string(SourceManual) }
