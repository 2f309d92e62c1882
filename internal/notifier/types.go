package notifier

import (
	"context"
	"time"
)

// Credentials identify the bot and chat a message goes to.
type Credentials struct {
	Token  string
	ChatID string
}

func (c Credentials) Complete() bool { return c.Token != "" && c.ChatID != "" }

// CredentialsFunc returns the currently configured credentials.
type CredentialsFunc func() Credentials

// Channel performs a single outbound send. The Telegram client implements it.
type Channel interface {
	Send(ctx context.Context, token, chatID, text string) error
}

type HistoryItem struct {
	At        time.Time `json:"at"`
	SignalID  string    `json:"signalId,omitempty"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
}

// Stats summarizes delivery outcomes since start.
type Stats struct {
	Delivered     int64      `json:"delivered"`
	Failed        int64      `json:"failed"`
	LastError     string     `json:"lastError,omitempty"`
	LastDelivered *time.Time `json:"lastDeliveredAt,omitempty"`
	LastFailed    *time.Time `json:"lastFailedAt,omitempty"`
}

// DeliveryEvent is published on the event bus after each delivery attempt.
type DeliveryEvent struct {
	SignalID string    `json:"signalId"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}
