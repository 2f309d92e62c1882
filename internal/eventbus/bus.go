// Package eventbus fans pipeline events out to in-process subscribers
// such as the dashboard stream and the event log.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pipeline topics.
const (
	SignalAccepted       = "signal.accepted"
	SignalDelivered      = "signal.delivered"
	SignalDeliveryFailed = "signal.delivery_failed"
	ConfigReloaded       = "config.reloaded"
)

const defaultBuffer = 8

// Event is written to the dashboard stream as JSON, so Data must marshal.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// Bus never blocks a publisher: an event that does not fit in a
// subscriber's buffer is dropped for that subscriber and counted.
type Bus interface {
	Publish(e Event)
	// Subscribe receives every topic when topics is empty.
	Subscribe(buffer int, topics ...string) (ch <-chan Event, unsubscribe func())
	// Dropped is the number of deliveries lost to full buffers.
	Dropped() uint64
}

func New() Bus {
	return &memBus{subs: map[uint64]*subscription{}}
}

type subscription struct {
	ch     chan Event
	topics map[string]bool
}

func (s *subscription) wants(topic string) bool {
	return len(s.topics) == 0 || s.topics[topic]
}

type memBus struct {
	// Publish holds the read lock while sending so that unsubscribe
	// cannot close a channel mid-send.
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	nextID  uint64
	dropped atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !s.wants(e.Type) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *memBus) Subscribe(buffer int, topics ...string) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	s := &subscription{ch: make(chan Event, buffer)}
	if len(topics) > 0 {
		s.topics = make(map[string]bool, len(topics))
		for _, t := range topics {
			s.topics[t] = true
		}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.ch)
		})
	}
}

func (b *memBus) Dropped() uint64 { return b.dropped.Load() }

// Publish is a nil-safe helper for optional buses.
func Publish(b Bus, typ string, data any) {
	if b == nil {
		return
	}
	b.Publish(Event{Type: typ, Time: time.Now(), Data: data})
}
