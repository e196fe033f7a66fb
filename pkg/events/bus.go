// Package events is the in-process event bus owned by an engine instance.
// Delivery is best-effort and at-most-once: a subscriber whose buffer is full
// misses the event.
package events

import (
	"strings"
	"sync"
	"time"
)

// Type names an event.
type Type string

const (
	TwinCreated          Type = "twin.created"
	TwinRemoved          Type = "twin.removed"
	TwinError            Type = "twin.error"
	MetricsUpdated       Type = "metrics.updated"
	AnomalyDetected      Type = "anomaly.detected"
	AlertWarning         Type = "alert.warning"
	AlertCritical        Type = "alert.critical"
	PredictionsGenerated Type = "predictions.generated"
	ModelUpdated         Type = "model.updated"
	MonitoringStarted    Type = "monitoring.started"
	MonitoringPaused     Type = "monitoring.paused"
	EngineStarted        Type = "engine.started"
	EngineStopped        Type = "engine.stopped"
)

// Event is one published notification. Payload is a value copy owned by the
// receiver.
type Event struct {
	Type      Type      `json:"type"`
	TwinID    string    `json:"twinId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Matches reports whether t is selected by pattern. A pattern ending in ".*"
// selects every type with that prefix; "*" selects everything.
func (t Type) Matches(pattern Type) bool {
	p := string(pattern)
	if p == "*" || Type(p) == t {
		return true
	}
	if prefix, ok := strings.CutSuffix(p, "*"); ok && strings.HasSuffix(prefix, ".") {
		return strings.HasPrefix(string(t), prefix)
	}
	return false
}

// DefaultBuffer is the per-subscriber channel capacity used when NewBus is
// given a non-positive size.
const DefaultBuffer = 256

type subscription struct {
	ch       chan Event
	patterns []Type
}

func (s *subscription) wants(t Type) bool {
	if len(s.patterns) == 0 {
		return true
	}
	for _, p := range s.patterns {
		if t.Matches(p) {
			return true
		}
	}
	return false
}

// Bus fans events out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	buffer int
	closed bool

	// OnDrop, when set, is called for every delivery skipped because a
	// subscriber's buffer was full.
	OnDrop func(Event)
}

// NewBus creates a bus whose subscribers get buffer-sized channels.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{subs: make(map[uint64]*subscription), buffer: buffer}
}

// Subscribe registers for events matching any of patterns, or all events
// when none are given. The returned function unsubscribes and closes the
// channel; it is safe to call more than once.
func (b *Bus) Subscribe(patterns ...Type) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, b.buffer), patterns: patterns}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
		})
	}
}

// Publish delivers ev to every interested subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if !s.wants(ev.Type) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			if b.OnDrop != nil {
				b.OnDrop(ev)
			}
		}
	}
}

// Close closes every subscriber channel. Later publishes are discarded and
// later subscriptions receive a closed channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
