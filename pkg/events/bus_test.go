package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func assertNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.Type)
	default:
	}
}

func TestTypeMatches(t *testing.T) {
	tests := []struct {
		typ     Type
		pattern Type
		want    bool
	}{
		{AlertWarning, AlertWarning, true},
		{AlertWarning, AlertCritical, false},
		{AlertWarning, "alert.*", true},
		{AlertCritical, "alert.*", true},
		{AnomalyDetected, "alert.*", false},
		{"alerting.x", "alert.*", false},
		{TwinCreated, "*", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.Matches(tt.pattern), "%s ~ %s", tt.typ, tt.pattern)
	}
}

func TestPublishSubscribe(t *testing.T) {
	b := NewBus(4)
	all, unsubAll := b.Subscribe()
	defer unsubAll()
	alerts, unsubAlerts := b.Subscribe("alert.*")
	defer unsubAlerts()

	b.Publish(Event{Type: MetricsUpdated, TwinID: "twin-1"})
	b.Publish(Event{Type: AlertCritical, TwinID: "twin-1", Payload: 95.0})

	assert.Equal(t, MetricsUpdated, receive(t, all).Type)
	ev := receive(t, all)
	assert.Equal(t, AlertCritical, ev.Type)
	assert.False(t, ev.Timestamp.IsZero())

	got := receive(t, alerts)
	assert.Equal(t, AlertCritical, got.Type)
	assert.Equal(t, 95.0, got.Payload)
	assertNoEvent(t, alerts)
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	b := NewBus(1)
	var mu sync.Mutex
	dropped := 0
	b.OnDrop = func(Event) {
		mu.Lock()
		dropped++
		mu.Unlock()
	}
	_, unsub := b.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: MetricsUpdated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 9, dropped)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(1)
	ch, unsub := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	unsub()
	unsub()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())

	b.Publish(Event{Type: TwinCreated})
}

func TestClose(t *testing.T) {
	b := NewBus(1)
	ch, unsub := b.Subscribe()

	b.Close()
	b.Close()
	_, ok := <-ch
	assert.False(t, ok)
	unsub()

	late, _ := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)

	b.Publish(Event{Type: EngineStopped})
}
