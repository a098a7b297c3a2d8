package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worq1337/parcer-sub001/internal/logging"
)

func TestSubscribeAndPublish(t *testing.T) {
	h := New(4, logging.NewMockLogger())

	events, cancel := h.Subscribe()
	defer cancel()
	assert.Equal(t, 1, h.SubscriberCount())

	h.Publish(Event{Type: EventCheckSaved, CheckID: "c1"})

	select {
	case event := <-events:
		assert.Equal(t, EventCheckSaved, event.Type)
		assert.Equal(t, "c1", event.CheckID)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	h := New(4, logging.NewMockLogger())

	first, cancelFirst := h.Subscribe()
	defer cancelFirst()
	second, cancelSecond := h.Subscribe()
	defer cancelSecond()

	h.Publish(Event{Type: EventCheckReceived})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case event := <-ch:
			assert.Equal(t, EventCheckReceived, event.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the event")
		}
	}
}

func TestPublish_DropsWhenSubscriberFull(t *testing.T) {
	h := New(1, logging.NewMockLogger())

	events, cancel := h.Subscribe()
	defer cancel()

	// Fill the buffer, then overflow it. Publish must not block.
	h.Publish(Event{Type: EventCheckReceived, CheckID: "kept"})
	done := make(chan struct{})
	go func() {
		h.Publish(Event{Type: EventCheckReceived, CheckID: "dropped"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	event := <-events
	assert.Equal(t, "kept", event.CheckID)
	select {
	case extra := <-events:
		t.Fatalf("unexpected second event: %s", extra.CheckID)
	default:
	}
}

func TestCancel_RemovesSubscriber(t *testing.T) {
	h := New(4, logging.NewMockLogger())

	events, cancel := h.Subscribe()
	cancel()
	assert.Equal(t, 0, h.SubscriberCount())

	// The channel closes so consumers can exit their range loops.
	_, open := <-events
	assert.False(t, open)

	require.NotPanics(t, func() { cancel() })
	require.NotPanics(t, func() { h.Publish(Event{Type: EventCheckSaved}) })
}
