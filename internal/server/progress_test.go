package server

import (
	"testing"
	"time"
)

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub()
	events, cancel := h.Subscribe("sess-1")
	defer cancel()

	h.Publish("sess-1", "transcoding")
	h.Publish("sess-2", "recognizing") // different session, must not arrive

	select {
	case got := <-events:
		if got != "transcoding" {
			t.Errorf("event = %q, want transcoding", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case got := <-events:
		t.Errorf("unexpected event %q", got)
	default:
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub()
	events, cancel := h.Subscribe("sess-1")

	cancel()
	cancel() // idempotent

	if _, ok := <-events; ok {
		t.Error("channel should be closed after cancel")
	}

	// Publishing after cancel must not panic.
	h.Publish("sess-1", "done")
}

func TestHubSlowSubscriberDropsEvents(t *testing.T) {
	h := NewHub()
	events, cancel := h.Subscribe("sess-1")
	defer cancel()

	for i := 0; i < progressBuffer+10; i++ {
		h.Publish("sess-1", "stage")
	}

	// The buffer bounds what a non-reading subscriber retains.
	if got := len(events); got != progressBuffer {
		t.Errorf("buffered events = %d, want %d", got, progressBuffer)
	}
}

func TestHubMultipleSubscribers(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe("sess-1")
	b, cancelB := h.Subscribe("sess-1")
	defer cancelA()
	defer cancelB()

	h.Publish("sess-1", "done")

	for name, ch := range map[string]<-chan string{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got != "done" {
				t.Errorf("%s: event = %q", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: timed out", name)
		}
	}
}
