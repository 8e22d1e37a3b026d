package eventbus

import (
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func requireEmpty(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected event %+v", got)
	default:
	}
}

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe(1)
	defer cancel()
	other, cancelOther := bus.Subscribe(2)
	defer cancelOther()

	bus.Publish(Event{Type: EventView, ViewID: 1})

	got := receive(t, ch)
	if got.Type != EventView || got.ViewID != 1 {
		t.Fatalf("unexpected event: %+v", got)
	}
	requireEmpty(t, other)
}

func TestGlobalEventsReachEveryView(t *testing.T) {
	bus := New(nil)
	a, cancelA := bus.Subscribe(1)
	defer cancelA()
	b, cancelB := bus.Subscribe(2)
	defer cancelB()

	bus.Publish(Event{Type: EventGlobal, Alert: "saved"})
	if got := receive(t, a); got.Alert != "saved" {
		t.Fatalf("unexpected event on view 1: %+v", got)
	}
	if got := receive(t, b); got.Alert != "saved" {
		t.Fatalf("unexpected event on view 2: %+v", got)
	}
}

func TestSubscribeAllSeesEveryView(t *testing.T) {
	bus := New(nil)
	all, cancel := bus.SubscribeAll()
	defer cancel()
	bus.Publish(Event{Type: EventView, ViewID: 3})
	bus.Publish(Event{Type: EventStatus, ViewID: 4})
	if got := receive(t, all); got.ViewID != 3 {
		t.Fatalf("unexpected first event %+v", got)
	}
	if got := receive(t, all); got.ViewID != 4 || got.Type != EventStatus {
		t.Fatalf("unexpected second event %+v", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe(1)
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	bus.Publish(Event{Type: EventView, ViewID: 1})
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	_, cancel := bus.Subscribe(1)
	defer cancel()

	var sendCh chan Event
	bus.mu.Lock()
	for ch := range bus.subs[1] {
		sendCh = ch
		break
	}
	bus.mu.Unlock()
	if sendCh == nil {
		t.Fatalf("expected subscriber channel")
	}
	sendCh <- Event{Type: EventView}
	done := make(chan struct{})
	go func() {
		bus.Publish(Event{Type: EventView, ViewID: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
}

func TestNilBusIsInert(t *testing.T) {
	var bus *Bus
	ch, cancel := bus.Subscribe(1)
	if ch != nil {
		t.Fatalf("expected nil channel")
	}
	cancel()
	bus.Publish(Event{Type: EventGlobal})
}
