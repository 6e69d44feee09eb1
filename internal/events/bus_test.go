package events

import "testing"

func TestBusDeliversToSubscribers(t *testing.T) {
	b := NewBus()
	a := b.Subscribe()
	c := b.Subscribe()
	b.Publish(Event{RequestID: "r1", Stage: "SUMMARIZED"})

	for _, ch := range []<-chan Event{a, c} {
		ev := <-ch
		if ev.RequestID != "r1" || ev.Stage != "SUMMARIZED" {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.At.IsZero() {
			t.Fatalf("expected timestamp to be set")
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	for i := 0; i < 100; i++ {
		b.Publish(Event{Item: i})
	}
	if got := len(ch); got != cap(ch) {
		t.Fatalf("expected buffer to be full, got %d", got)
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var b *Bus
	b.Publish(Event{Stage: "COMPLETED"})
}
