package events

import (
	"sync"
	"time"
)

// Event is one stage transition of a pipeline run.
type Event struct {
	RequestID string
	Stage     string
	Item      int
	Detail    string
	At        time.Time
}

// Bus provides simple in-process pub/sub for pipeline progress. Slow
// subscribers miss events rather than stall a run.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
