package scenario

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/membrane/internal/shared/id"
)

// EventType names a run lifecycle event.
type EventType string

const (
	EventRunCompleted EventType = "run.completed"
	EventRunRevoked   EventType = "run.revoked"
	EventRunDetached  EventType = "run.detached"
	EventCollected    EventType = "run.collected"
	EventGC           EventType = "gc.finished"
)

// Event reports a change to a run. Kind and Status are set for status
// changes of a single tracked object.
type Event struct {
	ID     id.EventID `json:"id"`
	Type   EventType  `json:"type"`
	RunID  id.RunID   `json:"run_id,omitempty"`
	Number int        `json:"run_number,omitempty"`
	Kind   Kind       `json:"kind,omitempty"`
	Status Status     `json:"status,omitempty"`
	Run    *Run       `json:"run,omitempty"`
	Time   time.Time  `json:"time"`
}

const subscriberBuffer = 64

// bus fans events out to subscribers. A subscriber that falls behind
// misses events rather than blocking the publisher.
type bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func newBus() *bus {
	return &bus{subs: make(map[chan Event]struct{})}
}

func (b *bus) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

func (b *bus) publish(e Event) {
	if e.ID == "" {
		e.ID = id.NewEventID()
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
