package job

import (
	"sync"

	"github.com/google/uuid"
)

// Event is a job state transition published by the Manager. Observers
// (progress pollers, notification fan-out) subscribe instead of sharing
// mutable job state.
type Event struct {
	JobID            uuid.UUID `json:"jobId"`
	Status           Status    `json:"status"`
	Progress         int       `json:"progress"`
	SymbolsExtracted int       `json:"symbolsExtracted"`
}

const eventBuffer = 64

type bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newBus() *bus {
	return &bus{subs: make(map[int]chan Event)}
}

// subscribe returns an event channel and an unsubscribe function. The
// channel is buffered; a subscriber that falls behind misses intermediate
// events and is expected to resync from the store, so publishing never
// blocks job execution.
func (b *bus) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, eventBuffer)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

func (b *bus) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
