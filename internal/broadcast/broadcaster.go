// Package broadcast fans live messages out to an open set of
// per-connection subscribers with non-blocking, drop-on-slow delivery.
package broadcast

import (
	"sync"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/model"
)

const subscriberBuffer = 256

// Subscriber is the handle returned by Subscribe. Its channel receives
// every message published while the subscriber stays registered.
type Subscriber struct {
	ch chan model.LiveMessage
}

// C returns the subscriber's receive channel.
func (s *Subscriber) C() <-chan model.LiveMessage { return s.ch }

// Broadcaster maintains the subscriber registry. Publish never blocks:
// a subscriber whose buffer is full loses the message and is dropped
// from the registry, so one slow consumer cannot stall ingestion.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[*Subscriber]struct{}
	dropped int64
}

// New creates an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new subscriber and returns its handle.
func (b *Broadcaster) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan model.LiveMessage, subscriberBuffer)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes a subscriber from the registry. Idempotent.
func (b *Broadcaster) Unsubscribe(s *Subscriber) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Publish attempts a non-blocking enqueue to every registered
// subscriber. A subscriber that cannot accept immediately is treated as
// dead and deregistered within this call.
func (b *Broadcaster) Publish(msg model.LiveMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		select {
		case s.ch <- msg:
		default:
			b.dropped++
			delete(b.subs, s)
		}
	}
}

// Count returns the number of registered subscribers.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many messages were lost to dead or slow
// subscribers since startup.
func (b *Broadcaster) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
