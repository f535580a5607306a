// Package ring keeps a small fixed-capacity buffer of the most recent
// parsed events for lightweight inspection, independent of the index.
package ring

import (
	"sync"

	"github.com/Free-Guy-IR/monitoring-user-web/internal/model"
)

// Ring is a FIFO circular buffer of LogEvents. Inserting beyond capacity
// evicts the oldest entry. Safe for one writer and many readers.
type Ring struct {
	mu   sync.RWMutex
	buf  []model.LogEvent
	head int // index of the oldest entry
	n    int // number of entries stored
}

// New allocates a ring with the given capacity (minimum 1).
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]model.LogEvent, capacity)}
}

// Add appends an event, evicting the oldest when full.
func (r *Ring) Add(ev model.LogEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = ev
		r.n++
		return
	}
	r.buf[r.head] = ev
	r.head = (r.head + 1) % len(r.buf)
}

// Len returns the number of stored events.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.n
}

// Recent copies out up to limit of the newest events in arrival order
// (oldest first). limit <= 0 returns everything stored.
func (r *Ring) Recent(limit int) []model.LogEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.n
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.LogEvent, n)
	// Skip past the oldest entries when limited.
	start := r.head + (r.n - n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}
