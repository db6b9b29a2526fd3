// Package dedup guards against double-processing a message id that a
// consumer group redelivers — a crash between XREADGROUP and XACK, or a
// pending-message claim at startup, both hand the same id to a consumer
// more than once. A bounded sliding window of recently seen ids catches
// the common case cheaply, without needing a persistent dedup store: the
// window only needs to outlast how long a redelivery can lag the original
// delivery, not the life of the stream.
package dedup

import "sync"

// Window remembers up to size ids, evicting the oldest once full — a ring
// buffer backing a set, so Seen is O(1) and eviction never needs to scan.
type Window struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	next  int
}

func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1
	}
	return &Window{
		seen:  make(map[string]struct{}, size),
		order: make([]string, 0, size),
	}
}

// Seen reports whether id was already admitted into the window, and if
// not, admits it. Callers skip processing when Seen returns true.
func (w *Window) Seen(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[id]; ok {
		return true
	}

	if len(w.order) < cap(w.order) {
		w.order = append(w.order, id)
	} else {
		evict := w.order[w.next]
		delete(w.seen, evict)
		w.order[w.next] = id
		w.next = (w.next + 1) % len(w.order)
	}
	w.seen[id] = struct{}{}
	return false
}
