package sla

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultHistoryCapacity = 1024

// HistoryEntry is one recorded enforcement run.
type HistoryEntry struct {
	Tier         Tier
	Source       ResultSource
	Elapsed      time.Duration
	MetSLA       bool
	UsedFallback bool
	At           time.Time
}

// History is a bounded ring of enforcement runs backed by a fixed arena.
// When full, the oldest entry is overwritten. Writers never block: a crisis
// caller must not wait on a lock held by a reader or a lower-priority
// writer, so contended appends are counted and dropped instead.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	next    int
	size    int
	dropped atomic.Uint64
}

// NewHistory builds a History holding up to capacity entries. Non-positive
// capacities fall back to the default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &History{entries: make([]HistoryEntry, capacity)}
}

// TryAppend records an entry without blocking. Returns false when the lock
// was contended and the entry was dropped; the drop is counted.
func (h *History) TryAppend(entry HistoryEntry) bool {
	if !h.mu.TryLock() {
		h.dropped.Add(1)
		return false
	}
	defer h.mu.Unlock()

	h.entries[h.next] = entry
	h.next = (h.next + 1) % len(h.entries)
	if h.size < len(h.entries) {
		h.size++
	}
	return true
}

// Snapshot returns the recorded entries oldest-first. Readers may block;
// only the write path is contention-sensitive.
func (h *History) Snapshot() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, 0, h.size)
	start := h.next - h.size
	if start < 0 {
		start += len(h.entries)
	}
	for i := 0; i < h.size; i++ {
		out = append(out, h.entries[(start+i)%len(h.entries)])
	}
	return out
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Dropped returns how many appends were discarded under contention.
func (h *History) Dropped() uint64 {
	return h.dropped.Load()
}
