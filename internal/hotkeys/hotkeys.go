// Package hotkeys tracks key access frequency so the server can report the
// most-touched keys over INFO and the HOTKEYS command.
package hotkeys

import (
	"sort"
	"sync"
	"time"
)

// Entry is one tracked key with its access count.
type Entry struct {
	Key   string
	Count int64
}

// Tracker counts key accesses and reports the top-N hottest keys.
// It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	counts map[string]int64
	limit  int
	stop   chan struct{}
	once   sync.Once
}

// New creates a tracker keeping up to limit distinct counters. A non-zero
// window starts a decay loop that halves all counters each period, so the
// ranking reflects recent traffic rather than lifetime totals.
func New(limit int, window time.Duration) *Tracker {
	if limit <= 0 {
		limit = 100
	}
	t := &Tracker{
		counts: make(map[string]int64, limit),
		limit:  limit,
		stop:   make(chan struct{}),
	}
	if window > 0 {
		go t.decayLoop(window)
	}
	return t
}

// Close stops the decay loop, if any.
func (t *Tracker) Close() {
	t.once.Do(func() { close(t.stop) })
}

// Record counts one access to key. When the counter table is full, accesses
// to unseen keys are dropped until decay makes room.
func (t *Tracker) Record(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.counts[key]; !ok && len(t.counts) >= t.limit {
		return
	}
	t.counts[key]++
}

// Top returns up to n keys ordered by descending access count.
func (t *Tracker) Top(n int) []Entry {
	if n <= 0 {
		n = t.limit
	}
	t.mu.Lock()
	entries := make([]Entry, 0, len(t.counts))
	for key, count := range t.counts {
		entries = append(entries, Entry{Key: key, Count: count})
	}
	t.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.counts = make(map[string]int64, t.limit)
	t.mu.Unlock()
}

// Size returns the number of distinct tracked keys.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}

func (t *Tracker) decayLoop(window time.Duration) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			for key := range t.counts {
				t.counts[key] /= 2
				if t.counts[key] == 0 {
					delete(t.counts, key)
				}
			}
			t.mu.Unlock()
		}
	}
}
