package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// sweepEvery controls how often idle keys are evicted from a MemoryStore.
const sweepEvery = 1024

type window struct {
	mu     sync.Mutex
	stamps []time.Time // ascending
	dead   bool        // evicted by sweep; holders must reload
}

// prune drops stamps at or before cutoff. Caller holds mu.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// MemoryStore keeps windows in process memory. Each key has its own lock, so
// checks for different keys never contend. State is not shared between processes.
type MemoryStore struct {
	windows sync.Map // string -> *window
	calls   atomic.Uint64
}

// NewMemoryStore creates an empty in-process window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ WindowStore = (*MemoryStore)(nil)

// Admit implements WindowStore.
func (m *MemoryStore) Admit(_ context.Context, key string, now time.Time, span time.Duration, limit int) (bool, error) {
	if m.calls.Add(1)%sweepEvery == 0 {
		m.sweep(now, span)
	}

	var w *window
	for {
		v, _ := m.windows.LoadOrStore(key, &window{})
		w = v.(*window)
		w.mu.Lock()
		if !w.dead {
			break
		}
		w.mu.Unlock()
	}
	defer w.mu.Unlock()

	w.prune(now.Add(-span))
	if len(w.stamps) >= limit {
		return false, nil
	}
	w.stamps = append(w.stamps, now)
	return true, nil
}

// sweep evicts keys whose windows are empty after pruning.
func (m *MemoryStore) sweep(now time.Time, span time.Duration) {
	cutoff := now.Add(-span)
	m.windows.Range(func(k, v any) bool {
		w := v.(*window)
		w.mu.Lock()
		w.prune(cutoff)
		if len(w.stamps) == 0 {
			w.dead = true
			m.windows.CompareAndDelete(k, v)
		}
		w.mu.Unlock()
		return true
	})
}

// Len returns the number of tracked keys.
func (m *MemoryStore) Len() int {
	n := 0
	m.windows.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
