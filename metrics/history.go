package metrics

import (
	"sort"
	"sync"
)

// HistoryStore maps metric names to fixed-capacity ring buffers of
// recent values, kept only for visualization. The oldest sample is
// silently evicted when a buffer is full. The sampler goroutine is the
// only writer; dashboard consumers read concurrently and always receive
// copies, never live references.
type HistoryStore struct {
	mu       sync.RWMutex
	capacity int
	series   map[string][]float64
}

// NewHistoryStore creates a store whose per-metric buffers hold at most
// capacity samples. A capacity below 1 is coerced to 1.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity < 1 {
		capacity = 1
	}
	return &HistoryStore{
		capacity: capacity,
		series:   make(map[string][]float64),
	}
}

// Capacity returns the fixed per-metric buffer capacity.
func (h *HistoryStore) Capacity() int {
	return h.capacity
}

// Push appends value to the named buffer, creating the buffer on first
// use. It never blocks and never fails.
func (h *HistoryStore) Push(key string, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.series[key] = appendAndTrim(h.series[key], value, h.capacity)
}

// PushAll appends every value in one critical section, so readers see
// either none or all of a cycle's samples, never a half-updated cycle.
func (h *HistoryStore) PushAll(values map[string]float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, value := range values {
		h.series[key] = appendAndTrim(h.series[key], value, h.capacity)
	}
}

// Snapshot returns a copy of the named buffer ordered oldest to newest,
// or nil if the key has never been pushed.
func (h *HistoryStore) Snapshot(key string) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	buf, ok := h.series[key]
	if !ok {
		return nil
	}
	out := make([]float64, len(buf))
	copy(out, buf)
	return out
}

// SnapshotAll returns copies of every tracked buffer keyed by metric
// name, for consumers that render all series at once.
func (h *HistoryStore) SnapshotAll() map[string][]float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string][]float64, len(h.series))
	for key, buf := range h.series {
		cp := make([]float64, len(buf))
		copy(cp, buf)
		out[key] = cp
	}
	return out
}

// Keys returns the tracked metric names in sorted order.
func (h *HistoryStore) Keys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	keys := make([]string, 0, len(h.series))
	for key := range h.series {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// appendAndTrim appends a value to a history slice and trims it to at
// most capacity samples, dropping the oldest.
func appendAndTrim(history []float64, value float64, capacity int) []float64 {
	history = append(history, value)
	if len(history) > capacity {
		history = history[len(history)-capacity:]
	}
	return history
}
