// Package metrics holds the pipeline's core data structures: per-second
// rate derivation from cumulative OS counters, bounded per-metric history
// for visualization, and the immutable per-cycle Snapshot handed to every
// consumer.
package metrics

import "time"

// minRateInterval is the floor for the elapsed time used in rate
// division. It guards against near-zero intervals from clock-resolution
// artifacts producing absurd rates.
const minRateInterval = 100 * time.Millisecond

// rateState is the last observation recorded for one counter key.
type rateState struct {
	value uint64
	at    time.Time
}

// RateCounter converts time-stamped monotonic cumulative counters (total
// bytes sent, total bytes read, ...) into per-second rates. A counter
// that decreased since the previous observation is treated as a reset
// (process restart, integer wraparound, OS re-report) and the current
// absolute value becomes the delta, so a rate is never negative.
//
// RateCounter is not safe for concurrent use. The sampler goroutine is
// its only caller.
type RateCounter struct {
	prev map[string]rateState
}

// NewRateCounter creates an empty RateCounter.
func NewRateCounter() *RateCounter {
	return &RateCounter{prev: make(map[string]rateState)}
}

// Update records the cumulative value observed for key at now and
// returns the per-second rate since the previous observation. The first
// call for a fresh key seeds the baseline and returns exactly 0; there
// is no prior state to fabricate a rate from. State is stored on every
// call, including the reset path.
func (r *RateCounter) Update(key string, current uint64, now time.Time) float64 {
	last, seen := r.prev[key]
	r.prev[key] = rateState{value: current, at: now}
	if !seen {
		return 0
	}

	var delta uint64
	if current >= last.value {
		delta = current - last.value
	} else {
		// Counter reset: the new absolute value is the best delta estimate.
		delta = current
	}

	elapsed := now.Sub(last.at)
	if elapsed < minRateInterval {
		elapsed = minRateInterval
	}

	return float64(delta) / elapsed.Seconds()
}
