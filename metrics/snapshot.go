package metrics

import (
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 second-precision form used everywhere
// a snapshot timestamp is serialized (CSV rows, alert bodies), kept
// identical across outputs so logs stay diffable.
const TimestampLayout = "2006-01-02T15:04:05"

// ProcessSample is one process observed during a collection cycle.
type ProcessSample struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float64 `json:"cpu_percent"`
	RAMBytes   uint64  `json:"ram_bytes"`
}

// Snapshot is the immutable result of one collection cycle. The sampler
// constructs it exactly once per cycle and passes it by value to every
// consumer (durable log, dashboards, alert evaluation); nothing mutates
// it afterwards.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	CPUPercent  float64 `json:"cpu_percent"`
	RAMPercent  float64 `json:"ram_percent"`
	DiskPercent float64 `json:"disk_percent"`

	RAMUsedBytes  uint64 `json:"ram_used_bytes"`
	RAMTotalBytes uint64 `json:"ram_total_bytes"`

	// Per-second rates derived from cumulative OS counters. Never negative.
	NetSentRate   float64 `json:"net_sent_rate"`
	NetRecvRate   float64 `json:"net_recv_rate"`
	DiskReadRate  float64 `json:"disk_read_rate"`
	DiskWriteRate float64 `json:"disk_write_rate"`

	ProcessCount  int    `json:"process_count"`
	UptimeSeconds uint64 `json:"uptime_seconds"`

	// Aggregates over the name-filtered process subset. An empty filter
	// matches every process.
	FilteredCPUPercent float64 `json:"filtered_cpu_percent"`
	FilteredRAMBytes   uint64  `json:"filtered_ram_bytes"`

	// Top processes by CPU and by resident memory, descending, at most
	// the configured K entries each.
	TopByCPU []ProcessSample `json:"top_by_cpu"`
	TopByRAM []ProcessSample `json:"top_by_ram"`
}

// MatchesFilter reports whether a process name matches the configured
// case-insensitive substring filter. An empty filter matches everything.
func MatchesFilter(name, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

// TopByCPU returns the k processes with the highest CPU usage in
// descending order. Ties are broken by ascending PID so repeated cycles
// over the same data produce identical output.
func TopByCPU(procs []ProcessSample, k int) []ProcessSample {
	return topK(procs, k, func(a, b ProcessSample) bool {
		if a.CPUPercent != b.CPUPercent {
			return a.CPUPercent > b.CPUPercent
		}
		return a.PID < b.PID
	})
}

// TopByRAM returns the k processes with the highest resident memory in
// descending order, ties broken by ascending PID.
func TopByRAM(procs []ProcessSample, k int) []ProcessSample {
	return topK(procs, k, func(a, b ProcessSample) bool {
		if a.RAMBytes != b.RAMBytes {
			return a.RAMBytes > b.RAMBytes
		}
		return a.PID < b.PID
	})
}

// topK sorts a copy of procs by less and returns the first k entries.
// The input slice is never reordered.
func topK(procs []ProcessSample, k int, less func(a, b ProcessSample) bool) []ProcessSample {
	if k <= 0 || len(procs) == 0 {
		return nil
	}

	sorted := make([]ProcessSample, len(procs))
	copy(sorted, procs)
	sort.Slice(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}
