// Package probe reads raw telemetry from the operating system: whole-system
// resource counters and per-process usage. It is the pipeline's only
// contact with the OS; everything above it consumes plain values and can
// be driven by synthetic sources in tests.
package probe

import (
	"context"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
)

// Counters is one reading of the whole-system resource counters. The
// byte counters are cumulative since boot and monotonic except for
// resets, which the pipeline's rate derivation tolerates.
type Counters struct {
	CPUPercent  float64
	RAMPercent  float64
	DiskPercent float64

	RAMUsedBytes  uint64
	RAMTotalBytes uint64

	NetSentBytes   uint64
	NetRecvBytes   uint64
	DiskReadBytes  uint64
	DiskWriteBytes uint64

	ProcessCount  int
	UptimeSeconds uint64
}

// Host is the static description of the monitored machine, collected
// once at startup for dashboard headers.
type Host struct {
	Hostname      string `json:"hostname"`
	Platform      string `json:"platform"`
	CPUModel      string `json:"cpu_model"`
	CPUCount      int    `json:"cpu_count"`
	RAMTotalBytes uint64 `json:"ram_total_bytes"`
}

// SystemSource provides whole-system counters. Implementations may be
// slow and may partially fail; partial failures surface as warnings
// while the reading still carries every value that could be read. An
// error means no usable reading could be produced at all.
type SystemSource interface {
	ReadCounters(ctx context.Context) (Counters, []string, error)
}

// ProcessSource enumerates live processes. A single unreadable process
// (exited mid-enumeration, permission denied) is skipped and counted,
// never an error; an error means the enumeration itself failed.
type ProcessSource interface {
	ReadProcesses(ctx context.Context) (samples []metrics.ProcessSample, skipped int, err error)
}
