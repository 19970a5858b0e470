package csvlog

import (
	"strconv"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
)

const (
	bytesPerMB = 1024 * 1024
	bytesPerGB = 1024 * 1024 * 1024
)

// Header is the column row written once when the log file is first created.
var Header = []string{
	"timestamp",
	"cpu_percent",
	"ram_percent",
	"ram_used_gb",
	"disk_percent",
	"net_sent_rate",
	"net_recv_rate",
	"disk_read_rate",
	"disk_write_rate",
	"process_count",
	"filtered_cpu",
	"filtered_ram_gb",
}

// Record is one durable log row. Rates are MB/s and sizes are GB so the
// rows stay human-readable; the fixed decimal precision keeps the file
// diffable across runs.
type Record struct {
	Timestamp     time.Time
	CPUPercent    float64
	RAMPercent    float64
	RAMUsedGB     float64
	DiskPercent   float64
	NetSentMBps   float64
	NetRecvMBps   float64
	DiskReadMBps  float64
	DiskWriteMBps float64
	ProcessCount  int
	FilteredCPU   float64
	FilteredRAMGB float64
}

// FromSnapshot converts a cycle snapshot into a log record, translating
// byte counters into the units the file schema uses.
func FromSnapshot(snap metrics.Snapshot) Record {
	return Record{
		Timestamp:     snap.Timestamp,
		CPUPercent:    snap.CPUPercent,
		RAMPercent:    snap.RAMPercent,
		RAMUsedGB:     float64(snap.RAMUsedBytes) / bytesPerGB,
		DiskPercent:   snap.DiskPercent,
		NetSentMBps:   snap.NetSentRate / bytesPerMB,
		NetRecvMBps:   snap.NetRecvRate / bytesPerMB,
		DiskReadMBps:  snap.DiskReadRate / bytesPerMB,
		DiskWriteMBps: snap.DiskWriteRate / bytesPerMB,
		ProcessCount:  snap.ProcessCount,
		FilteredCPU:   snap.FilteredCPUPercent,
		FilteredRAMGB: float64(snap.FilteredRAMBytes) / bytesPerGB,
	}
}

// fields renders the record in Header order. Percentages get one decimal,
// sizes two and rates three, matching the documented schema.
func (r Record) fields() []string {
	return []string{
		r.Timestamp.Format(metrics.TimestampLayout),
		formatFloat(r.CPUPercent, 1),
		formatFloat(r.RAMPercent, 1),
		formatFloat(r.RAMUsedGB, 2),
		formatFloat(r.DiskPercent, 1),
		formatFloat(r.NetSentMBps, 3),
		formatFloat(r.NetRecvMBps, 3),
		formatFloat(r.DiskReadMBps, 3),
		formatFloat(r.DiskWriteMBps, 3),
		strconv.Itoa(r.ProcessCount),
		formatFloat(r.FilteredCPU, 1),
		formatFloat(r.FilteredRAMGB, 2),
	}
}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
