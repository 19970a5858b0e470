package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
)

// procTimes is the last CPU-time observation for one PID, used to turn
// cumulative per-process CPU time into a percentage over the cycle.
type procTimes struct {
	total float64
	at    time.Time
}

// System reads counters and processes through gopsutil. The gopsutil
// entry points are function fields so tests can substitute synthetic
// readings without touching the OS.
type System struct {
	logger *slog.Logger

	// diskPath is the mount point measured for disk usage.
	diskPath string

	cpuPercent     func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory  func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	diskUsage      func(ctx context.Context, path string) (*disk.UsageStat, error)
	diskIOCounters func(ctx context.Context, names ...string) (map[string]disk.IOCountersStat, error)
	netIOCounters  func(ctx context.Context, pernic bool) ([]psnet.IOCountersStat, error)
	uptime         func(ctx context.Context) (uint64, error)
	pids           func(ctx context.Context) ([]int32, error)
	processes      func(ctx context.Context) ([]*process.Process, error)
	readProc       func(ctx context.Context, p *process.Process) (name string, cpuTotal float64, rss uint64, err error)
	now            func() time.Time

	// prevCPU holds the last CPU-time observation per PID. Only the
	// enumeration path touches it; a mutex keeps an eventual concurrent
	// caller safe.
	mu      sync.Mutex
	prevCPU map[int32]procTimes
}

// NewSystem creates a System measuring the given mount point (default
// "/"). If logger is nil, a no-op logger is used.
func NewSystem(diskPath string, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if diskPath == "" {
		diskPath = "/"
	}

	return &System{
		logger:         logger,
		diskPath:       diskPath,
		cpuPercent:     cpu.PercentWithContext,
		virtualMemory:  mem.VirtualMemoryWithContext,
		diskUsage:      disk.UsageWithContext,
		diskIOCounters: disk.IOCountersWithContext,
		netIOCounters:  psnet.IOCountersWithContext,
		uptime:         host.UptimeWithContext,
		pids:           process.PidsWithContext,
		processes:      process.ProcessesWithContext,
		readProc:       readProcess,
		now:            time.Now,
		prevCPU:        make(map[int32]procTimes),
	}
}

// ReadCounters gathers one whole-system reading. Individual counter
// failures degrade to warnings; only when neither CPU nor memory is
// readable does it return an error, since a snapshot without either is
// fabricated data.
func (s *System) ReadCounters(ctx context.Context) (Counters, []string, error) {
	select {
	case <-ctx.Done():
		return Counters{}, nil, ctx.Err()
	default:
	}

	var c Counters
	var warnings []string
	cpuOK, memOK := false, false

	// CPU percentage since the previous call (gopsutil keeps the delta
	// baseline internally; the very first reading reports 0).
	if pct, err := s.cpuPercent(ctx, 0, false); err == nil && len(pct) > 0 {
		c.CPUPercent = clampPercent(pct[0])
		cpuOK = true
	} else if err != nil {
		warnings = append(warnings, fmt.Sprintf("probe: cpu percent: %v", err))
	}

	if vm, err := s.virtualMemory(ctx); err == nil {
		c.RAMPercent = clampPercent(vm.UsedPercent)
		c.RAMUsedBytes = vm.Used
		c.RAMTotalBytes = vm.Total
		memOK = true
	} else {
		warnings = append(warnings, fmt.Sprintf("probe: virtual memory: %v", err))
	}

	if du, err := s.diskUsage(ctx, s.diskPath); err == nil {
		c.DiskPercent = clampPercent(du.UsedPercent)
	} else {
		warnings = append(warnings, fmt.Sprintf("probe: disk usage %s: %v", s.diskPath, err))
	}

	if io, err := s.diskIOCounters(ctx); err == nil {
		for _, dev := range io {
			c.DiskReadBytes += dev.ReadBytes
			c.DiskWriteBytes += dev.WriteBytes
		}
	} else {
		warnings = append(warnings, fmt.Sprintf("probe: disk io counters: %v", err))
	}

	// pernic=false returns a single aggregate entry across interfaces.
	if nio, err := s.netIOCounters(ctx, false); err == nil && len(nio) > 0 {
		c.NetSentBytes = nio[0].BytesSent
		c.NetRecvBytes = nio[0].BytesRecv
	} else if err != nil {
		warnings = append(warnings, fmt.Sprintf("probe: net io counters: %v", err))
	}

	if up, err := s.uptime(ctx); err == nil {
		c.UptimeSeconds = up
	} else {
		warnings = append(warnings, fmt.Sprintf("probe: uptime: %v", err))
	}

	if ids, err := s.pids(ctx); err == nil {
		c.ProcessCount = len(ids)
	} else {
		warnings = append(warnings, fmt.Sprintf("probe: pids: %v", err))
	}

	if !cpuOK && !memOK {
		return Counters{}, warnings, fmt.Errorf("probe: no system counters readable (cpu and memory both failed)")
	}

	return c, warnings, nil
}

// ReadProcesses enumerates live processes and reads name, CPU and
// resident memory for each. Per-process CPU is the growth of the
// process's cumulative CPU time since the previous enumeration; a PID
// seen for the first time reports 0. Unreadable processes are skipped
// and counted, never fatal.
func (s *System) ReadProcesses(ctx context.Context) ([]metrics.ProcessSample, int, error) {
	procs, err := s.processes(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("probe: enumerate processes: %w", err)
	}

	now := s.now()
	samples := make([]metrics.ProcessSample, 0, len(procs))
	seen := make(map[int32]procTimes, len(procs))
	skipped := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range procs {
		name, cpuTotal, rss, err := s.readProc(ctx, p)
		if err != nil {
			// Exited mid-enumeration or permission denied: skip it.
			skipped++
			continue
		}

		var cpuPct float64
		if prev, ok := s.prevCPU[p.Pid]; ok {
			elapsed := now.Sub(prev.at).Seconds()
			if elapsed > 0 && cpuTotal >= prev.total {
				cpuPct = (cpuTotal - prev.total) / elapsed * 100.0
			}
		}
		seen[p.Pid] = procTimes{total: cpuTotal, at: now}

		samples = append(samples, metrics.ProcessSample{
			PID:        p.Pid,
			Name:       name,
			CPUPercent: cpuPct,
			RAMBytes:   rss,
		})
	}

	// Dead PIDs drop out of the baseline map so it cannot grow without
	// bound across process churn.
	s.prevCPU = seen

	if skipped > 0 {
		s.logger.Debug("process enumeration skipped unreadable entries", "skipped", skipped)
	}

	return samples, skipped, nil
}

// HostInfo collects the static host description shown in dashboard
// headers. Failures degrade field by field; it never errors.
func (s *System) HostInfo(ctx context.Context) Host {
	var h Host

	if info, err := host.InfoWithContext(ctx); err == nil {
		h.Hostname = info.Hostname
		h.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		h.CPUModel = infos[0].ModelName
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		h.CPUCount = n
	}
	if vm, err := s.virtualMemory(ctx); err == nil {
		h.RAMTotalBytes = vm.Total
	}

	return h
}

// readProcess pulls the per-process fields from gopsutil. Split out so
// tests can substitute readings keyed by PID.
func readProcess(ctx context.Context, p *process.Process) (string, float64, uint64, error) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return "", 0, 0, err
	}

	times, err := p.TimesWithContext(ctx)
	if err != nil {
		return "", 0, 0, err
	}

	memInfo, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return "", 0, 0, err
	}

	return name, times.User + times.System, memInfo.RSS, nil
}

// clampPercent bounds a percentage reading to [0, 100].
func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Compile-time interface compliance checks.
var (
	_ SystemSource  = (*System)(nil)
	_ ProcessSource = (*System)(nil)
)
