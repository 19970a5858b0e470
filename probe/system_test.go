package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// newFakeSystem returns a System whose gopsutil entry points all succeed
// with fixed values. Individual tests override what they need.
func newFakeSystem() *System {
	s := NewSystem("/", nil)

	s.cpuPercent = func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error) {
		return []float64{42.5}, nil
	}
	s.virtualMemory = func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 16 << 30, Used: 8 << 30, UsedPercent: 50.0}, nil
	}
	s.diskUsage = func(ctx context.Context, path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{UsedPercent: 63.2}, nil
	}
	s.diskIOCounters = func(ctx context.Context, names ...string) (map[string]disk.IOCountersStat, error) {
		return map[string]disk.IOCountersStat{
			"sda": {ReadBytes: 1000, WriteBytes: 2000},
			"sdb": {ReadBytes: 500, WriteBytes: 700},
		}, nil
	}
	s.netIOCounters = func(ctx context.Context, pernic bool) ([]psnet.IOCountersStat, error) {
		return []psnet.IOCountersStat{{BytesSent: 11111, BytesRecv: 22222}}, nil
	}
	s.uptime = func(ctx context.Context) (uint64, error) {
		return 3600, nil
	}
	s.pids = func(ctx context.Context) ([]int32, error) {
		return []int32{1, 2, 3, 4}, nil
	}

	return s
}

// TestReadCountersMapsValues verifies one full reading maps every
// gopsutil value onto the Counters struct.
func TestReadCountersMapsValues(t *testing.T) {
	s := newFakeSystem()

	c, warnings, err := s.ReadCounters(context.Background())
	if err != nil {
		t.Fatalf("ReadCounters error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	if c.CPUPercent != 42.5 {
		t.Errorf("CPUPercent = %f, want 42.5", c.CPUPercent)
	}
	if c.RAMPercent != 50.0 {
		t.Errorf("RAMPercent = %f, want 50.0", c.RAMPercent)
	}
	if c.RAMUsedBytes != 8<<30 || c.RAMTotalBytes != 16<<30 {
		t.Errorf("RAM used/total = %d/%d, want %d/%d", c.RAMUsedBytes, c.RAMTotalBytes, uint64(8<<30), uint64(16<<30))
	}
	if c.DiskPercent != 63.2 {
		t.Errorf("DiskPercent = %f, want 63.2", c.DiskPercent)
	}

	// Disk IO sums across devices.
	if c.DiskReadBytes != 1500 {
		t.Errorf("DiskReadBytes = %d, want 1500", c.DiskReadBytes)
	}
	if c.DiskWriteBytes != 2700 {
		t.Errorf("DiskWriteBytes = %d, want 2700", c.DiskWriteBytes)
	}

	if c.NetSentBytes != 11111 || c.NetRecvBytes != 22222 {
		t.Errorf("net sent/recv = %d/%d, want 11111/22222", c.NetSentBytes, c.NetRecvBytes)
	}
	if c.UptimeSeconds != 3600 {
		t.Errorf("UptimeSeconds = %d, want 3600", c.UptimeSeconds)
	}
	if c.ProcessCount != 4 {
		t.Errorf("ProcessCount = %d, want 4", c.ProcessCount)
	}
}

// TestReadCountersClampsPercent verifies out-of-range readings are
// bounded to [0,100].
func TestReadCountersClampsPercent(t *testing.T) {
	s := newFakeSystem()
	s.cpuPercent = func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error) {
		return []float64{104.7}, nil
	}

	c, _, err := s.ReadCounters(context.Background())
	if err != nil {
		t.Fatalf("ReadCounters error: %v", err)
	}
	if c.CPUPercent != 100 {
		t.Errorf("CPUPercent = %f, want 100 (clamped)", c.CPUPercent)
	}
}

// TestReadCountersPartialFailure verifies a single failing counter
// degrades to a warning while the rest of the reading survives.
func TestReadCountersPartialFailure(t *testing.T) {
	s := newFakeSystem()
	s.diskUsage = func(ctx context.Context, path string) (*disk.UsageStat, error) {
		return nil, errors.New("mount gone")
	}

	c, warnings, err := s.ReadCounters(context.Background())
	if err != nil {
		t.Fatalf("ReadCounters error: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
	if c.DiskPercent != 0 {
		t.Errorf("DiskPercent = %f, want 0 on failure", c.DiskPercent)
	}
	if c.CPUPercent != 42.5 {
		t.Errorf("CPUPercent = %f, want 42.5 (unaffected)", c.CPUPercent)
	}
}

// TestReadCountersVitalFailure verifies that losing both CPU and memory
// is fatal: a snapshot without either would be fabricated data.
func TestReadCountersVitalFailure(t *testing.T) {
	s := newFakeSystem()
	s.cpuPercent = func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error) {
		return nil, errors.New("cpu broken")
	}
	s.virtualMemory = func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("mem broken")
	}

	_, _, err := s.ReadCounters(context.Background())
	if err == nil {
		t.Fatal("expected error when cpu and memory both fail")
	}
}

// TestReadCountersCancelled verifies context cancellation is honored.
func TestReadCountersCancelled(t *testing.T) {
	s := newFakeSystem()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.ReadCounters(ctx)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

// TestReadProcessesCPUDelta verifies per-process CPU is derived from the
// growth in cumulative CPU time between enumerations, reporting 0 for a
// PID's first observation.
func TestReadProcessesCPUDelta(t *testing.T) {
	s := NewSystem("/", nil)

	t0 := time.Unix(1000, 0)
	clock := t0
	s.now = func() time.Time { return clock }

	s.processes = func(ctx context.Context) ([]*process.Process, error) {
		return []*process.Process{{Pid: 7}}, nil
	}

	cpuTotal := 10.0
	s.readProc = func(ctx context.Context, p *process.Process) (string, float64, uint64, error) {
		return "worker", cpuTotal, 4096, nil
	}

	samples, skipped, err := s.ReadProcesses(context.Background())
	if err != nil {
		t.Fatalf("first ReadProcesses error: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(samples) != 1 {
		t.Fatalf("samples len = %d, want 1", len(samples))
	}
	if samples[0].CPUPercent != 0 {
		t.Errorf("first observation CPU = %f, want 0", samples[0].CPUPercent)
	}
	if samples[0].Name != "worker" || samples[0].RAMBytes != 4096 {
		t.Errorf("sample = %+v, want name worker rss 4096", samples[0])
	}

	// One second later the process consumed 0.5s more CPU time: 50%.
	clock = t0.Add(1 * time.Second)
	cpuTotal = 10.5

	samples, _, err = s.ReadProcesses(context.Background())
	if err != nil {
		t.Fatalf("second ReadProcesses error: %v", err)
	}
	if got := samples[0].CPUPercent; got < 49.9 || got > 50.1 {
		t.Errorf("second observation CPU = %f, want ~50", got)
	}
}

// TestReadProcessesSkipsUnreadable verifies one unreadable process is
// skipped and counted without aborting the enumeration.
func TestReadProcessesSkipsUnreadable(t *testing.T) {
	s := NewSystem("/", nil)
	s.processes = func(ctx context.Context) ([]*process.Process, error) {
		return []*process.Process{{Pid: 1}, {Pid: 2}, {Pid: 3}}, nil
	}
	s.readProc = func(ctx context.Context, p *process.Process) (string, float64, uint64, error) {
		if p.Pid == 2 {
			return "", 0, 0, errors.New("no such process")
		}
		return "ok", 1.0, 100, nil
	}

	samples, skipped, err := s.ReadProcesses(context.Background())
	if err != nil {
		t.Fatalf("ReadProcesses error: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(samples) != 2 {
		t.Errorf("samples len = %d, want 2", len(samples))
	}
	for _, smp := range samples {
		if smp.PID == 2 {
			t.Errorf("unreadable PID 2 present in samples")
		}
	}
}

// TestReadProcessesPrunesBaseline verifies a PID that disappears loses
// its CPU baseline, so a recycled PID starts over at 0.
func TestReadProcessesPrunesBaseline(t *testing.T) {
	s := NewSystem("/", nil)

	t0 := time.Unix(1000, 0)
	clock := t0
	s.now = func() time.Time { return clock }

	listed := []*process.Process{{Pid: 9}}
	s.processes = func(ctx context.Context) ([]*process.Process, error) {
		return listed, nil
	}
	s.readProc = func(ctx context.Context, p *process.Process) (string, float64, uint64, error) {
		return "p", 100.0, 1, nil
	}

	if _, _, err := s.ReadProcesses(context.Background()); err != nil {
		t.Fatalf("first ReadProcesses error: %v", err)
	}

	// PID 9 vanishes for one cycle.
	listed = nil
	clock = t0.Add(1 * time.Second)
	if _, _, err := s.ReadProcesses(context.Background()); err != nil {
		t.Fatalf("second ReadProcesses error: %v", err)
	}

	// PID 9 returns with lower cumulative CPU time; without pruning this
	// would be a negative delta, with pruning it is a fresh 0.
	listed = []*process.Process{{Pid: 9}}
	clock = t0.Add(2 * time.Second)
	samples, _, err := s.ReadProcesses(context.Background())
	if err != nil {
		t.Fatalf("third ReadProcesses error: %v", err)
	}
	if samples[0].CPUPercent != 0 {
		t.Errorf("recycled PID CPU = %f, want 0", samples[0].CPUPercent)
	}
}

// TestReadProcessesEnumerationError verifies a failed enumeration is an
// error distinct from per-process skips.
func TestReadProcessesEnumerationError(t *testing.T) {
	s := NewSystem("/", nil)
	s.processes = func(ctx context.Context) ([]*process.Process, error) {
		return nil, errors.New("proc unavailable")
	}

	_, _, err := s.ReadProcesses(context.Background())
	if err == nil {
		t.Fatal("expected error from failed enumeration")
	}
}
