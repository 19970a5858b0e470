// Package sampler drives the collection pipeline: it reads the OS
// probes on a fixed cadence, derives rates from cumulative counters,
// maintains the visualization history, and hands each completed
// snapshot to the alerting, logging, and presentation consumers. The
// pipeline owns all mutable collection state; nothing here is a
// package-level global.
package sampler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/csvlog"
	"gitlab.com/tinyland/lab/host-pulse/metrics"
	"gitlab.com/tinyland/lab/host-pulse/probe"
	"gitlab.com/tinyland/lab/host-pulse/telemetry"
)

// History series names, shared with the dashboard consumers. Rates are
// stored in bytes per second and converted at presentation time.
const (
	KeyCPU         = "cpu"
	KeyRAM         = "ram"
	KeyDisk        = "disk"
	KeyNetSent     = "net_sent"
	KeyNetRecv     = "net_recv"
	KeyDiskRead    = "disk_read"
	KeyDiskWrite   = "disk_write"
	KeyFilteredCPU = "filtered_cpu"
	KeyFilteredRAM = "filtered_ram"
)

const (
	// defaultInterval is the collection cadence when none is configured.
	defaultInterval = time.Second
	// defaultHistoryCapacity bounds each history series.
	defaultHistoryCapacity = 200
	// defaultTopK is the length of the top-process lists.
	defaultTopK = 20
	// subscriberBuffer is the per-subscriber channel depth; a consumer
	// that falls further behind loses frames rather than stalling the
	// cycle.
	subscriberBuffer = 8
)

// Config holds the collection cycle settings, fixed for the pipeline's
// lifetime.
type Config struct {
	// Interval is the target gap between cycle starts.
	Interval time.Duration
	// HistoryCapacity is the per-metric ring buffer size.
	HistoryCapacity int
	// ProcessFilter is an optional case-insensitive substring matched
	// against process names for the filtered aggregate.
	ProcessFilter string
	// TopK is how many processes the top-by-CPU and top-by-RAM lists keep.
	TopK int
}

// Alerter inspects each completed snapshot for threshold breaches.
type Alerter interface {
	Check(snap metrics.Snapshot)
}

// Recorder receives one durable log record per cycle.
type Recorder interface {
	Enqueue(rec csvlog.Record)
}

// Deps are the pipeline's collaborators. System and Procs are required;
// a nil Alerts or Log simply disables that consumer.
type Deps struct {
	System probe.SystemSource
	Procs  probe.ProcessSource
	Alerts Alerter
	Log    Recorder
	Logger *slog.Logger
}

// Pipeline owns one host's collection state: the rate baselines, the
// history buffers, and the latest snapshot. A single goroutine (Run)
// mutates it; consumers read through copies.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	system probe.SystemSource
	procs  probe.ProcessSource
	alerts Alerter
	log    Recorder

	rates   *metrics.RateCounter
	history *metrics.HistoryStore

	mu      sync.RWMutex
	latest  metrics.Snapshot
	hasSnap bool
	subs    []chan metrics.Snapshot

	now func() time.Time
}

// New builds a pipeline from cfg and deps, applying defaults for
// unset cycle settings.
func New(cfg Config, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.HistoryCapacity < 1 {
		cfg.HistoryCapacity = defaultHistoryCapacity
	}
	if cfg.TopK < 1 {
		cfg.TopK = defaultTopK
	}

	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		system:  deps.System,
		procs:   deps.Procs,
		alerts:  deps.Alerts,
		log:     deps.Log,
		rates:   metrics.NewRateCounter(),
		history: metrics.NewHistoryStore(cfg.HistoryCapacity),
		now:     time.Now,
	}
}

// Config returns the normalized cycle settings.
func (p *Pipeline) Config() Config { return p.cfg }

// History exposes the visualization buffers. The store hands out copies,
// so sharing it with dashboard consumers is safe.
func (p *Pipeline) History() *metrics.HistoryStore { return p.history }

// Latest returns the most recent snapshot, and false before the first
// cycle has completed.
func (p *Pipeline) Latest() (metrics.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.hasSnap
}

// Subscribe registers a consumer for completed snapshots. The channel is
// buffered; a consumer that stops draining loses frames, it never blocks
// the cycle.
func (p *Pipeline) Subscribe() <-chan metrics.Snapshot {
	ch := make(chan metrics.Snapshot, subscriberBuffer)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (p *Pipeline) Unsubscribe(ch <-chan metrics.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.subs {
		if sub == ch {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Run executes collection cycles until ctx is cancelled. Each cycle
// measures its own duration and sleeps for the remainder of the
// interval, so a slow cycle compresses the following sleep; the
// schedule never skips and does not compensate for accumulated drift.
// A cycle that cannot produce a snapshot at all ends the run.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("sampler started",
		"interval", p.cfg.Interval.String(),
		"history_capacity", p.cfg.HistoryCapacity,
		"filter", p.cfg.ProcessFilter,
	)

	for {
		start := p.now()
		snap, err := p.cycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("sampler stopped")
				return ctx.Err()
			}
			return err
		}
		p.emit(snap, p.now().Sub(start))

		wait := p.cfg.Interval - p.now().Sub(start)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("sampler stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunOnce performs a single observation: a baseline pass to seed the
// rate and per-process CPU state, a wait of one interval, then a full
// cycle whose snapshot is returned. Without the baseline pass every
// rate and CPU percentage would read zero.
func (p *Pipeline) RunOnce(ctx context.Context) (metrics.Snapshot, error) {
	if _, err := p.cycle(ctx); err != nil {
		return metrics.Snapshot{}, err
	}

	timer := time.NewTimer(p.cfg.Interval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return metrics.Snapshot{}, ctx.Err()
	case <-timer.C:
	}

	start := p.now()
	snap, err := p.cycle(ctx)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	p.emit(snap, p.now().Sub(start))
	return snap, nil
}

// cycle performs one collection pass and builds the snapshot. It has no
// side effects on the consumers; emit publishes the result.
func (p *Pipeline) cycle(ctx context.Context) (metrics.Snapshot, error) {
	counters, warnings, err := p.system.ReadCounters(ctx)
	if err != nil {
		return metrics.Snapshot{}, fmt.Errorf("sampler: system counters: %w", err)
	}
	for _, w := range warnings {
		p.logger.Warn("probe warning", "warning", w)
	}

	t := p.now()
	netSent := p.rates.Update(KeyNetSent, counters.NetSentBytes, t)
	netRecv := p.rates.Update(KeyNetRecv, counters.NetRecvBytes, t)
	diskRead := p.rates.Update(KeyDiskRead, counters.DiskReadBytes, t)
	diskWrite := p.rates.Update(KeyDiskWrite, counters.DiskWriteBytes, t)

	procs, skipped, procErr := p.procs.ReadProcesses(ctx)
	if procErr != nil {
		// Losing one cycle's process detail degrades the snapshot, it
		// does not abort it.
		p.logger.Warn("process enumeration failed", "error", procErr)
		procs = nil
	}
	if skipped > 0 {
		telemetry.ProcessScanSkips.Add(float64(skipped))
	}

	var filteredCPU float64
	var filteredRAM uint64
	for _, pr := range procs {
		if metrics.MatchesFilter(pr.Name, p.cfg.ProcessFilter) {
			filteredCPU += pr.CPUPercent
			filteredRAM += pr.RAMBytes
		}
	}

	return metrics.Snapshot{
		Timestamp:          t.Truncate(time.Second),
		CPUPercent:         counters.CPUPercent,
		RAMPercent:         counters.RAMPercent,
		DiskPercent:        counters.DiskPercent,
		RAMUsedBytes:       counters.RAMUsedBytes,
		RAMTotalBytes:      counters.RAMTotalBytes,
		NetSentRate:        netSent,
		NetRecvRate:        netRecv,
		DiskReadRate:       diskRead,
		DiskWriteRate:      diskWrite,
		ProcessCount:       counters.ProcessCount,
		UptimeSeconds:      counters.UptimeSeconds,
		FilteredCPUPercent: filteredCPU,
		FilteredRAMBytes:   filteredRAM,
		TopByCPU:           metrics.TopByCPU(procs, p.cfg.TopK),
		TopByRAM:           metrics.TopByRAM(procs, p.cfg.TopK),
	}, nil
}

// emit publishes one completed snapshot to every consumer: history,
// alerting, the durable log, subscribers, and the telemetry mirrors.
func (p *Pipeline) emit(snap metrics.Snapshot, duration time.Duration) {
	p.history.PushAll(map[string]float64{
		KeyCPU:         snap.CPUPercent,
		KeyRAM:         snap.RAMPercent,
		KeyDisk:        snap.DiskPercent,
		KeyNetSent:     snap.NetSentRate,
		KeyNetRecv:     snap.NetRecvRate,
		KeyDiskRead:    snap.DiskReadRate,
		KeyDiskWrite:   snap.DiskWriteRate,
		KeyFilteredCPU: snap.FilteredCPUPercent,
		KeyFilteredRAM: float64(snap.FilteredRAMBytes),
	})

	if p.alerts != nil {
		p.alerts.Check(snap)
	}
	if p.log != nil {
		p.log.Enqueue(csvlog.FromSnapshot(snap))
	}

	p.publish(snap)
	telemetry.ObserveCycle(snap, duration)
}

// publish stores the snapshot as latest and fans it out with
// non-blocking sends. Holding the lock across the sends keeps them
// ordered against Unsubscribe closing a channel; they cannot stall
// because a full buffer drops the frame instead.
func (p *Pipeline) publish(snap metrics.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest = snap
	p.hasSnap = true
	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
			telemetry.SubscriberDrops.Inc()
		}
	}
}
