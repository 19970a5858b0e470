package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/config"
	"gitlab.com/tinyland/lab/host-pulse/csvlog"
	"gitlab.com/tinyland/lab/host-pulse/metrics"
	"gitlab.com/tinyland/lab/host-pulse/sampler"
	"gitlab.com/tinyland/lab/host-pulse/web"
)

// healthWriteInterval is the cadence of daemon health file writes. The
// -health command treats a file older than twice this as stale.
const healthWriteInterval = 15 * time.Second

// daemon runs the sampling core headless: no UI attaches, the CSV log
// and alert notifier consume every cycle, and a PID file plus a
// periodic health file make the process observable from outside. The
// browser dashboard is served alongside when web.enabled is set.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	pipe   *sampler.Pipeline
	writer *csvlog.Writer
	web    *web.Server // nil unless the dashboard is enabled

	pidFile   string
	startedAt time.Time

	// Cycle bookkeeping for the health file. Only run touches these.
	cycles    uint64
	lastCycle time.Time
}

// newDaemon wires a daemon from the configuration: probes, alert
// notifier, durable log, and optionally the web dashboard.
func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	pipe, system, _, writer, err := buildPipeline(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}

	d := &daemon{
		cfg:     cfg,
		logger:  logger,
		pipe:    pipe,
		writer:  writer,
		pidFile: cfg.PIDFile(),
	}

	if cfg.Web.Enabled {
		host := system.HostInfo(context.Background())
		d.web = web.NewServer(cfg.Web.Listen, pipe, host, writer.Path(), logger)
	}

	return d, nil
}

// writePIDFile writes the current process PID to {DataDir}/host-pulse.pid.
func (d *daemon) writePIDFile() error {
	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0o755); err != nil {
		return fmt.Errorf("create PID file directory: %w", err)
	}
	pid := os.Getpid()
	if err := os.WriteFile(d.pidFile, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	d.logger.Info("wrote PID file", "path", d.pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file on shutdown.
func (d *daemon) removePIDFile() {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		d.logger.Error("failed to remove PID file", "path", d.pidFile, "error", err)
		return
	}
	d.logger.Info("removed PID file", "path", d.pidFile)
}

// isRunning checks whether another daemon instance is already running
// by reading the PID file and probing the process. A corrupt or stale
// PID file is cleaned up so a crashed daemon never blocks the next one.
func (d *daemon) isRunning() (bool, int) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		d.logger.Warn("corrupt PID file, removing", "path", d.pidFile, "content", string(data))
		os.Remove(d.pidFile)
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		// On Unix FindProcess never fails, but handle it anyway.
		os.Remove(d.pidFile)
		return false, 0
	}

	// Signal 0 probes for existence without touching the process.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		d.logger.Warn("stale PID file, removing", "path", d.pidFile, "pid", pid)
		os.Remove(d.pidFile)
		return false, 0
	}

	return true, pid
}

// run starts the daemon. It refuses to start twice, claims the PID
// file, brings up the optional dashboard, then drives the sampling
// pipeline until the context is cancelled or the pipeline fails.
func (d *daemon) run(ctx context.Context) error {
	if running, pid := d.isRunning(); running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	defer d.removePIDFile()

	d.startedAt = time.Now()

	if d.web != nil {
		if err := d.web.Start(); err != nil {
			return fmt.Errorf("daemon: %w", err)
		}
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- d.pipe.Run(ctx)
	}()

	sub := d.pipe.Subscribe()
	defer d.pipe.Unsubscribe(sub)

	ticker := time.NewTicker(healthWriteInterval)
	defer ticker.Stop()

	d.writeHealth()

	for {
		select {
		case err := <-runErr:
			d.shutdown()
			return err
		case snap := <-sub:
			d.cycles++
			d.lastCycle = snap.Timestamp
		case <-ticker.C:
			d.writeHealth()
		}
	}
}

// shutdown stops the dashboard, drains the log writer, and retires the
// health file so a clean exit reads as "not running" rather than stale.
func (d *daemon) shutdown() {
	d.logger.Info("daemon shutting down", "cycles", d.cycles)

	if d.web != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := d.web.Shutdown(ctx); err != nil {
			d.logger.Error("web shutdown failed", "error", err)
		}
		cancel()
	}

	if err := d.writer.Close(); err != nil {
		d.logger.Error("log writer close failed", "error", err)
	}

	path := filepath.Join(d.cfg.Daemon.DataDir, healthFile)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove health file", "path", path, "error", err)
	}
}

// writeHealth publishes the daemon's liveness for the -health command.
func (d *daemon) writeHealth() {
	st := HealthStatus{
		Status:    "ok",
		PID:       os.Getpid(),
		Version:   version,
		StartedAt: d.startedAt,
		WrittenAt: time.Now(),
		Cycles:    d.cycles,
	}
	if !d.lastCycle.IsZero() {
		st.LastCycle = d.lastCycle.Format(metrics.TimestampLayout)
	}
	if err := writeHealthFile(d.cfg.Daemon.DataDir, st); err != nil {
		d.logger.Warn("health file write failed", "error", err)
	}
}
