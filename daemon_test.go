package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// newTestDaemon builds a daemon against a temporary data directory.
// The log writer is closed on cleanup; closing twice is safe.
func newTestDaemon(t *testing.T) *daemon {
	t.Helper()

	d, err := newDaemon(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("newDaemon() error: %v", err)
	}
	t.Cleanup(func() { d.writer.Close() })
	return d
}

func TestNewDaemon(t *testing.T) {
	d := newTestDaemon(t)

	if d.pipe == nil {
		t.Error("daemon.pipe is nil")
	}
	if d.writer == nil {
		t.Error("daemon.writer is nil")
	}
	if d.web != nil {
		t.Error("daemon.web should be nil when the dashboard is disabled")
	}
	if d.pidFile == "" {
		t.Error("daemon.pidFile is empty")
	}
}

func TestNewDaemon_WebEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Web.Enabled = true
	cfg.Web.Listen = "127.0.0.1:0"

	d, err := newDaemon(cfg, testLogger())
	if err != nil {
		t.Fatalf("newDaemon() error: %v", err)
	}
	defer d.writer.Close()

	if d.web == nil {
		t.Error("daemon.web is nil with the dashboard enabled")
	}
}

func TestDaemon_WritePIDFile(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.writePIDFile(); err != nil {
		t.Fatalf("writePIDFile() error: %v", err)
	}

	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("PID file contains non-integer: %q", string(data))
	}
	if pid != os.Getpid() {
		t.Errorf("PID file contains %d, want %d", pid, os.Getpid())
	}
}

func TestDaemon_RemovePIDFile(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.writePIDFile(); err != nil {
		t.Fatalf("writePIDFile() error: %v", err)
	}
	d.removePIDFile()

	if _, err := os.Stat(d.pidFile); !os.IsNotExist(err) {
		t.Errorf("PID file still exists after removePIDFile(); err = %v", err)
	}
}

func TestDaemon_IsRunning_NoFile(t *testing.T) {
	d := newTestDaemon(t)

	running, pid := d.isRunning()
	if running {
		t.Error("isRunning() = true, want false with no PID file")
	}
	if pid != 0 {
		t.Errorf("isRunning() pid = %d, want 0", pid)
	}
}

func TestDaemon_IsRunning_CurrentProcess(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.writePIDFile(); err != nil {
		t.Fatalf("writePIDFile() error: %v", err)
	}

	running, pid := d.isRunning()
	if !running {
		t.Error("isRunning() = false, want true for the current process")
	}
	if pid != os.Getpid() {
		t.Errorf("isRunning() pid = %d, want %d", pid, os.Getpid())
	}
}

func TestDaemon_IsRunning_StaleProcess(t *testing.T) {
	d := newTestDaemon(t)

	// A very high PID that is almost certainly not a live process.
	stalePID := 4999999
	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0o755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(d.pidFile, []byte(strconv.Itoa(stalePID)), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	running, pid := d.isRunning()
	if running {
		t.Errorf("isRunning() = true, want false for stale PID %d", stalePID)
	}
	if pid != 0 {
		t.Errorf("isRunning() pid = %d, want 0 for a stale process", pid)
	}
	if _, err := os.Stat(d.pidFile); !os.IsNotExist(err) {
		t.Error("stale PID file was not cleaned up")
	}
}

func TestDaemon_IsRunning_CorruptFile(t *testing.T) {
	d := newTestDaemon(t)

	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0o755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(d.pidFile, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	running, _ := d.isRunning()
	if running {
		t.Error("isRunning() = true, want false for a corrupt PID file")
	}
	if _, err := os.Stat(d.pidFile); !os.IsNotExist(err) {
		t.Error("corrupt PID file was not cleaned up")
	}
}

func TestDaemon_Run_AlreadyRunning(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.writePIDFile(); err != nil {
		t.Fatalf("writePIDFile() error: %v", err)
	}
	defer d.removePIDFile()

	err := d.run(context.Background())
	if err == nil {
		t.Fatal("run() should fail when the daemon is already running")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("run() error = %q, want it to mention 'already running'", err.Error())
	}
}

func TestDaemon_WriteHealth(t *testing.T) {
	d := newTestDaemon(t)
	d.startedAt = time.Now().Add(-time.Minute)
	d.cycles = 42
	d.lastCycle = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	d.writeHealth()

	status, err := readHealthFile(d.cfg.Daemon.DataDir)
	if err != nil {
		t.Fatalf("readHealthFile() error: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("status = %q, want %q", status.Status, "ok")
	}
	if status.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", status.PID, os.Getpid())
	}
	if status.Cycles != 42 {
		t.Errorf("cycles = %d, want 42", status.Cycles)
	}
	if status.LastCycle != "2026-03-14T15:09:26" {
		t.Errorf("last_cycle = %q, want %q", status.LastCycle, "2026-03-14T15:09:26")
	}
	if status.Version != version {
		t.Errorf("version = %q, want %q", status.Version, version)
	}
}

func TestDaemon_RunAndShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sample.Interval = "100ms"

	d, err := newDaemon(cfg, testLogger())
	if err != nil {
		t.Fatalf("newDaemon() error: %v", err)
	}
	defer d.writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx) }()

	// The PID and health files appear once the daemon has started.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(d.pidFile); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("PID file never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := readHealthFile(cfg.Daemon.DataDir); err != nil {
		t.Errorf("health file not written: %v", err)
	}

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after cancel")
	}

	if _, err := os.Stat(d.pidFile); !os.IsNotExist(err) {
		t.Error("PID file not removed on shutdown")
	}
	if _, err := readHealthFile(cfg.Daemon.DataDir); err == nil {
		t.Error("health file not removed on shutdown")
	}
	if _, err := os.Stat(cfg.Log.Path); err != nil {
		t.Errorf("CSV log missing after run: %v", err)
	}
}
