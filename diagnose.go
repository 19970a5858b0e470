package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/config"
	"gitlab.com/tinyland/lab/host-pulse/internal/format"
	"gitlab.com/tinyland/lab/host-pulse/probe"
)

// diagProbeTimeout bounds the preflight probe round.
const diagProbeTimeout = 15 * time.Second

// runDiagnostics checks the environment host-pulse is about to run in:
// the config file, one full probe round, the log and data locations,
// the alert transport settings, and the web listen address. It prints a
// sectioned report and returns the process exit code, 0 only when no
// check failed.
func runDiagnostics(configPath string) int {
	var failed, warned int

	fmt.Println("🔍 host-pulse preflight")
	fmt.Println("============================================================")
	fmt.Println()

	fmt.Println("📁 Configuration")
	fmt.Println("------------------------------------------------------------")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("   Load:     ❌ %v\n", err)
		failed++
		fmt.Println()
		fmt.Println("💡 Fix the configuration file; checks continue with defaults.")
		cfg = config.DefaultConfig()
	} else {
		fmt.Println("   Load:     ✅ OK")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("   Validate: ❌ %v\n", err)
		failed++
	} else {
		fmt.Println("   Validate: ✅ OK")
	}
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn, // only surface real problems during preflight
	}))
	system := probe.NewSystem("", logger)

	ctx, cancel := context.WithTimeout(context.Background(), diagProbeTimeout)
	defer cancel()

	host := system.HostInfo(ctx)
	fmt.Println("📦 Host")
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("   Hostname: %s\n", host.Hostname)
	fmt.Printf("   Platform: %s\n", host.Platform)
	fmt.Printf("   CPU:      %s (%d cores)\n", host.CPUModel, host.CPUCount)
	fmt.Printf("   RAM:      %s\n", format.Bytes(host.RAMTotalBytes))
	fmt.Println()

	fmt.Println("📊 Probe round")
	fmt.Println("------------------------------------------------------------")
	counters, warnings, err := system.ReadCounters(ctx)
	if err != nil {
		fmt.Printf("   Counters:  ❌ %v\n", err)
		failed++
		fmt.Println()
		fmt.Println("💡 No snapshot can be produced on this host; every mode will fail.")
	} else {
		fmt.Printf("   CPU:       ✅ %s\n", format.Percent(counters.CPUPercent))
		fmt.Printf("   RAM:       ✅ %s of %s\n", format.Percent(counters.RAMPercent), format.Bytes(counters.RAMTotalBytes))
		fmt.Printf("   Disk:      ✅ %s\n", format.Percent(counters.DiskPercent))
		fmt.Printf("   Uptime:    ✅ %s\n", format.Uptime(counters.UptimeSeconds))
		for _, w := range warnings {
			fmt.Printf("   ⚠️  %s\n", w)
			warned++
		}
	}
	samples, skipped, err := system.ReadProcesses(ctx)
	if err != nil {
		fmt.Printf("   Processes: ❌ %v\n", err)
		failed++
	} else if skipped > 0 {
		fmt.Printf("   Processes: ✅ %d readable (%d skipped)\n", len(samples), skipped)
	} else {
		fmt.Printf("   Processes: ✅ %d readable\n", len(samples))
	}
	fmt.Println()

	fmt.Println("💾 Files")
	fmt.Println("------------------------------------------------------------")
	if err := checkWritableDir(filepath.Dir(cfg.Log.Path)); err != nil {
		fmt.Printf("   Log %s: ❌ %v\n", cfg.Log.Path, err)
		failed++
	} else if _, err := os.Stat(cfg.Log.Path); err == nil {
		fmt.Printf("   Log %s: ✅ exists, new rows will append\n", cfg.Log.Path)
	} else {
		fmt.Printf("   Log %s: ✅ will be created with a header row\n", cfg.Log.Path)
	}
	if err := checkWritableDir(cfg.Daemon.DataDir); err != nil {
		fmt.Printf("   Data %s: ❌ %v\n", cfg.Daemon.DataDir, err)
		failed++
	} else {
		fmt.Printf("   Data %s: ✅ writable\n", cfg.Daemon.DataDir)
	}
	fmt.Println()

	fmt.Println("🔔 Alerts")
	fmt.Println("------------------------------------------------------------")
	if !cfg.Alerts.Enabled {
		fmt.Println("   Disabled.")
	} else {
		if _, err := time.ParseDuration(cfg.Alerts.Cooldown); err != nil {
			fmt.Printf("   Cooldown: ⚠️  %q is not a duration, %s will be used\n", cfg.Alerts.Cooldown, defaultCooldown)
			warned++
		} else {
			fmt.Printf("   Cooldown: ✅ %s\n", cfg.Alerts.Cooldown)
		}
		if cfg.Alerts.SMTP.Host != "" {
			fmt.Printf("   SMTP:     ✅ %s:%d, from %s to %d recipient(s)\n",
				cfg.Alerts.SMTP.Host, cfg.Alerts.SMTP.Port, cfg.Alerts.SMTP.From, len(cfg.Alerts.SMTP.To))
		}
		if cfg.Alerts.WebhookURL != "" {
			if u, err := url.Parse(cfg.Alerts.WebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				fmt.Printf("   Webhook:  ❌ %q is not an http(s) URL\n", cfg.Alerts.WebhookURL)
				failed++
			} else {
				fmt.Printf("   Webhook:  ✅ %s\n", cfg.Alerts.WebhookURL)
			}
		}
		if cfg.Alerts.SMTP.Host == "" && cfg.Alerts.WebhookURL == "" {
			fmt.Println("   Transport: ⚠️  none configured, breaches go to the log only")
			warned++
		}
		fmt.Println()
		fmt.Println("💡 Preflight checks transport shape, not reachability; delivery is only attempted on a live breach.")
	}
	fmt.Println()

	fmt.Println("🌐 Web dashboard")
	fmt.Println("------------------------------------------------------------")
	if ln, err := net.Listen("tcp", cfg.Web.Listen); err != nil {
		fmt.Printf("   Listen %s: ⚠️  %v (daemon already running?)\n", cfg.Web.Listen, err)
		warned++
	} else {
		ln.Close()
		fmt.Printf("   Listen %s: ✅ available\n", cfg.Web.Listen)
	}
	fmt.Println()

	fmt.Println("============================================================")
	if failed > 0 {
		fmt.Printf("❌ Preflight failed: %d problem(s), %d warning(s).\n", failed, warned)
		return 1
	}
	if warned > 0 {
		fmt.Printf("⚠️  Preflight passed with %d warning(s).\n", warned)
		return 0
	}
	fmt.Println("✨ All preflight checks passed.")
	return 0
}

// checkWritableDir verifies dir accepts a new file, creating the
// directory when it is missing.
func checkWritableDir(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
