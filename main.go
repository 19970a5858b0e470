// host-pulse is a single-host telemetry collector and dashboard.
//
// It samples CPU, memory, disk, network, and process activity on a
// fixed cadence, keeps a bounded in-memory history per metric, appends
// one CSV row per cycle to a durable log, and raises threshold alerts
// through SMTP or webhook transports with a cooldown. One sampling
// pipeline feeds every front-end: an interactive Bubbletea dashboard,
// a browser dashboard with a live websocket stream, and a headless
// daemon for unattended hosts.
//
// Usage:
//
//	host-pulse [flags]
//
// Flags:
//
//	-tui            Launch the interactive terminal dashboard (default on a TTY)
//	-web            Serve the browser dashboard in the foreground
//	-daemon         Run the headless sampling daemon
//	-once           Collect a single sample, print a summary, and exit
//	-health         Check daemon health status
//	-json           Output the health check as JSON (with -health)
//	-diagnose       Run environment preflight checks and exit
//	-config string  Path to configuration file (default: ~/.config/host-pulse/config.yaml)
//	-filter string  Process name filter override
//	-listen string  Web dashboard listen address override
//	-theme string   Dashboard theme override (dark|light)
//	-verbose        Enable verbose logging
//	-version        Print version and exit
//	-man            Print the man page in roff format and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"gitlab.com/tinyland/lab/host-pulse/config"
	"gitlab.com/tinyland/lab/host-pulse/display/tui"
	"gitlab.com/tinyland/lab/host-pulse/docs/manpage"
	"gitlab.com/tinyland/lab/host-pulse/web"
)

const (
	// defaultSampleInterval is the fallback when sample.interval is
	// missing or malformed.
	defaultSampleInterval = time.Second

	// defaultCooldown is the fallback when alerts.cooldown is missing
	// or malformed.
	defaultCooldown = 5 * time.Minute

	// shutdownTimeout bounds the graceful web server stop.
	shutdownTimeout = 5 * time.Second
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file (default: ~/.config/host-pulse/config.yaml)")
		tuiFlag     = flag.Bool("tui", false, "Launch the interactive terminal dashboard")
		webFlag     = flag.Bool("web", false, "Serve the browser dashboard in the foreground")
		daemonFlag  = flag.Bool("daemon", false, "Run the headless sampling daemon")
		onceFlag    = flag.Bool("once", false, "Collect a single sample, print a summary, and exit")
		healthFlag  = flag.Bool("health", false, "Check daemon health status")
		healthJSON  = flag.Bool("json", false, "Output the health check as JSON (with -health)")
		diagnose    = flag.Bool("diagnose", false, "Run environment preflight checks and exit")
		filterFlag  = flag.String("filter", "", "Process name filter override")
		listenFlag  = flag.String("listen", "", "Web dashboard listen address override")
		themeFlag   = flag.String("theme", "", "Dashboard theme override (dark|light)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showMan     = flag.Bool("man", false, "Print the man page in roff format and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("host-pulse %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	if *showMan {
		fmt.Print(manpage.Generate(version, commit, date))
		os.Exit(0)
	}

	// Preflight runs before the fatal config checks below so that a
	// broken config file is something it can report rather than die on.
	if *diagnose {
		os.Exit(runDiagnostics(*configPath))
	}

	// ---------------------------------------------------------------
	// Load configuration
	// ---------------------------------------------------------------

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Apply CLI overrides before validation so a bad override is
	// rejected the same way a bad file value is.
	if *filterFlag != "" {
		cfg.Sample.ProcessFilter = *filterFlag
	}
	if *listenFlag != "" {
		cfg.Web.Listen = *listenFlag
	}
	if *themeFlag != "" {
		cfg.Theme = *themeFlag
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// ---------------------------------------------------------------
	// Health check
	// ---------------------------------------------------------------

	if *healthFlag {
		os.Exit(checkHealth(cfg.Daemon.DataDir, healthWriteInterval, *healthJSON))
	}

	// Default mode: the terminal dashboard when stdout is a TTY,
	// usage otherwise.
	wantTUI := *tuiFlag
	if !wantTUI && !*webFlag && !*daemonFlag && !*onceFlag {
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			wantTUI = true
		} else {
			fmt.Printf("host-pulse %s (%s) built %s\n", version, commit, date)
			fmt.Println()
			fmt.Println("Usage: host-pulse [flags]")
			fmt.Println()
			flag.PrintDefaults()
			os.Exit(0)
		}
	}

	logger := buildLogger(*verbose, wantTUI)

	// ---------------------------------------------------------------
	// Context with signal handling
	// ---------------------------------------------------------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// ---------------------------------------------------------------
	// One-shot mode
	// ---------------------------------------------------------------

	if *onceFlag {
		pipe, system := buildPeekPipeline(cfg, logger)
		snap, err := pipe.RunOnce(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sample failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(renderSummary(system.HostInfo(ctx), snap, cfg.Sample.ProcessFilter, detectWidth()))
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Web mode
	// ---------------------------------------------------------------

	if *webFlag {
		pipe, system, _, writer, err := buildPipeline(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
			os.Exit(1)
		}

		srv := web.NewServer(cfg.Web.Listen, pipe, system.HostInfo(ctx), writer.Path(), logger)
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "web server failed: %v\n", err)
			os.Exit(1)
		}

		runErr := pipe.Run(ctx)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("web shutdown failed", "error", err)
		}
		shutdownCancel()
		if err := writer.Close(); err != nil {
			logger.Error("log writer close failed", "error", err)
		}

		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			fmt.Fprintf(os.Stderr, "sampler error: %v\n", runErr)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Daemon mode
	// ---------------------------------------------------------------

	if *daemonFlag {
		d, err := newDaemon(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "daemon init failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "starting host-pulse daemon v%s\n", version)
		if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// TUI mode
	// ---------------------------------------------------------------

	if wantTUI {
		defer func() {
			if r := recover(); r != nil {
				// Attempt to restore the terminal from the alt screen
				// before printing the error.
				fmt.Print("\x1b[?1049l\x1b[?25h")
				fmt.Fprintf(os.Stderr, "host-pulse: TUI panic: %v\n", r)
				os.Exit(1)
			}
		}()

		pipe, system, notifier, writer, err := buildPipeline(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
			os.Exit(1)
		}

		model := tui.NewModel(buildTUIOptions(ctx, cfg, pipe, system, notifier))
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

		// A pipeline that dies takes the dashboard down with it; a
		// cancelled context is the dashboard quitting first.
		runErrCh := make(chan error, 1)
		go func() {
			if err := pipe.Run(ctx); err != nil && ctx.Err() == nil {
				runErrCh <- err
				p.Quit()
			}
		}()

		// Bridge goroutine: convert completed snapshots into Bubbletea
		// messages.
		sub := pipe.Subscribe()
		go func() {
			for snap := range sub {
				p.Send(tui.SnapshotMsg{Snapshot: snap})
			}
		}()

		_, tuiErr := p.Run()

		cancel()
		pipe.Unsubscribe(sub)
		if err := writer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "log writer close failed: %v\n", err)
		}

		if tuiErr != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", tuiErr)
			os.Exit(1)
		}
		select {
		case err := <-runErrCh:
			fmt.Fprintf(os.Stderr, "sampler error: %v\n", err)
			os.Exit(1)
		default:
		}
		os.Exit(0)
	}
}

// buildLogger returns the process logger. TUI mode discards log output:
// Bubbletea owns the terminal, and stray writes corrupt the display.
func buildLogger(verbose, tuiMode bool) *slog.Logger {
	if tuiMode {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseDuration parses a configuration duration string, falling back
// when the value is empty, malformed, or not positive.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
