// Package manpage generates a roff-formatted man page for host-pulse.
//
// The man page is generated at runtime from the dashboard's actual key
// bindings and the compiled-in version information, keeping the
// documentation in sync with the code.
//
// Usage:
//
//	host-pulse -man | man -l -
//	host-pulse -man > ~/.local/share/man/man1/host-pulse.1
package manpage

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/display/tui"
)

// Generate produces a complete roff-formatted man(1) page for
// host-pulse. The version, commit, and date parameters are passed from
// the build-time linker variables so the page always reflects the
// current build.
func Generate(version, commit, date string) string {
	var b strings.Builder

	writeHeader(&b, version)
	writeName(&b)
	writeSynopsis(&b)
	writeDescription(&b)
	writeOptions(&b)
	writeKeybindings(&b)
	writeConfiguration(&b)
	writeFiles(&b)
	writeExamples(&b)
	writeEnvironment(&b)
	writeExitStatus(&b)
	writeSeeAlso(&b)
	writeAuthors(&b)
	writeBugs(&b)
	writeFooter(&b, version, commit, date)

	return b.String()
}

// roffEscape escapes special roff characters in a string.
func roffEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `-`, `\-`)
	s = strings.ReplaceAll(s, `.`, `\&.`)
	return s
}

func writeHeader(b *strings.Builder, version string) {
	month := time.Now().Format("January 2006")
	fmt.Fprintf(b, ".TH HOST-PULSE 1 \"%s\" \"host-pulse %s\" \"User Commands\"\n", month, version)
}

func writeName(b *strings.Builder) {
	b.WriteString(`.SH NAME
host\-pulse \- single\-host telemetry collector and dashboard
`)
}

func writeSynopsis(b *strings.Builder) {
	b.WriteString(`.SH SYNOPSIS
.B host\-pulse
[\fIOPTIONS\fR]
`)
}

func writeDescription(b *strings.Builder) {
	b.WriteString(`.SH DESCRIPTION
.B host\-pulse
samples CPU, memory, disk, network, and process activity on a fixed
cadence, keeps a bounded in\-memory history per metric, appends one CSV
row per cycle to a durable log, and raises threshold alerts through
SMTP or webhook transports with a cooldown. One sampling pipeline feeds
every front\-end.
.PP
The tool operates in several modes:
.IP \(bu 2
.B TUI mode
(\fB\-tui\fR, the default on a terminal): An interactive Bubbletea
dashboard with live gauges, sparklines, and a sortable process table.
.IP \(bu 2
.B Web mode
(\fB\-web\fR): A browser dashboard served over HTTP with a live
websocket snapshot stream and Prometheus metrics.
.IP \(bu 2
.B Daemon mode
(\fB\-daemon\fR): A headless sampling loop for unattended hosts. Writes
the CSV log, a health file, and a PID file; raises alerts on threshold
breaches.
.IP \(bu 2
.B One\-shot mode
(\fB\-once\fR): Collects a single sample, prints a plain\-text summary,
and exits.
`)
}

func writeOptions(b *strings.Builder) {
	b.WriteString(`.SH OPTIONS
`)

	flags := []struct {
		flag string
		arg  string
		desc string
	}{
		{"tui", "", "Launch the interactive terminal dashboard. This is the default mode when stdout is a terminal."},
		{"web", "", "Serve the browser dashboard in the foreground. Snapshots stream to connected browsers over a websocket; the CSV log is downloadable and Prometheus metrics are exposed on /metrics."},
		{"daemon", "", "Run the headless sampling daemon. Refuses to start while another daemon holds the PID file."},
		{"once", "", "Collect a single sample, print a summary to stdout, and exit. Nothing is written to the CSV log."},
		{"health", "", "Check daemon health. Reads the health file from the data directory and verifies the daemon wrote it recently. Exit code 0 means healthy, 1 means stale or missing."},
		{"json", "", "Output the health check as JSON. Must be used with \\fB\\-health\\fR."},
		{"diagnose", "", "Run environment preflight checks and exit: configuration, one probe round, file permissions, alert transport shape, and the dashboard listen address."},
		{"config", "PATH", "Path to the YAML configuration file. Default: ~/.config/host\\-pulse/config.yaml."},
		{"filter", "NAME", "Process name filter override. Processes whose name contains NAME are aggregated into the filtered CPU and RAM columns."},
		{"listen", "ADDR", "Web dashboard listen address override (host:port)."},
		{"theme", "THEME", "Dashboard theme override. THEME must be one of: dark (default), light."},
		{"verbose", "", "Enable verbose (debug\\-level) logging to stderr."},
		{"version", "", "Print the version, commit hash, and build date, then exit."},
		{"man", "", "Print this man page to stdout in roff format. Pipe to man(1) for formatted viewing: \\fBhost\\-pulse \\-man | man \\-l \\-\\fR."},
	}

	for _, f := range flags {
		b.WriteString(".TP\n")
		if f.arg != "" {
			fmt.Fprintf(b, ".BR \\-%s \" \\fI%s\\fR\"\n", f.flag, f.arg)
		} else {
			fmt.Fprintf(b, ".B \\-%s\n", f.flag)
		}
		b.WriteString(f.desc + "\n")
	}
}

func writeKeybindings(b *strings.Builder) {
	b.WriteString(`.SH KEYBINDINGS
The following keys are active in the terminal dashboard
(\fB\-tui\fR).
`)

	for _, e := range tui.HelpEntries() {
		fmt.Fprintf(b, ".TP\n.B %s\n%s\n", roffEscape(e.Keys), e.Desc)
	}
}

func writeConfiguration(b *strings.Builder) {
	b.WriteString(`.SH CONFIGURATION
Configuration is read from a YAML file at
.B ~/.config/host\-pulse/config.yaml
by default (honoring \fB$XDG_CONFIG_HOME\fR), or from the path given
with \fB\-config\fR. Every key is optional; missing keys keep their
defaults.
.SS sample
.TP
.B interval
Duration between sampling cycles (e.g., "1s", "500ms"). Default: "1s".
.TP
.B history_capacity
Number of points kept per in\-memory metric series. Default: 200.
.TP
.B process_filter
Substring matched against process names; matching processes are
aggregated into the filtered CPU and RAM columns. Empty disables the
filter.
.TP
.B top_k
Number of processes kept in the per\-cycle CPU and RAM rankings.
Default: 20.
.SS thresholds
.TP
.B cpu_percent
CPU usage percentage that counts as a breach. Default: 90.
.TP
.B ram_percent
Memory usage percentage that counts as a breach. Default: 90.
.TP
.B disk_percent
Disk usage percentage that counts as a breach. Default: 95.
.SS alerts
.TP
.B enabled
Master switch for threshold alerting. Default: false.
.TP
.B cooldown
Minimum duration between alert deliveries (e.g., "5m"). Default: "5m".
The gate state persists across restarts.
.TP
.B smtp
SMTP delivery: \fBhost\fR, \fBport\fR (default 587), \fBusername\fR,
\fBpassword\fR, \fBfrom\fR, and a \fBto\fR recipient list. Leaving
\fBhost\fR empty disables SMTP delivery.
.TP
.B webhook_url
HTTP(S) endpoint that receives a JSON payload per alert. Empty disables
webhook delivery. With neither SMTP nor a webhook configured, breaches
are written to the log only.
.SS log
.TP
.B path
CSV metrics log path. Default: "system_monitor_log.csv" in the working
directory. The file is created with a header row; existing files are
appended to.
.TP
.B queue_capacity
Buffered rows between the sampler and the log writer. Default: 1000.
.SS web
.TP
.B listen
Dashboard listen address. Default: ":8000".
.SS daemon
.TP
.B data_dir
Directory for runtime state: the health file, the PID file, and alert
gate persistence. Default: ~/.cache/host\-pulse.
.SS theme
.PP
Dashboard color theme: "dark" (default) or "light".
`)
}

func writeFiles(b *strings.Builder) {
	b.WriteString(`.SH FILES
.TP
.I ~/.config/host\-pulse/config.yaml
Primary configuration file (YAML).
.TP
.I system_monitor_log.csv
CSV metrics log, one row per sampling cycle. Path set by
.BR log.path .
.TP
.I ~/.cache/host\-pulse/
Runtime data directory. Path set by
.BR daemon.data_dir .
.TP
.I ~/.cache/host\-pulse/health.json
Daemon health status file, rewritten periodically while the daemon
runs.
.TP
.I ~/.cache/host\-pulse/host\-pulse.pid
PID file for the running daemon.
.TP
.I ~/.cache/host\-pulse/state/alertgate.json
Persisted alert cooldown state.
`)
}

func writeExamples(b *strings.Builder) {
	b.WriteString(`.SH EXAMPLES
Launch the terminal dashboard:
.PP
.nf
host\-pulse
.fi
.PP
Collect one sample and print a summary:
.PP
.nf
host\-pulse \-once
host\-pulse \-once \-filter nginx
.fi
.PP
Serve the browser dashboard on a custom address:
.PP
.nf
host\-pulse \-web \-listen 127.0.0.1:9000
.fi
.PP
Run the headless daemon:
.PP
.nf
host\-pulse \-daemon
.fi
.PP
Check daemon health:
.PP
.nf
host\-pulse \-health
host\-pulse \-health \-json
.fi
.PP
Verify the environment before first use:
.PP
.nf
host\-pulse \-diagnose
.fi
.PP
View this man page:
.PP
.nf
host\-pulse \-man | man \-l \-
.fi
.PP
Install the man page permanently:
.PP
.nf
host\-pulse \-man > ~/.local/share/man/man1/host\-pulse.1
.fi
`)
}

func writeEnvironment(b *strings.Builder) {
	b.WriteString(`.SH ENVIRONMENT
.TP
.B HOSTPULSE_SMTP_PASSWORD
SMTP password for alert delivery. Overrides
.BR alerts.smtp.password .
.TP
.B HOSTPULSE_SMTP_PASSWORD_FILE
Path to a file holding the SMTP password, for secret managers that
mount credentials as files.
.B HOSTPULSE_SMTP_PASSWORD
wins when both are set.
.TP
.B HOSTPULSE_WEBHOOK_URL
Overrides
.BR alerts.webhook_url .
.TP
.B HOSTPULSE_LISTEN
Overrides
.BR web.listen .
.TP
.B XDG_CONFIG_HOME
Changes where the default configuration file is searched for.
`)
}

func writeExitStatus(b *strings.Builder) {
	b.WriteString(".SH EXIT STATUS\n")
	b.WriteString(".TP\n.B 0\n")
	b.WriteString("Success. For \\fB\\-health\\fR, indicates the daemon is healthy.\n")
	b.WriteString(".TP\n.B 1\n")
	b.WriteString("Failure. For \\fB\\-health\\fR, indicates the daemon health is stale or missing; for \\fB\\-diagnose\\fR, at least one preflight check failed.\n")
}

func writeSeeAlso(b *strings.Builder) {
	b.WriteString(`.SH SEE ALSO
.BR top (1),
.BR vmstat (8),
.BR iostat (1),
.BR systemctl (1)
`)
}

func writeAuthors(b *strings.Builder) {
	b.WriteString(`.SH AUTHORS
Tinyland Lab <https://gitlab.com/tinyland/lab>
`)
}

func writeBugs(b *strings.Builder) {
	b.WriteString(`.SH BUGS
Report bugs at <https://gitlab.com/tinyland/lab/host\-pulse/\-/issues>.
`)
}

func writeFooter(b *strings.Builder, version, commit, date string) {
	fmt.Fprintf(b, ".SH VERSION\n%s (%s) built %s\n", version, commit, date)
}
