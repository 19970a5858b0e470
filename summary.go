package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/term"

	"gitlab.com/tinyland/lab/host-pulse/display/widgets"
	"gitlab.com/tinyland/lab/host-pulse/internal/format"
	"gitlab.com/tinyland/lab/host-pulse/metrics"
	"gitlab.com/tinyland/lab/host-pulse/probe"
)

// summaryTopCount is how many top-CPU processes the one-shot report lists.
const summaryTopCount = 5

// renderSummary formats one completed sample as a plain-text report
// for the one-shot mode. Width shapes the gauge bars and the process
// table; colors degrade automatically when output is piped.
func renderSummary(host probe.Host, snap metrics.Snapshot, filter string, width int) string {
	if width < 40 {
		width = 40
	}
	barWidth := width - 40
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 40 {
		barWidth = 40
	}

	var b strings.Builder

	fmt.Fprintf(&b, "host-pulse %s · %s · %s\n", version, host.Hostname, host.Platform)
	fmt.Fprintf(&b, "sampled %s · %s (%d cores) · %s RAM\n\n",
		snap.Timestamp.Format(metrics.TimestampLayout),
		host.CPUModel, host.CPUCount, format.Bytes(host.RAMTotalBytes))

	gauges := []widgets.Gauge{
		{Label: "CPU ", Percent: snap.CPUPercent, Width: barWidth},
		{Label: "RAM ", Percent: snap.RAMPercent, Width: barWidth,
			Detail: fmt.Sprintf("%s / %s", format.Bytes(snap.RAMUsedBytes), format.Bytes(snap.RAMTotalBytes))},
		{Label: "Disk", Percent: snap.DiskPercent, Width: barWidth},
	}
	for _, g := range gauges {
		b.WriteString(g.Render())
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\nNetwork  ↑ %-12s ↓ %s\n", format.Rate(snap.NetSentRate), format.Rate(snap.NetRecvRate))
	fmt.Fprintf(&b, "Disk I/O R %-12s W %s\n", format.Rate(snap.DiskReadRate), format.Rate(snap.DiskWriteRate))
	fmt.Fprintf(&b, "%d processes · up %s\n", snap.ProcessCount, format.Uptime(snap.UptimeSeconds))

	if filter != "" {
		fmt.Fprintf(&b, "filter %q: %s CPU, %s RAM\n",
			filter, format.Percent(snap.FilteredCPUPercent), format.Bytes(snap.FilteredRAMBytes))
	}

	if len(snap.TopByCPU) > 0 {
		n := len(snap.TopByCPU)
		if n > summaryTopCount {
			n = summaryTopCount
		}
		rows := make([][]string, 0, n)
		for _, p := range snap.TopByCPU[:n] {
			rows = append(rows, []string{
				strconv.Itoa(int(p.PID)),
				p.Name,
				fmt.Sprintf("%.1f", p.CPUPercent),
				format.Bytes(p.RAMBytes),
			})
		}

		tbl := widgets.Table{
			Columns: []widgets.Column{
				{Title: "PID", Width: 7, Align: widgets.AlignRight},
				{Title: "NAME", Width: 24},
				{Title: "CPU%", Width: 6, Align: widgets.AlignRight},
				{Title: "RAM", Width: 10, Align: widgets.AlignRight},
			},
			Rows:      rows,
			MaxWidth:  width,
			Highlight: -1,
		}

		b.WriteString("\nTop processes by CPU\n")
		b.WriteString(tbl.Render())
		b.WriteByte('\n')
	}

	return b.String()
}

// detectWidth returns the terminal width for the one-shot report. It
// tries the TTY first, then the COLUMNS environment variable, and
// falls back to 80 columns.
func detectWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 0 {
			return w
		}
	}
	return 80
}
