package tui

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/alert"
	"gitlab.com/tinyland/lab/host-pulse/display/widgets"
	"gitlab.com/tinyland/lab/host-pulse/internal/format"
	"gitlab.com/tinyland/lab/host-pulse/sampler"
)

// renderOverview renders the Overview tab: host line, usage gauges with
// sparkline history, I/O rates, and the cycle summary line.
func (m Model) renderOverview(width, height int) string {
	if !m.hasSnap {
		return "Waiting for the first sample..."
	}

	snap := m.snap
	barWidth := clamp(width-45, 10, 40)
	sparkWidth := clamp(width-20, 10, 60)

	var sections []string

	sections = append(sections, m.renderHostLine())
	sections = append(sections, "")

	// Usage gauges. Danger levels track the alert thresholds so the bar
	// turns red where an alert would fire.
	th := m.opts.Thresholds
	gauges := []struct {
		label   string
		percent float64
		detail  string
		danger  float64
		series  string
	}{
		{"CPU ", snap.CPUPercent, "", th.CPUPercent, sampler.KeyCPU},
		{"RAM ", snap.RAMPercent,
			format.Bytes(snap.RAMUsedBytes) + " / " + format.Bytes(snap.RAMTotalBytes),
			th.RAMPercent, sampler.KeyRAM},
		{"DISK", snap.DiskPercent, "", th.DiskPercent, sampler.KeyDisk},
	}
	for _, g := range gauges {
		sections = append(sections, widgets.Gauge{
			Label:    g.label,
			Percent:  g.percent,
			Detail:   g.detail,
			Width:    barWidth,
			WarnAt:   warnBefore(g.danger),
			DangerAt: g.danger,
		}.Render())

		spark := widgets.Sparkline{
			Data:  m.series[g.series],
			Width: sparkWidth,
			Floor: 0,
			Ceil:  100,
			Color: widgets.SeverityColor(g.percent, warnBefore(g.danger), dangerOrDefault(g.danger)),
		}
		sections = append(sections, "     "+spark.Render())
	}
	sections = append(sections, "")

	// I/O rates with auto-scaled sparklines.
	sections = append(sections, styleTitle.Render("Network"))
	sections = append(sections, fmt.Sprintf("  ↑ %-14s ↓ %s",
		format.Rate(snap.NetSentRate), format.Rate(snap.NetRecvRate)))
	sections = append(sections, "  "+m.rateSpark(sampler.KeyNetSent, sparkWidth))
	sections = append(sections, "  "+m.rateSpark(sampler.KeyNetRecv, sparkWidth))

	sections = append(sections, styleTitle.Render("Disk I/O"))
	sections = append(sections, fmt.Sprintf("  R %-14s W %s",
		format.Rate(snap.DiskReadRate), format.Rate(snap.DiskWriteRate)))
	sections = append(sections, "  "+m.rateSpark(sampler.KeyDiskRead, sparkWidth))
	sections = append(sections, "  "+m.rateSpark(sampler.KeyDiskWrite, sparkWidth))
	sections = append(sections, "")

	summary := fmt.Sprintf("%d processes · up %s",
		snap.ProcessCount, format.Uptime(snap.UptimeSeconds))
	sections = append(sections, styleMuted.Render(summary))

	if m.opts.Filter != "" {
		filterLine := fmt.Sprintf("filter %q: %s CPU, %s RAM",
			m.opts.Filter,
			format.Percent(snap.FilteredCPUPercent),
			format.Bytes(snap.FilteredRAMBytes))
		sections = append(sections, styleMuted.Render(filterLine))
	}

	if line := m.renderAlertLine(); line != "" {
		sections = append(sections, line)
	}

	return strings.Join(sections, "\n")
}

// renderAlertLine renders the alert status: current breaches in the
// danger color with the cooldown countdown while the gate is cooling,
// or a quiet "alerts: none". Empty when alerting is disabled.
func (m Model) renderAlertLine() string {
	if m.opts.Gate == nil {
		return ""
	}

	now := time.Now()
	breaches := alert.EvaluateThresholds(m.snap, m.opts.Thresholds)

	if len(breaches) > 0 {
		parts := make([]string, len(breaches))
		for i, b := range breaches {
			parts[i] = b.Metric + " " + format.Percent(b.Value)
		}
		line := styleAlert.Render("ALERT: " + strings.Join(parts, ", "))
		if rem := m.opts.Gate.Remaining(now); rem > 0 {
			line += styleMuted.Render(" · cooldown " + format.Duration(rem))
		}
		return line
	}

	if rem := m.opts.Gate.Remaining(now); rem > 0 {
		return styleMuted.Render("alerts: cooldown " + format.Duration(rem))
	}
	return styleMuted.Render("alerts: none")
}

// renderHostLine renders the static host description.
func (m Model) renderHostLine() string {
	h := m.opts.Host
	if h.Hostname == "" {
		return ""
	}
	line := fmt.Sprintf("%s · %s · %s (%d cores) · %s RAM",
		h.Hostname, h.Platform, h.CPUModel, h.CPUCount, format.Bytes(h.RAMTotalBytes))
	return styleTitle.Render(line)
}

// rateSpark renders an auto-scaled sparkline for a rate series.
func (m Model) rateSpark(key string, width int) string {
	return widgets.Sparkline{
		Data:  m.series[key],
		Width: width,
		Color: m.opts.Theme.Secondary,
	}.Render()
}

// warnBefore derives the yellow threshold from a red one, keeping some
// headroom below the alert level.
func warnBefore(danger float64) float64 {
	switch {
	case danger <= 0:
		return 70
	case danger > 75:
		return danger - 20
	default:
		return danger * 0.75
	}
}

func dangerOrDefault(danger float64) float64 {
	if danger <= 0 {
		return 90
	}
	return danger
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
