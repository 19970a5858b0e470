// Package tui renders the terminal dashboard: live gauges, sparklines
// and a process table over the snapshot stream.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/host-pulse/alert"
	"gitlab.com/tinyland/lab/host-pulse/metrics"
	"gitlab.com/tinyland/lab/host-pulse/probe"
	"gitlab.com/tinyland/lab/host-pulse/sampler"
)

// SnapshotMsg delivers one pipeline snapshot to the model. The bridge
// goroutine wraps each subscribed snapshot in this message.
type SnapshotMsg struct {
	Snapshot metrics.Snapshot
}

// Tab identifies the active tab.
type Tab int

const (
	TabOverview Tab = iota
	TabProcesses
	tabCount // sentinel for wrapping
)

var tabNames = map[Tab]string{
	TabOverview:  "Overview",
	TabProcesses: "Processes",
}

// defaultSeriesCap bounds the sparkline memory per series.
const defaultSeriesCap = 120

// Options configures the model from the loaded configuration.
type Options struct {
	// Host describes the monitored machine for the header line.
	Host probe.Host
	// Theme is the resolved chrome color scheme.
	Theme Theme
	// Thresholds drive the gauge severity colors. Zero values fall back
	// to the widget defaults.
	Thresholds alert.Thresholds
	// Gate reports the alert cooldown state for the Overview status
	// line. Nil when alerting is disabled.
	Gate *alert.Gate
	// Filter is the configured process name filter, shown with its
	// aggregate when set.
	Filter string
	// SeriesCap bounds the per-series sparkline memory. Defaults to 120.
	SeriesCap int
	// History seeds the sparklines so the first frame is not flat,
	// keyed like the pipeline history series.
	History map[string][]float64
}

// Model is the top-level Bubbletea model for the dashboard.
type Model struct {
	opts      Options
	activeTab Tab

	width  int
	height int
	ready  bool

	paused      bool
	snap        metrics.Snapshot
	hasSnap     bool
	series      map[string][]float64
	sortByRAM   bool
	procScroll  int
	lastUpdated time.Time
}

// NewModel returns an initialized model with the Overview tab active.
// The theme in opts is applied to the package styles.
func NewModel(opts Options) Model {
	if opts.SeriesCap < 1 {
		opts.SeriesCap = defaultSeriesCap
	}
	ApplyTheme(opts.Theme)

	series := make(map[string][]float64)
	for key, values := range opts.History {
		trimmed := values
		if len(trimmed) > opts.SeriesCap {
			trimmed = trimmed[len(trimmed)-opts.SeriesCap:]
		}
		series[key] = append([]float64(nil), trimmed...)
	}

	return Model{
		opts:      opts,
		activeTab: TabOverview,
		series:    series,
	}
}

// Init implements tea.Model. No initial commands are needed; snapshots
// arrive through SnapshotMsg.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.NextTab):
			m.activeTab = (m.activeTab + 1) % tabCount
		case key.Matches(msg, keys.PrevTab):
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case key.Matches(msg, keys.Tab1):
			m.activeTab = TabOverview
		case key.Matches(msg, keys.Tab2):
			m.activeTab = TabProcesses
		case key.Matches(msg, keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, keys.Sort):
			m.sortByRAM = !m.sortByRAM
			m.procScroll = 0
		case key.Matches(msg, keys.ScrollUp):
			if m.procScroll > 0 {
				m.procScroll--
			}
		case key.Matches(msg, keys.ScrollDown):
			m.procScroll++ // clamped against the row count at render
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case SnapshotMsg:
		if !m.paused {
			m = m.applySnapshot(msg.Snapshot)
		}
	}

	return m, nil
}

// applySnapshot stores the snapshot and extends the sparkline series.
func (m Model) applySnapshot(snap metrics.Snapshot) Model {
	m.snap = snap
	m.hasSnap = true
	m.lastUpdated = time.Now()

	m.pushSeries(sampler.KeyCPU, snap.CPUPercent)
	m.pushSeries(sampler.KeyRAM, snap.RAMPercent)
	m.pushSeries(sampler.KeyDisk, snap.DiskPercent)
	m.pushSeries(sampler.KeyNetSent, snap.NetSentRate)
	m.pushSeries(sampler.KeyNetRecv, snap.NetRecvRate)
	m.pushSeries(sampler.KeyDiskRead, snap.DiskReadRate)
	m.pushSeries(sampler.KeyDiskWrite, snap.DiskWriteRate)

	return m
}

func (m Model) pushSeries(key string, v float64) {
	s := append(m.series[key], v)
	if len(s) > m.opts.SeriesCap {
		s = s[len(s)-m.opts.SeriesCap:]
	}
	m.series[key] = s
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	content := m.renderTabContent()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

// renderHeader renders the tab bar with the active tab highlighted.
func (m Model) renderHeader() string {
	var tabs []string
	for i := Tab(0); i < tabCount; i++ {
		name := tabNames[i]
		if i == m.activeTab {
			tabs = append(tabs, styleActiveTab.Render(name))
		} else {
			tabs = append(tabs, styleInactiveTab.Render(name))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return styleHeader.Width(m.width).Render(tabBar)
}

// renderTabContent delegates to the active tab renderer.
func (m Model) renderTabContent() string {
	contentHeight := m.height - 6
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	switch m.activeTab {
	case TabOverview:
		content = m.renderOverview(m.width, contentHeight)
	case TabProcesses:
		content = m.renderProcesses(m.width, contentHeight)
	default:
		content = ""
	}

	return styleContent.Width(m.width).Render(content)
}

// renderFooter renders help text, the pause marker, and the last update
// timestamp.
func (m Model) renderFooter() string {
	help := "q: quit | tab: switch | 1-2: jump | p: pause | s: sort | j/k: scroll"

	line := help
	if m.paused {
		line += "  " + stylePaused.Render("PAUSED")
	}
	if !m.lastUpdated.IsZero() {
		line += fmt.Sprintf("  Updated: %s", m.lastUpdated.Format("15:04:05"))
	}

	return styleFooter.Width(m.width).Render(line)
}
