package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/host-pulse/display/widgets"
	"gitlab.com/tinyland/lab/host-pulse/internal/format"
)

// renderProcesses renders the Processes tab: the top-K table, sorted by
// CPU or RAM depending on the s toggle, with j/k scrolling when it
// outgrows the visible area.
func (m Model) renderProcesses(width, height int) string {
	if !m.hasSnap {
		return "Waiting for the first sample..."
	}

	procs, sortKey := m.snap.TopByCPU, "CPU"
	if m.sortByRAM {
		procs, sortKey = m.snap.TopByRAM, "RAM"
	}
	if len(procs) == 0 {
		return "No process data in this cycle."
	}

	var sections []string
	sections = append(sections, styleTitle.Render(
		fmt.Sprintf("Top %d processes by %s", len(procs), sortKey)))
	sections = append(sections, "")

	// Rows visible under the title, header and scroll line.
	visible := height - 5
	if visible < 1 {
		visible = 1
	}

	scroll := m.procScroll
	if maxScroll := len(procs) - visible; scroll > maxScroll {
		scroll = maxScroll
	}
	if scroll < 0 {
		scroll = 0
	}

	end := scroll + visible
	if end > len(procs) {
		end = len(procs)
	}

	rows := make([][]string, 0, end-scroll)
	for _, p := range procs[scroll:end] {
		rows = append(rows, []string{
			strconv.Itoa(int(p.PID)),
			p.Name,
			fmt.Sprintf("%.1f", p.CPUPercent),
			format.Bytes(p.RAMBytes),
		})
	}

	table := widgets.Table{
		Columns: []widgets.Column{
			{Title: "PID", Width: 7, Align: widgets.AlignRight},
			{Title: "NAME", Width: clamp(width-36, 12, 40)},
			{Title: "CPU%", Width: 6, Align: widgets.AlignRight},
			{Title: "RAM", Width: 10, Align: widgets.AlignRight},
		},
		Rows:        rows,
		MaxWidth:    width - 4,
		HeaderStyle: lipgloss.NewStyle().Bold(true).Foreground(m.opts.Theme.Secondary),
		Highlight:   -1,
	}
	sections = append(sections, table.Render())

	if len(procs) > visible {
		sections = append(sections, styleMuted.Render(
			fmt.Sprintf("rows %d-%d of %d · j/k to scroll", scroll+1, end, len(procs))))
	}

	return strings.Join(sections, "\n")
}
