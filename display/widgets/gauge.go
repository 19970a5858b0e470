package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors shared by the widgets. Theme presets restyle the
// chrome around them; usage severity keeps a fixed palette.
const (
	ColorOK     = lipgloss.Color("#22C55E")
	ColorWarn   = lipgloss.Color("#EAB308")
	ColorDanger = lipgloss.Color("#EF4444")
)

// Gauge is a horizontal usage bar with threshold coloring, rendered as
// "LABEL ████████░░░░  52.3%  detail".
type Gauge struct {
	// Label is the caption left of the bar.
	Label string
	// Percent is the fill level, clamped to 0-100.
	Percent float64
	// Detail is an optional annotation right of the percentage, such as
	// "8.50 GB / 16.00 GB".
	Detail string
	// Width is the bar width in cells. Defaults to 30.
	Width int
	// WarnAt and DangerAt are the percentages where the fill turns
	// yellow and red. Zero values fall back to 70 and 90.
	WarnAt   float64
	DangerAt float64
}

// Render draws the gauge as a single line.
func (g Gauge) Render() string {
	percent := math.Max(0, math.Min(100, g.Percent))

	width := g.Width
	if width <= 0 {
		width = 30
	}
	warn := g.WarnAt
	if warn <= 0 {
		warn = 70
	}
	danger := g.DangerAt
	if danger <= 0 {
		danger = 90
	}

	filled := int(math.Round(percent / 100 * float64(width)))
	bar := lipgloss.NewStyle().
		Foreground(SeverityColor(percent, warn, danger)).
		Render(strings.Repeat("█", filled))
	bar += strings.Repeat("░", width-filled)

	var b strings.Builder
	if g.Label != "" {
		b.WriteString(g.Label)
		b.WriteString(" ")
	}
	b.WriteString(bar)
	b.WriteString(fmt.Sprintf(" %5.1f%%", percent))
	if g.Detail != "" {
		b.WriteString("  ")
		b.WriteString(g.Detail)
	}
	return b.String()
}

// SeverityColor maps a percentage onto the shared severity palette.
func SeverityColor(percent, warn, danger float64) lipgloss.Color {
	switch {
	case percent >= danger:
		return ColorDanger
	case percent >= warn:
		return ColorWarn
	default:
		return ColorOK
	}
}
