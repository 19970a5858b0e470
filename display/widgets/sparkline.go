package widgets

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks are the eight block glyphs a sparkline cell can take,
// lowest to highest.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline draws a series as one row of block glyphs, most recent
// sample rightmost.
type Sparkline struct {
	// Data is the series, oldest first. Only the last Width samples are
	// drawn.
	Data []float64
	// Width is the number of cells. Shorter series are left-padded so
	// the newest sample stays pinned to the right edge. Defaults to
	// len(Data).
	Width int
	// Floor and Ceil fix the vertical scale; 0..100 suits percentage
	// series. When equal, the scale fits the drawn samples.
	Floor float64
	Ceil  float64
	// Color tints the glyphs when set.
	Color lipgloss.Color
}

// Render draws the sparkline. An empty series renders as spaces so
// stacked rows keep their alignment.
func (s Sparkline) Render() string {
	width := s.Width
	if width <= 0 {
		width = len(s.Data)
	}
	if width == 0 {
		return ""
	}

	data := s.Data
	if len(data) > width {
		data = data[len(data)-width:]
	}

	lo, hi := s.Floor, s.Ceil
	if lo == hi {
		lo, hi = fitScale(data)
	}

	runes := make([]rune, 0, len(data))
	for _, v := range data {
		runes = append(runes, blockFor(v, lo, hi))
	}

	out := strings.Repeat(" ", width-len(runes)) + string(runes)
	if s.Color != "" {
		out = lipgloss.NewStyle().Foreground(s.Color).Render(out)
	}
	return out
}

// fitScale returns the min and max of the drawn samples. A flat series
// keeps lo == hi; blockFor renders that as the mid glyph.
func fitScale(data []float64) (lo, hi float64) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi = data[0], data[0]
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// blockFor maps one sample onto a block glyph for the given scale.
func blockFor(v, lo, hi float64) rune {
	if lo == hi {
		return sparkBlocks[len(sparkBlocks)/2]
	}
	normalized := (v - lo) / (hi - lo)
	normalized = math.Max(0, math.Min(1, normalized))
	idx := int(normalized * float64(len(sparkBlocks)-1))
	return sparkBlocks[idx]
}
