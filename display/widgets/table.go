package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Alignment controls text placement within a table column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Column defines one table column.
type Column struct {
	// Title is the header text.
	Title string
	// Width is the fixed cell width. If 0 the column sizes to its
	// widest value.
	Width int
	// Align controls cell text placement.
	Align Alignment
}

// Table renders rows of cells under a styled header with a rule
// beneath it.
type Table struct {
	Columns []Column
	// Rows is the cell data; short rows render trailing blanks.
	Rows [][]string
	// MaxWidth caps the total width. Oversized auto columns shrink
	// proportionally.
	MaxWidth int
	// HeaderStyle styles the header line; the zero value renders it
	// plain.
	HeaderStyle lipgloss.Style
	// Highlight marks one row index with HighlightStyle; -1 for none.
	Highlight      int
	HighlightStyle lipgloss.Style
}

const cellGap = "  "

// Render draws the table, one line per row.
func (t Table) Render() string {
	if len(t.Columns) == 0 {
		return ""
	}

	widths := t.columnWidths()

	var lines []string

	header := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = padOrTruncate(col.Title, widths[i], AlignLeft)
	}
	lines = append(lines, t.HeaderStyle.Render(strings.Join(header, cellGap)))

	rule := make([]string, len(t.Columns))
	for i := range t.Columns {
		rule[i] = strings.Repeat("─", widths[i])
	}
	lines = append(lines, strings.Join(rule, cellGap))

	for rowIdx, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i := range t.Columns {
			text := ""
			if i < len(row) {
				text = row[i]
			}
			cells[i] = padOrTruncate(text, widths[i], t.Columns[i].Align)
		}
		line := strings.Join(cells, cellGap)
		if rowIdx == t.Highlight {
			line = t.HighlightStyle.Render(line)
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// columnWidths resolves fixed widths, sizes auto columns to content,
// and shrinks proportionally when MaxWidth is exceeded.
func (t Table) columnWidths() []int {
	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		if col.Width > 0 {
			widths[i] = col.Width
			continue
		}
		w := len([]rune(col.Title))
		for _, row := range t.Rows {
			if i < len(row) {
				if cw := len([]rune(row[i])); cw > w {
					w = cw
				}
			}
		}
		if w == 0 {
			w = 1
		}
		widths[i] = w
	}

	if t.MaxWidth <= 0 {
		return widths
	}

	gapTotal := (len(t.Columns) - 1) * len(cellGap)
	colTotal := 0
	for _, w := range widths {
		colTotal += w
	}
	if colTotal+gapTotal <= t.MaxWidth {
		return widths
	}

	available := t.MaxWidth - gapTotal
	if available < len(t.Columns) {
		available = len(t.Columns)
	}
	for i, w := range widths {
		widths[i] = w * available / colTotal
		if widths[i] < 1 {
			widths[i] = 1
		}
	}
	return widths
}

// padOrTruncate fits s into width cells, ellipsizing overflow.
func padOrTruncate(s string, width int, align Alignment) string {
	if width <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) > width {
		if width == 1 {
			return string(runes[:1])
		}
		return string(runes[:width-1]) + "…"
	}

	pad := strings.Repeat(" ", width-len(runes))
	if align == AlignRight {
		return pad + s
	}
	return s + pad
}
