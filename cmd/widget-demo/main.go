// widget-demo renders the display widgets with synthetic data, for
// eyeballing spacing, threshold colors, and theme chrome without a live
// pipeline.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/host-pulse/display/tui"
	"gitlab.com/tinyland/lab/host-pulse/display/widgets"
	"gitlab.com/tinyland/lab/host-pulse/internal/format"
)

func main() {
	width := flag.Int("width", 80, "Render width in cells")
	themeName := flag.String("theme", "dark", "Theme to preview (dark|light)")
	flag.Parse()

	theme := tui.ThemeByName(*themeName)
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary)

	fmt.Printf("host-pulse widget demo · width %d · theme %s\n\n", *width, theme.Name)

	barWidth := *width - 40
	if barWidth < 10 {
		barWidth = 10
	}

	fmt.Println(title.Render("Gauges"))
	for _, g := range []widgets.Gauge{
		{Label: "CPU ", Percent: 35.2, Width: barWidth, WarnAt: 90, DangerAt: 95},
		{Label: "RAM ", Percent: 78.6, Detail: fmt.Sprintf("%s / %s", format.Bytes(25<<30), format.Bytes(32<<30)), Width: barWidth, WarnAt: 70, DangerAt: 90},
		{Label: "Disk", Percent: 96.4, Width: barWidth, WarnAt: 80, DangerAt: 95},
	} {
		fmt.Println(g.Render())
	}
	fmt.Println()

	fmt.Println(title.Render("Sparklines"))
	fmt.Printf("cpu   %s\n", widgets.Sparkline{
		Data: wave(96, 50, 35, 9), Width: *width - 8, Floor: 0, Ceil: 100, Color: widgets.ColorOK,
	}.Render())
	fmt.Printf("net   %s\n", widgets.Sparkline{
		Data: wave(96, 4<<20, 3<<20, 5), Width: *width - 8, Color: theme.Primary,
	}.Render())
	// A short series left-pads, pinning the newest sample to the right.
	fmt.Printf("short %s\n", widgets.Sparkline{
		Data: wave(12, 60, 20, 3), Width: *width - 8, Floor: 0, Ceil: 100, Color: widgets.ColorWarn,
	}.Render())
	fmt.Println()

	fmt.Println(title.Render("Process table"))
	table := widgets.Table{
		Columns: []widgets.Column{
			{Title: "PID", Width: 7, Align: widgets.AlignRight},
			{Title: "NAME", Width: 24},
			{Title: "CPU%", Width: 6, Align: widgets.AlignRight},
			{Title: "RAM", Width: 10, Align: widgets.AlignRight},
		},
		Rows: [][]string{
			{"4021", "nginx", "33.0", format.Bytes(768 << 20)},
			{"912", "postgres", "21.5", format.Bytes(2 << 30)},
			{"31337", "a-process-name-long-enough-to-ellipsize", "8.8", format.Bytes(256 << 20)},
			{"88", "sshd", "0.2", format.Bytes(16 << 20)},
		},
		MaxWidth:       *width,
		HeaderStyle:    lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Highlight:      1,
		HighlightStyle: lipgloss.NewStyle().Bold(true).Foreground(theme.Text),
	}
	fmt.Println(table.Render())
}

// wave builds a deterministic wavy series for the sparkline previews.
func wave(n int, mid, amp, period float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = mid + amp*math.Sin(float64(i)/period)
	}
	return out
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Renders the host-pulse display widgets with synthetic data.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Narrow terminal\n")
		fmt.Fprintf(os.Stderr, "  %s -width 60\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Light theme\n")
		fmt.Fprintf(os.Stderr, "  %s -theme light\n", os.Args[0])
	}
}
