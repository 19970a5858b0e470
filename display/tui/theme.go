package tui

import "github.com/charmbracelet/lipgloss"

// Theme is a resolved chrome color scheme. Severity colors (gauge and
// sparkline fills) stay fixed across themes; the theme restyles the
// surrounding chrome.
type Theme struct {
	Name       string
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Text       lipgloss.Color
	Background lipgloss.Color
}

var (
	// DarkTheme is the default, tuned for dark terminals.
	DarkTheme = Theme{
		Name:       "dark",
		Primary:    lipgloss.Color("#06B6D4"),
		Secondary:  lipgloss.Color("#38BDF8"),
		Muted:      lipgloss.Color("#6B7280"),
		Text:       lipgloss.Color("#E2E8F0"),
		Background: lipgloss.Color("#0F172A"),
	}

	// LightTheme flips the chrome for light terminals.
	LightTheme = Theme{
		Name:       "light",
		Primary:    lipgloss.Color("#0284C7"),
		Secondary:  lipgloss.Color("#0369A1"),
		Muted:      lipgloss.Color("#94A3B8"),
		Text:       lipgloss.Color("#0F172A"),
		Background: lipgloss.Color("#F8FAFC"),
	}
)

// ThemeByName resolves a configured theme name. Unknown names fall back
// to the dark theme.
func ThemeByName(name string) Theme {
	if name == LightTheme.Name {
		return LightTheme
	}
	return DarkTheme
}

// Styles used throughout the TUI, derived from the active theme.
var (
	styleActiveTab   lipgloss.Style
	styleInactiveTab lipgloss.Style
	styleHeader      lipgloss.Style
	styleFooter      lipgloss.Style
	styleContent     lipgloss.Style
	styleTitle       lipgloss.Style
	styleMuted       lipgloss.Style
	stylePaused      lipgloss.Style
	styleAlert       lipgloss.Style
)

func init() {
	ApplyTheme(DarkTheme)
}

// ApplyTheme rebuilds the package styles from a theme. Called once at
// startup with the configured theme.
func ApplyTheme(t Theme) {
	styleActiveTab = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(t.Primary).
		Padding(0, 2)

	styleInactiveTab = lipgloss.NewStyle().
		Foreground(t.Muted).
		Padding(0, 2)

	styleHeader = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(t.Muted).
		MarginBottom(1)

	styleFooter = lipgloss.NewStyle().
		Foreground(t.Muted).
		MarginTop(1)

	styleContent = lipgloss.NewStyle().
		Padding(1, 2)

	styleTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Secondary)

	styleMuted = lipgloss.NewStyle().
		Foreground(t.Muted)

	stylePaused = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#EF4444"))

	styleAlert = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#EF4444"))
}
