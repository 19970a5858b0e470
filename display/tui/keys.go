package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap defines the key bindings for the dashboard. It satisfies the
// help.KeyMap interface from bubbles.
type keyMap struct {
	Quit       key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	Tab1       key.Binding
	Tab2       key.Binding
	Pause      key.Binding
	Sort       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
}

// ShortHelp returns the bindings shown in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Pause, k.ScrollDown, k.Quit}
}

// FullHelp returns all binding groups.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.Tab1, k.Tab2},
		{k.Pause, k.Sort, k.ScrollUp, k.ScrollDown},
		{k.Quit},
	}
}

// HelpEntry pairs a binding's keys with its help text for surfaces
// outside the dashboard, such as the generated man page.
type HelpEntry struct {
	Keys string
	Desc string
}

// HelpEntries returns the dashboard bindings in display order, so
// generated documentation stays in sync with the actual keys.
func HelpEntries() []HelpEntry {
	var entries []HelpEntry
	for _, group := range keys.FullHelp() {
		for _, b := range group {
			entries = append(entries, HelpEntry{
				Keys: strings.Join(b.Keys(), ", "),
				Desc: b.Help().Desc,
			})
		}
	}
	return entries
}

// keys holds the default bindings.
var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	NextTab:    key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next tab")),
	PrevTab:    key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev tab")),
	Tab1:       key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "overview")),
	Tab2:       key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "processes")),
	Pause:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
	Sort:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	ScrollUp:   key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "scroll up")),
	ScrollDown: key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/dn", "scroll down")),
}
