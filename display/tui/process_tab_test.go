package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
)

func TestProcessTabRendersTable(t *testing.T) {
	m := readyModelWithSnapshot(t, testOptions())
	out := m.renderProcesses(100, 24)

	for _, want := range []string{
		"Top 3 processes by CPU",
		"PID",
		"NAME",
		"CPU%",
		"RAM",
		"chrome",
		"4211",
		"42.1",
		"postgres",
		"systemd",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected process tab to contain %q", want)
		}
	}
}

func TestProcessTabSortToggle(t *testing.T) {
	m := readyModelWithSnapshot(t, testOptions())

	out := m.renderProcesses(100, 24)
	if !strings.Contains(out, "by CPU") {
		t.Fatalf("expected CPU sort by default, got:\n%s", out)
	}
	if strings.Index(out, "chrome") > strings.Index(out, "postgres") {
		t.Error("expected chrome ranked first under CPU sort")
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = updated.(Model)
	out = m.renderProcesses(100, 24)
	if !strings.Contains(out, "by RAM") {
		t.Fatalf("expected RAM sort after 's', got:\n%s", out)
	}
	if strings.Index(out, "postgres") > strings.Index(out, "chrome") {
		t.Error("expected postgres ranked first under RAM sort")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = updated.(Model)
	if !strings.Contains(m.renderProcesses(100, 24), "by CPU") {
		t.Error("expected second 's' to restore CPU sort")
	}
}

func TestProcessTabSortResetsScroll(t *testing.T) {
	m := readyModelWithSnapshot(t, testOptions())
	m.procScroll = 2

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = updated.(Model)
	if m.procScroll != 0 {
		t.Errorf("expected sort toggle to reset scroll, got %d", m.procScroll)
	}
}

func TestProcessTabScrollClamps(t *testing.T) {
	m := readyModelWithSnapshot(t, testOptions())

	// Scroll far past the end; render must clamp, not panic.
	for i := 0; i < 50; i++ {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
		m = updated.(Model)
	}
	out := m.renderProcesses(100, 24)
	if !strings.Contains(out, "systemd") {
		t.Error("expected last row visible after clamped scroll")
	}

	for i := 0; i < 100; i++ {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
		m = updated.(Model)
	}
	if m.procScroll != 0 {
		t.Errorf("expected scroll clamped at 0, got %d", m.procScroll)
	}
}

func TestProcessTabScrollWindow(t *testing.T) {
	m := readyModelWithSnapshot(t, testOptions())

	snap := testSnapshot()
	snap.TopByCPU = nil
	for i := 0; i < 20; i++ {
		snap.TopByCPU = append(snap.TopByCPU, metrics.ProcessSample{
			PID:        int32(1000 + i),
			Name:       "worker",
			CPUPercent: float64(20 - i),
			RAMBytes:   64 << 20,
		})
	}
	updated, _ := m.Update(SnapshotMsg{Snapshot: snap})
	m = updated.(Model)

	// Height 10 leaves 5 visible rows; the scroll line appears.
	out := m.renderProcesses(100, 10)
	if !strings.Contains(out, "1000") {
		t.Error("expected first row visible before scrolling")
	}
	if !strings.Contains(out, "of 20") {
		t.Errorf("expected scroll status line, got:\n%s", out)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	m = updated.(Model)
	out = m.renderProcesses(100, 10)
	if strings.Contains(out, " 1000") {
		t.Errorf("expected first row scrolled away, got:\n%s", out)
	}
	if !strings.Contains(out, "rows 2-6 of 20") {
		t.Errorf("expected scroll window 2-6, got:\n%s", out)
	}
}

func TestProcessTabEmpty(t *testing.T) {
	m := readyModelWithSnapshot(t, testOptions())

	snap := testSnapshot()
	snap.TopByCPU = nil
	updated, _ := m.Update(SnapshotMsg{Snapshot: snap})
	m = updated.(Model)

	out := m.renderProcesses(100, 24)
	if !strings.Contains(out, "No process data") {
		t.Errorf("expected empty notice, got %q", out)
	}
}
