// Package alert implements threshold evaluation, the cooldown gate that
// rate-limits notifications, and the transports that deliver them.
package alert

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
)

// Thresholds are the per-metric alert levels. A threshold of 0 disables
// that metric's check.
type Thresholds struct {
	CPUPercent  float64
	RAMPercent  float64
	DiskPercent float64
}

// Breach is one metric observed above its threshold.
type Breach struct {
	Metric    string
	Value     float64
	Threshold float64
}

// String renders the breach the way it appears in notification bodies.
func (b Breach) String() string {
	return fmt.Sprintf("%s usage is %.1f%% (> %.1f%%)", b.Metric, b.Value, b.Threshold)
}

// EvaluateThresholds returns every metric in the snapshot currently over
// its threshold. The order is fixed (CPU, RAM, Disk) so notification
// bodies are stable.
func EvaluateThresholds(snap metrics.Snapshot, th Thresholds) []Breach {
	var breaches []Breach

	if th.CPUPercent > 0 && snap.CPUPercent > th.CPUPercent {
		breaches = append(breaches, Breach{Metric: "CPU", Value: snap.CPUPercent, Threshold: th.CPUPercent})
	}
	if th.RAMPercent > 0 && snap.RAMPercent > th.RAMPercent {
		breaches = append(breaches, Breach{Metric: "RAM", Value: snap.RAMPercent, Threshold: th.RAMPercent})
	}
	if th.DiskPercent > 0 && snap.DiskPercent > th.DiskPercent {
		breaches = append(breaches, Breach{Metric: "Disk", Value: snap.DiskPercent, Threshold: th.DiskPercent})
	}

	return breaches
}

// ComposeMessage builds the notification for a permitted fire: one
// subject and a body listing every breaching metric, not just the first.
func ComposeMessage(at time.Time, breaches []Breach) (subject, body string) {
	subject = "SYSTEM ALERT: High Resource Usage"

	lines := make([]string, len(breaches))
	for i, b := range breaches {
		lines[i] = b.String()
	}
	body = fmt.Sprintf("Timestamp: %s\n\n%s", at.Format(metrics.TimestampLayout), strings.Join(lines, "\n"))
	return subject, body
}

// Gate is the cooldown state machine deciding whether a breach may
// notify. It has two states, idle and cooling, and transitions lazily:
// cooling ends when a permit check arrives after the cooldown has
// elapsed, with no background timer. One global gate guards all metrics;
// a permitted fire already reports every breaching metric, so per-metric
// gates would add only duplicate mail.
type Gate struct {
	mu        sync.Mutex
	cooldown  time.Duration
	lastFired time.Time
}

// NewGate creates a gate with the given cooldown between fires.
func NewGate(cooldown time.Duration) *Gate {
	return &Gate{cooldown: cooldown}
}

// Permit reports whether a notification may fire at now, stamping the
// fire time when it does. Two permitted fires are never separated by
// less than the cooldown, no matter how many breaches occur in between.
func (g *Gate) Permit(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastFired.IsZero() && now.Sub(g.lastFired) < g.cooldown {
		return false
	}
	g.lastFired = now
	return true
}

// Cooling reports whether the gate is inside its cooldown window at now.
func (g *Gate) Cooling(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.lastFired.IsZero() && now.Sub(g.lastFired) < g.cooldown
}

// Remaining returns how much cooldown is left at now, 0 when idle.
func (g *Gate) Remaining(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastFired.IsZero() {
		return 0
	}
	left := g.cooldown - now.Sub(g.lastFired)
	if left < 0 {
		return 0
	}
	return left
}

// LastFired returns the instant of the last permitted fire, zero if the
// gate has never fired.
func (g *Gate) LastFired() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastFired
}

// RestoreLastFired seeds the gate from persisted state so a restart
// inside the cooldown window does not re-alert early.
func (g *Gate) RestoreLastFired(t time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastFired = t
}
