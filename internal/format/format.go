// Package format provides the human-readable value formatting shared by
// the TUI tabs and alert bodies.
package format

import (
	"fmt"
	"time"
)

const (
	kb = 1 << 10
	mb = 1 << 20
	gb = 1 << 30
)

// Bytes renders a byte count with a binary-unit suffix: "512 B",
// "14.2 MB", "8.50 GB".
func Bytes(n uint64) string {
	switch {
	case n >= gb:
		return fmt.Sprintf("%.2f GB", float64(n)/gb)
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/kb)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Rate renders a bytes-per-second rate: "0 B/s", "1.50 MB/s".
func Rate(v float64) string {
	if v < 0 {
		v = 0
	}
	switch {
	case v >= gb:
		return fmt.Sprintf("%.2f GB/s", v/gb)
	case v >= mb:
		return fmt.Sprintf("%.2f MB/s", v/mb)
	case v >= kb:
		return fmt.Sprintf("%.1f KB/s", v/kb)
	default:
		return fmt.Sprintf("%.0f B/s", v)
	}
}

// Percent renders a percentage with one decimal: "52.3%".
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// Uptime renders whole seconds since boot as a concise duration:
// "45s", "5m 30s", "2h 15m", "3d 4h".
func Uptime(seconds uint64) string {
	return Duration(time.Duration(seconds) * time.Second)
}

// Duration renders a time.Duration with at most two units.
func Duration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d < time.Second {
		return "0s"
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
