package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// healthFile is the liveness file name within the daemon data directory.
const healthFile = "health.json"

// HealthStatus is the daemon liveness record written to the data
// directory and read back by the -health command.
type HealthStatus struct {
	Status    string    `json:"status"`
	PID       int       `json:"pid"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
	WrittenAt time.Time `json:"written_at"`
	LastCycle string    `json:"last_cycle,omitempty"`
	Cycles    uint64    `json:"cycles"`
}

// writeHealthFile writes the health status into dataDir, creating the
// directory when missing.
func writeHealthFile(dataDir string, status HealthStatus) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}

	return os.WriteFile(filepath.Join(dataDir, healthFile), data, 0o644)
}

// readHealthFile reads the health status back from dataDir.
func readHealthFile(dataDir string) (*HealthStatus, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, healthFile))
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal health file: %w", err)
	}

	return &status, nil
}

// checkHealth reads the health file and reports whether the daemon is
// alive. The daemon counts as healthy when the file exists and was
// written within twice the write interval. Returns the process exit
// code: 0 healthy, 1 stale or missing.
func checkHealth(dataDir string, writeInterval time.Duration, jsonOutput bool) int {
	status, err := readHealthFile(dataDir)
	if err != nil {
		if jsonOutput {
			fmt.Println(`{"status":"not_running"}`)
		} else {
			fmt.Fprintln(os.Stderr, "daemon not running (no health file)")
		}
		return 1
	}

	staleThreshold := 2 * writeInterval
	age := time.Since(status.WrittenAt)
	isStale := age > staleThreshold

	if jsonOutput {
		output := map[string]any{
			"status":     status.Status,
			"pid":        status.PID,
			"version":    status.Version,
			"written_at": status.WrittenAt.Format(time.RFC3339),
			"age":        age.Round(time.Second).String(),
			"stale":      isStale,
			"cycles":     status.Cycles,
		}
		if status.LastCycle != "" {
			output["last_cycle"] = status.LastCycle
		}
		data, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(data))
	} else {
		if isStale {
			fmt.Fprintf(os.Stderr, "daemon stale (last write %s ago, threshold %s)\n",
				age.Round(time.Second), staleThreshold)
		} else {
			fmt.Printf("daemon healthy (PID %d, v%s, %d cycles, last write %s ago)\n",
				status.PID, status.Version, status.Cycles, age.Round(time.Second))
			if status.LastCycle != "" {
				fmt.Printf("  last cycle: %s\n", status.LastCycle)
			}
		}
	}

	if isStale {
		return 1
	}
	return 0
}
