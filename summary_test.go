package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
	"gitlab.com/tinyland/lab/host-pulse/probe"
)

func summaryHost() probe.Host {
	return probe.Host{
		Hostname:      "test-box",
		Platform:      "linux 6.1",
		CPUModel:      "Test CPU",
		CPUCount:      8,
		RAMTotalBytes: 16 << 30,
	}
}

func summarySnapshot() metrics.Snapshot {
	return metrics.Snapshot{
		Timestamp:          time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		CPUPercent:         52.3,
		RAMPercent:         41.1,
		DiskPercent:        77.7,
		RAMUsedBytes:       9 << 30,
		RAMTotalBytes:      16 << 30,
		NetSentRate:        1.5 * (1 << 20),
		NetRecvRate:        256 << 10,
		DiskWriteRate:      2 << 20,
		ProcessCount:       231,
		UptimeSeconds:      7265,
		FilteredCPUPercent: 15.0,
		FilteredRAMBytes:   1 << 30,
		TopByCPU: []metrics.ProcessSample{
			{PID: 4211, Name: "chrome", CPUPercent: 42.1, RAMBytes: 512 << 20},
			{PID: 318, Name: "postgres", CPUPercent: 12.0, RAMBytes: 256 << 20},
		},
	}
}

func TestRenderSummaryHeader(t *testing.T) {
	out := renderSummary(summaryHost(), summarySnapshot(), "", 80)

	for _, want := range []string{
		"host-pulse " + version,
		"test-box",
		"linux 6.1",
		"sampled 2026-03-14T15:09:26",
		"Test CPU (8 cores)",
		"16.00 GB RAM",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummaryGaugesAndRates(t *testing.T) {
	out := renderSummary(summaryHost(), summarySnapshot(), "", 80)

	for _, want := range []string{
		" 52.3%",
		" 41.1%",
		" 77.7%",
		"9.00 GB / 16.00 GB",
		"1.50 MB/s",
		"256.0 KB/s",
		"2.00 MB/s",
		"231 processes",
		"up 2h 1m",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummaryFilterLine(t *testing.T) {
	out := renderSummary(summaryHost(), summarySnapshot(), "chrome", 80)
	if !strings.Contains(out, `filter "chrome": 15.0% CPU, 1.00 GB RAM`) {
		t.Errorf("summary missing filter line:\n%s", out)
	}

	out = renderSummary(summaryHost(), summarySnapshot(), "", 80)
	if strings.Contains(out, "filter") {
		t.Errorf("summary should omit the filter line without a filter:\n%s", out)
	}
}

func TestRenderSummaryTopProcesses(t *testing.T) {
	out := renderSummary(summaryHost(), summarySnapshot(), "", 80)

	for _, want := range []string{"Top processes by CPU", "chrome", "4211", "42.1", "512.0 MB", "postgres"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummaryTopProcessesTruncated(t *testing.T) {
	snap := summarySnapshot()
	snap.TopByCPU = nil
	for i := 0; i < 7; i++ {
		snap.TopByCPU = append(snap.TopByCPU, metrics.ProcessSample{
			PID:        int32(1000 + i),
			Name:       fmt.Sprintf("worker-%d", i),
			CPUPercent: float64(70 - i),
			RAMBytes:   64 << 20,
		})
	}

	out := renderSummary(summaryHost(), snap, "", 80)

	if !strings.Contains(out, "worker-4") {
		t.Errorf("summary missing worker-4:\n%s", out)
	}
	if strings.Contains(out, "worker-5") {
		t.Errorf("summary should list at most %d processes:\n%s", summaryTopCount, out)
	}
}

func TestRenderSummaryNarrowWidth(t *testing.T) {
	out := renderSummary(summaryHost(), summarySnapshot(), "", 20)
	if out == "" {
		t.Fatal("expected output at a narrow width")
	}
	if !strings.Contains(out, "CPU") {
		t.Errorf("narrow summary missing CPU gauge:\n%s", out)
	}
}

func TestDetectWidth(t *testing.T) {
	if w := detectWidth(); w <= 0 {
		t.Errorf("detectWidth() = %d, want positive", w)
	}
}
