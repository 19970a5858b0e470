package csvlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
)

func testSnapshot() metrics.Snapshot {
	return metrics.Snapshot{
		Timestamp:          time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		CPUPercent:         52.34,
		RAMPercent:         41.07,
		RAMUsedBytes:       9126805504, // 8.5 GB
		DiskPercent:        77.7,
		NetSentRate:        1572864, // 1.5 MB/s
		NetRecvRate:        262144,  // 0.25 MB/s
		DiskReadRate:       0,
		DiskWriteRate:      2097152, // 2 MB/s
		ProcessCount:       231,
		FilteredCPUPercent: 12.3,
		FilteredRAMBytes:   1073741824, // 1 GB
	}
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := newRecordQueue(2)

	a := Record{ProcessCount: 1}
	b := Record{ProcessCount: 2}
	c := Record{ProcessCount: 3}

	if dropped := q.push(a); dropped != 0 {
		t.Errorf("push(a) dropped %d, want 0", dropped)
	}
	if dropped := q.push(b); dropped != 0 {
		t.Errorf("push(b) dropped %d, want 0", dropped)
	}
	if dropped := q.push(c); dropped != 1 {
		t.Errorf("push(c) dropped %d, want 1", dropped)
	}

	got := q.popAll()
	if len(got) != 2 || got[0].ProcessCount != 2 || got[1].ProcessCount != 3 {
		counts := make([]int, len(got))
		for i, r := range got {
			counts[i] = r.ProcessCount
		}
		t.Errorf("queue after overflow = %v, want [2 3]", counts)
	}

	if q.len() != 0 {
		t.Errorf("len after popAll = %d, want 0", q.len())
	}
}

func TestRecordFields(t *testing.T) {
	rec := FromSnapshot(testSnapshot())

	want := []string{
		"2026-03-14T15:09:26",
		"52.3", "41.1", "8.50", "77.7",
		"1.500", "0.250", "0.000", "2.000",
		"231", "12.3", "1.00",
	}
	got := rec.fields()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("fields =\n  %s\nwant\n  %s", strings.Join(got, ","), strings.Join(want, ","))
	}
	if len(got) != len(Header) {
		t.Errorf("field count = %d, header has %d columns", len(got), len(Header))
	}
}

func TestWriterHeaderOnceAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	for session := 0; session < 2; session++ {
		w, err := NewWriter(path, 0, nil)
		if err != nil {
			t.Fatalf("session %d: NewWriter error: %v", session, err)
		}
		w.Enqueue(FromSnapshot(testSnapshot()))
		if err := w.Close(); err != nil {
			t.Fatalf("session %d: Close error: %v", session, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	content := string(data)

	if n := strings.Count(content, "timestamp,cpu_percent"); n != 1 {
		t.Errorf("header written %d times, want exactly once:\n%s", n, content)
	}

	rows, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("parse written CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("row count = %d (incl header), want 3", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("first row = %v, want header", rows[0])
	}
}

func TestWriterPreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	w, err := NewWriter(path, 0, nil)
	if err != nil {
		t.Fatalf("NewWriter error: %v", err)
	}
	base := testSnapshot()
	for i := 0; i < 5; i++ {
		snap := base
		snap.ProcessCount = 100 + i
		w.Enqueue(FromSnapshot(snap))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse written CSV: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("row count = %d (incl header), want 6", len(rows))
	}
	for i, row := range rows[1:] {
		want := []string{"100", "101", "102", "103", "104"}[i]
		if row[9] != want {
			t.Errorf("row %d process_count = %s, want %s", i, row[9], want)
		}
	}
}

func TestWriterCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	w, err := NewWriter(path, 0, nil)
	if err != nil {
		t.Fatalf("NewWriter error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}

	// Enqueue after Close must be a no-op, not a panic.
	w.Enqueue(FromSnapshot(testSnapshot()))
}
