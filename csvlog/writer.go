// Package csvlog persists one CSV row per collection cycle without ever
// blocking the sampling loop. Records pass through a bounded in-memory
// queue to a dedicated writer goroutine; when the queue is full the
// oldest pending record is dropped so memory stays bounded and the
// newest data survives. Every accepted row is flushed before the next
// one is taken, so a crash loses at most the row being written.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gitlab.com/tinyland/lab/host-pulse/telemetry"
)

// DefaultQueueCap absorbs a transient disk stall of several minutes at a
// one-second sample interval before anything is lost.
const DefaultQueueCap = 1000

// recordQueue is the producer/consumer buffer between the sampling loop
// and the writer goroutine. Push never blocks; overflow evicts the
// oldest pending record.
type recordQueue struct {
	mu    sync.Mutex
	items []Record
	cap   int
}

func newRecordQueue(capacity int) *recordQueue {
	if capacity < 1 {
		capacity = DefaultQueueCap
	}
	return &recordQueue{cap: capacity}
}

// push appends rec, evicting from the front if the queue is full.
// It reports how many records were dropped to make room.
func (q *recordQueue) push(rec Record) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := 0
	if len(q.items) >= q.cap {
		dropped = len(q.items) - q.cap + 1
		q.items = append(q.items[:0], q.items[dropped:]...)
	}
	q.items = append(q.items, rec)
	return dropped
}

// popAll takes every pending record, oldest first.
func (q *recordQueue) popAll() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

func (q *recordQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Writer appends records to a CSV file from its own goroutine.
type Writer struct {
	path   string
	logger *slog.Logger

	queue *recordQueue
	wake  chan struct{}
	quit  chan struct{}
	done  chan struct{}

	mu     sync.Mutex
	closed bool
	file   *os.File
	csv    *csv.Writer
}

// NewWriter opens (or creates) the log file at path and starts the
// writer goroutine. The header row is written only when the file did not
// previously exist, so restarts keep appending to the same log.
func NewWriter(path string, queueCap int, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	_, statErr := os.Stat(path)
	needHeader := os.IsNotExist(statErr)
	if statErr != nil && !os.IsNotExist(statErr) {
		return nil, fmt.Errorf("csvlog: stat %s: %w", path, statErr)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvlog: open %s: %w", path, err)
	}

	w := &Writer{
		path:   path,
		logger: logger,
		queue:  newRecordQueue(queueCap),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		file:   file,
		csv:    csv.NewWriter(file),
	}

	if needHeader {
		if err := w.writeRow(Header); err != nil {
			file.Close()
			return nil, fmt.Errorf("csvlog: write header: %w", err)
		}
		logger.Debug("log file created", "path", path)
	}

	go w.run()
	return w, nil
}

// Path returns the location of the log file.
func (w *Writer) Path() string { return w.path }

// Enqueue hands a record to the writer goroutine. It never blocks; if
// the queue is full the oldest pending record is discarded first.
func (w *Writer) Enqueue(rec Record) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	if dropped := w.queue.push(rec); dropped > 0 {
		telemetry.LogRecordsDropped.Add(float64(dropped))
		w.logger.Debug("log queue full, dropped oldest", "dropped", dropped)
	}

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close drains outstanding records, flushes and closes the file. It is
// safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.quit)
	<-w.done

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("csvlog: sync %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("csvlog: close %s: %w", w.path, err)
	}
	return nil
}

// run blocks until woken by a producer or told to quit, draining the
// queue each time. The final drain on quit preserves shutdown records.
func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.quit:
			w.drain()
			return
		}
	}
}

func (w *Writer) drain() {
	for _, rec := range w.queue.popAll() {
		if err := w.writeRow(rec.fields()); err != nil {
			// Single attempt per record: a failed write is logged
			// and the record abandoned.
			w.logger.Warn("log write failed", "path", w.path, "error", err)
			continue
		}
		telemetry.LogRecordsWritten.Inc()
	}
}

// writeRow appends one row and flushes it through to the file.
func (w *Writer) writeRow(fields []string) error {
	if err := w.csv.Write(fields); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}
