// Package telemetry exposes the pipeline's own operational counters as
// Prometheus collectors, served at /metrics by the web server. Dropped
// log records, suppressed breaches, and transport failures never reach
// the CSV output; this is where they surface.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostpulse_cycles_total",
			Help: "Completed collection cycles",
		},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hostpulse_cycle_duration_seconds",
			Help:    "Wall-clock duration of one collection cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	LogRecordsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostpulse_log_records_written_total",
			Help: "Records flushed to the durable CSV log",
		},
	)

	LogRecordsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostpulse_log_records_dropped_total",
			Help: "Records evicted from the full log queue (oldest-first)",
		},
	)

	AlertsFired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostpulse_alerts_fired_total",
			Help: "Alert notifications permitted by the cooldown gate",
		},
	)

	AlertSendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostpulse_alert_send_failures_total",
			Help: "Alert transport sends that failed",
		},
		[]string{"transport"},
	)

	BreachesSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostpulse_alert_breaches_suppressed_total",
			Help: "Threshold breaches observed while the gate was cooling",
		},
	)

	ProcessScanSkips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostpulse_process_scan_skips_total",
			Help: "Processes skipped as unreadable during enumeration",
		},
	)

	SubscriberDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostpulse_subscriber_drops_total",
			Help: "Snapshots dropped on slow subscriber channels",
		},
	)

	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostpulse_websocket_clients",
			Help: "Currently connected websocket dashboard clients",
		},
	)

	CPUPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostpulse_cpu_percent",
			Help: "Latest sampled CPU usage percentage",
		},
	)

	RAMPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostpulse_ram_percent",
			Help: "Latest sampled RAM usage percentage",
		},
	)

	DiskPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostpulse_disk_percent",
			Help: "Latest sampled disk usage percentage",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hostpulse_http_request_duration_seconds",
			Help:    "Dashboard HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(LogRecordsWritten)
	prometheus.MustRegister(LogRecordsDropped)
	prometheus.MustRegister(AlertsFired)
	prometheus.MustRegister(AlertSendFailures)
	prometheus.MustRegister(BreachesSuppressed)
	prometheus.MustRegister(ProcessScanSkips)
	prometheus.MustRegister(SubscriberDrops)
	prometheus.MustRegister(WebsocketClients)
	prometheus.MustRegister(CPUPercent)
	prometheus.MustRegister(RAMPercent)
	prometheus.MustRegister(DiskPercent)
	prometheus.MustRegister(RequestDuration)
}

// ObserveCycle records one completed cycle and mirrors the snapshot's
// headline percentages onto scrape gauges.
func ObserveCycle(snap metrics.Snapshot, duration time.Duration) {
	CyclesTotal.Inc()
	CycleDuration.Observe(duration.Seconds())
	CPUPercent.Set(snap.CPUPercent)
	RAMPercent.Set(snap.RAMPercent)
	DiskPercent.Set(snap.DiskPercent)
}

// MetricsMiddleware counts basic request activity for the dashboard
// endpoints themselves.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
