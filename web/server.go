// Package web serves the browser dashboard: an embedded single-page UI,
// a small JSON API over the live pipeline, a websocket snapshot stream
// and the CSV log download.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
	"gitlab.com/tinyland/lab/host-pulse/probe"
	"gitlab.com/tinyland/lab/host-pulse/sampler"
	"gitlab.com/tinyland/lab/host-pulse/telemetry"
)

//go:embed index.html
var indexHTML []byte

// Server is the HTTP front-end over a running sampling pipeline.
type Server struct {
	logger  *slog.Logger
	pipe    *sampler.Pipeline
	host    probe.Host
	logPath string

	hub     *Hub
	srv     *http.Server
	addr    string
	started time.Time
}

// NewServer wires the routes but does not listen yet; call Start.
// logPath names the CSV log served by the export endpoint and may point
// at a file that does not exist yet.
func NewServer(addr string, pipe *sampler.Pipeline, host probe.Host, logPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		logger:  logger,
		pipe:    pipe,
		host:    host,
		logPath: logPath,
		hub:     newHub(pipe, logger),
	}

	r := mux.NewRouter()
	r.Use(telemetry.MetricsMiddleware)
	s.registerRoutes(r)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.apiStats).Methods(http.MethodGet)
	r.HandleFunc("/api/history", s.apiHistory).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/export", s.export).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Start binds the listener and serves in the background. A bind failure
// is returned synchronously; later serve errors only get logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("web: listen on %s: %w", s.srv.Addr, err)
	}
	s.addr = ln.Addr().String()
	s.started = time.Now()

	go s.hub.run()
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server failed", "error", err)
		}
	}()

	s.logger.Info("web dashboard listening", "addr", s.addr)
	return nil
}

// Addr reports the bound address, useful when Start was given port 0.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown disconnects the websocket clients and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.stop()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return nil
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// statsResponse is the /api/stats payload. Snapshot is null until the
// first cycle completes.
type statsResponse struct {
	Host     probe.Host        `json:"host"`
	Snapshot *metrics.Snapshot `json:"snapshot"`
}

func (s *Server) apiStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Host: s.host}
	if snap, ok := s.pipe.Latest(); ok {
		resp.Snapshot = &snap
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// apiHistory dumps the ring buffers, oldest first. With ?key= only that
// series is returned; an unknown key is a 404.
func (s *Server) apiHistory(w http.ResponseWriter, r *http.Request) {
	history := s.pipe.History()
	if key := r.URL.Query().Get("key"); key != "" {
		series := history.Snapshot(key)
		if series == nil {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown series: " + key})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string][]float64{key: series})
		return
	}
	s.writeJSON(w, http.StatusOK, history.SnapshotAll())
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.logPath); err != nil {
		http.Error(w, "no log recorded yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(s.logPath)))
	http.ServeFile(w, r, s.logPath)
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	LastCycle     string  `json:"last_cycle,omitempty"`
	CycleAge      float64 `json:"cycle_age_seconds,omitempty"`
	Clients       int     `json:"ws_clients"`
}

// healthz reports ok while cycles keep landing, stale once the latest
// snapshot is older than three intervals, starting before the first one.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "starting",
		UptimeSeconds: time.Since(s.started).Seconds(),
		Clients:       s.hub.clientCount(),
	}
	status := http.StatusOK
	if snap, ok := s.pipe.Latest(); ok {
		age := time.Since(snap.Timestamp)
		resp.LastCycle = snap.Timestamp.Format(metrics.TimestampLayout)
		resp.CycleAge = age.Seconds()
		resp.Status = "ok"
		if age > 3*s.pipe.Config().Interval {
			resp.Status = "stale"
			status = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write json response", "error", err)
	}
}
