package alert

import (
	"context"
	"io"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
	"gitlab.com/tinyland/lab/host-pulse/state"
	"gitlab.com/tinyland/lab/host-pulse/telemetry"
)

const (
	// sendTimeout bounds one fire-and-forget transport send.
	sendTimeout = 30 * time.Second

	// gateStateKey is the state-store entry holding the last fire time.
	gateStateKey = "alertgate"
)

// gateState is the persisted part of the gate, enough to keep the
// cooldown honest across restarts.
type gateState struct {
	LastFired time.Time `json:"last_fired"`
}

// Notifier ties threshold evaluation, the cooldown gate, and the
// configured transports together. The sampler hands it every snapshot;
// it fires at most one notification per cooldown window and never
// blocks the sampling cycle.
type Notifier struct {
	logger     *slog.Logger
	gate       *Gate
	thresholds Thresholds
	transports []Transport

	// store persists the gate across restarts; nil disables persistence.
	store *state.Store

	// now is replaceable for deterministic tests.
	now func() time.Time
}

// NewNotifier creates a Notifier and restores the gate's last fire time
// from the state store when one is present.
func NewNotifier(th Thresholds, cooldown time.Duration, transports []Transport, store *state.Store, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	n := &Notifier{
		logger:     logger,
		gate:       NewGate(cooldown),
		thresholds: th,
		transports: transports,
		store:      store,
		now:        time.Now,
	}

	if store != nil {
		var st gateState
		if found, err := store.Load(gateStateKey, &st); err != nil {
			logger.Warn("alert: load gate state", "error", err)
		} else if found && !st.LastFired.IsZero() {
			n.gate.RestoreLastFired(st.LastFired)
			logger.Debug("alert gate restored", "last_fired", st.LastFired)
		}
	}

	return n
}

// Gate exposes the cooldown gate for read-only dashboard status.
func (n *Notifier) Gate() *Gate {
	return n.gate
}

// Check evaluates the snapshot and, when the gate permits, dispatches
// one notification listing every breaching metric. Transport sends run
// as fire-and-forget goroutines; their results are logged, never
// awaited, and abandoned on shutdown.
func (n *Notifier) Check(snap metrics.Snapshot) {
	breaches := EvaluateThresholds(snap, n.thresholds)
	if len(breaches) == 0 {
		return
	}

	now := n.now()
	if !n.gate.Permit(now) {
		telemetry.BreachesSuppressed.Inc()
		n.logger.Debug("breaches suppressed during cooldown",
			"breaches", len(breaches),
			"remaining", n.gate.Remaining(now).Round(time.Second),
		)
		return
	}

	telemetry.AlertsFired.Inc()
	n.persistLastFired(now)

	subject, body := ComposeMessage(snap.Timestamp, breaches)
	n.logger.Info("alert fired", "breaches", len(breaches), "subject", subject)

	for _, tr := range n.transports {
		go n.send(tr, subject, body)
	}
}

// send runs one single-attempt transport delivery. A failure is logged
// and counted; the gate state is deliberately left unchanged, trading
// guaranteed delivery for freedom from alert storms.
func (n *Notifier) send(tr Transport, subject, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := tr.Send(ctx, subject, body); err != nil {
		telemetry.AlertSendFailures.WithLabelValues(tr.Name()).Inc()
		n.logger.Error("alert send failed", "transport", tr.Name(), "error", err)
		return
	}

	n.logger.Info("alert sent", "transport", tr.Name())
}

// persistLastFired saves the gate state, best-effort.
func (n *Notifier) persistLastFired(at time.Time) {
	if n.store == nil {
		return
	}
	if err := n.store.Save(gateStateKey, gateState{LastFired: at}); err != nil {
		n.logger.Warn("alert: persist gate state", "error", err)
	}
}
