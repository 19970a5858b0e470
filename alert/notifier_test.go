package alert

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/metrics"
	"gitlab.com/tinyland/lab/host-pulse/state"
)

// fakeTransport records sends on a channel so tests can wait for the
// fire-and-forget goroutines.
type fakeTransport struct {
	name string
	err  error
	sent chan string
}

func newFakeTransport(name string) *fakeTransport {
	return &fakeTransport{name: name, sent: make(chan string, 16)}
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Send(ctx context.Context, subject, body string) error {
	f.sent <- subject + "\n" + body
	return f.err
}

// waitSend receives one recorded send or fails the test.
func waitSend(t *testing.T, f *fakeTransport) string {
	t.Helper()
	select {
	case msg := <-f.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transport send")
		return ""
	}
}

var alarmThresholds = Thresholds{CPUPercent: 90, RAMPercent: 90, DiskPercent: 95}

func breachingSnapshot(at time.Time) metrics.Snapshot {
	return metrics.Snapshot{Timestamp: at, CPUPercent: 97.0, RAMPercent: 50, DiskPercent: 50}
}

// TestNotifierFiresThenCools verifies at most one notification per
// cooldown window: the second breach leaves the gate untouched.
func TestNotifierFiresThenCools(t *testing.T) {
	tr := newFakeTransport("fake")
	n := NewNotifier(alarmThresholds, 300*time.Second, []Transport{tr}, nil, nil)

	t0 := time.Unix(50000, 0)
	clock := t0
	n.now = func() time.Time { return clock }

	n.Check(breachingSnapshot(t0))
	waitSend(t, tr)

	if got := n.Gate().LastFired(); !got.Equal(t0) {
		t.Errorf("LastFired = %v, want %v", got, t0)
	}

	// A breach 100s later is suppressed: the stamp must not move.
	clock = t0.Add(100 * time.Second)
	n.Check(breachingSnapshot(clock))

	if got := n.Gate().LastFired(); !got.Equal(t0) {
		t.Errorf("LastFired moved to %v during cooldown, want %v", got, t0)
	}

	// After the cooldown the gate fires again.
	clock = t0.Add(301 * time.Second)
	n.Check(breachingSnapshot(clock))
	waitSend(t, tr)

	if got := n.Gate().LastFired(); !got.Equal(clock) {
		t.Errorf("LastFired = %v after cooldown, want %v", got, clock)
	}
}

// TestNotifierNoBreachNoFire verifies a healthy snapshot leaves the gate
// idle and sends nothing.
func TestNotifierNoBreachNoFire(t *testing.T) {
	tr := newFakeTransport("fake")
	n := NewNotifier(alarmThresholds, 300*time.Second, []Transport{tr}, nil, nil)

	n.Check(metrics.Snapshot{Timestamp: time.Now(), CPUPercent: 10, RAMPercent: 10, DiskPercent: 10})

	if !n.Gate().LastFired().IsZero() {
		t.Error("gate fired for a healthy snapshot")
	}
	select {
	case msg := <-tr.sent:
		t.Errorf("unexpected send: %q", msg)
	default:
	}
}

// TestNotifierBodyListsAllBreaches verifies the message covers every
// breaching metric, not just the first.
func TestNotifierBodyListsAllBreaches(t *testing.T) {
	tr := newFakeTransport("fake")
	n := NewNotifier(alarmThresholds, 300*time.Second, []Transport{tr}, nil, nil)

	at := time.Unix(60000, 0)
	n.now = func() time.Time { return at }
	n.Check(metrics.Snapshot{Timestamp: at, CPUPercent: 95, RAMPercent: 93, DiskPercent: 99})

	msg := waitSend(t, tr)
	for _, metric := range []string{"CPU", "RAM", "Disk"} {
		if !strings.Contains(msg, metric+" usage is ") {
			t.Errorf("message missing %s breach:\n%s", metric, msg)
		}
	}
}

// TestNotifierFansOutToAllTransports verifies every configured transport
// receives a permitted fire.
func TestNotifierFansOutToAllTransports(t *testing.T) {
	tr1 := newFakeTransport("one")
	tr2 := newFakeTransport("two")
	n := NewNotifier(alarmThresholds, 300*time.Second, []Transport{tr1, tr2}, nil, nil)

	n.Check(breachingSnapshot(time.Now()))

	waitSend(t, tr1)
	waitSend(t, tr2)
}

// TestNotifierSendFailureKeepsGate verifies a failing transport does not
// revert the gate: no retry, no alert storm.
func TestNotifierSendFailureKeepsGate(t *testing.T) {
	tr := newFakeTransport("flaky")
	tr.err = errors.New("connection refused")
	n := NewNotifier(alarmThresholds, 300*time.Second, []Transport{tr}, nil, nil)

	t0 := time.Unix(50000, 0)
	clock := t0
	n.now = func() time.Time { return clock }

	n.Check(breachingSnapshot(t0))
	waitSend(t, tr)

	// The failed send must not reopen the gate.
	clock = t0.Add(10 * time.Second)
	n.Check(breachingSnapshot(clock))
	if got := n.Gate().LastFired(); !got.Equal(t0) {
		t.Errorf("LastFired = %v after failed send, want %v (unchanged)", got, t0)
	}
}

// TestNotifierPersistence verifies the gate survives a restart through
// the state store, so a relaunch inside the cooldown stays quiet.
func TestNotifierPersistence(t *testing.T) {
	dir := t.TempDir()
	store, err := state.NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}

	tr := newFakeTransport("fake")
	n1 := NewNotifier(alarmThresholds, 300*time.Second, []Transport{tr}, store, nil)

	t0 := time.Unix(50000, 0)
	n1.now = func() time.Time { return t0 }
	n1.Check(breachingSnapshot(t0))
	waitSend(t, tr)

	// A fresh notifier over the same store restores the stamp.
	n2 := NewNotifier(alarmThresholds, 300*time.Second, []Transport{tr}, store, nil)
	if got := n2.Gate().LastFired(); !got.Equal(t0) {
		t.Fatalf("restored LastFired = %v, want %v", got, t0)
	}

	clock := t0.Add(100 * time.Second)
	n2.now = func() time.Time { return clock }
	n2.Check(breachingSnapshot(clock))
	if got := n2.Gate().LastFired(); !got.Equal(t0) {
		t.Errorf("restarted notifier re-fired during cooldown: LastFired = %v", got)
	}
}
