package web

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/sampler"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubBroadcastDropsNewestWhenClientFull(t *testing.T) {
	pipe := sampler.New(sampler.Config{}, sampler.Deps{System: &fakeSystem{}, Procs: fakeProcs{}})
	h := newHub(pipe, discardLogger())

	c := &client{send: make(chan []byte, 1)}
	h.clients[c] = struct{}{}

	h.broadcast([]byte("first"))
	h.broadcast([]byte("second"))

	if got := len(c.send); got != 1 {
		t.Fatalf("expected 1 queued frame, got %d", got)
	}
	if got := string(<-c.send); got != "first" {
		t.Errorf("expected queued frame %q, got %q", "first", got)
	}
	if _, ok := h.clients[c]; !ok {
		t.Error("expected slow client to stay registered")
	}
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	pipe := sampler.New(sampler.Config{}, sampler.Deps{System: &fakeSystem{}, Procs: fakeProcs{}})
	h := newHub(pipe, discardLogger())

	a := &client{send: make(chan []byte, clientBuffer)}
	b := &client{send: make(chan []byte, clientBuffer)}
	h.clients[a] = struct{}{}
	h.clients[b] = struct{}{}

	h.broadcast([]byte("frame"))

	for name, c := range map[string]*client{"a": a, "b": b} {
		select {
		case got := <-c.send:
			if string(got) != "frame" {
				t.Errorf("client %s: expected %q, got %q", name, "frame", got)
			}
		default:
			t.Errorf("client %s received no frame", name)
		}
	}
}

func TestHubStopEndsRunLoop(t *testing.T) {
	pipe := sampler.New(sampler.Config{}, sampler.Deps{System: &fakeSystem{}, Procs: fakeProcs{}})
	h := newHub(pipe, discardLogger())

	go h.run()

	stopped := make(chan struct{})
	go func() {
		h.stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop within 2s")
	}
	if got := h.clientCount(); got != 0 {
		t.Errorf("expected 0 clients after stop, got %d", got)
	}
}
