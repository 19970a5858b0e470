package alert

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestWebhookTransportSend verifies the JSON payload and success path.
func TestWebhookTransportSend(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewWebhookTransport(server.URL)
	if err := tr.Send(context.Background(), "subj", "body text"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if got.Subject != "subj" || got.Body != "body text" {
		t.Errorf("payload = %+v, want subject/body set", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("payload timestamp is zero")
	}
}

// TestWebhookTransportFailureStatus verifies a non-2xx response is an
// error carrying the response snippet.
func TestWebhookTransportFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "burst into flames", http.StatusInternalServerError)
	}))
	defer server.Close()

	tr := NewWebhookTransport(server.URL)
	err := tr.Send(context.Background(), "s", "b")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "burst into flames") {
		t.Errorf("error = %v, want response snippet included", err)
	}
}

// TestWebhookTransportUnreachable verifies a connection failure is an
// error, not a panic or hang.
func TestWebhookTransportUnreachable(t *testing.T) {
	tr := NewWebhookTransport("http://127.0.0.1:1/nope")
	if err := tr.Send(context.Background(), "s", "b"); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}

// TestSMTPMessageFormat verifies the assembled mail payload carries the
// headers and body with CRLF separators.
func TestSMTPMessageFormat(t *testing.T) {
	tr := &SMTPTransport{
		From: "pulse@example.com",
		To:   []string{"ops@example.com", "oncall@example.com"},
	}

	msg := string(tr.message("SYSTEM ALERT: High Resource Usage", "CPU usage is 95.0% (> 90.0%)"))

	for _, want := range []string{
		"From: pulse@example.com\r\n",
		"To: ops@example.com, oncall@example.com\r\n",
		"Subject: SYSTEM ALERT: High Resource Usage\r\n",
		"Content-Type: text/plain; charset=utf-8\r\n",
		"\r\n\r\nCPU usage is 95.0% (> 90.0%)",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

// TestLogTransport verifies the fallback transport always succeeds.
func TestLogTransport(t *testing.T) {
	tr := &LogTransport{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if err := tr.Send(context.Background(), "s", "b"); err != nil {
		t.Errorf("Send error: %v, want nil", err)
	}
	if tr.Name() != "log" {
		t.Errorf("Name = %q, want log", tr.Name())
	}
}
