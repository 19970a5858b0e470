package alert

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const (
	// webhookTimeout bounds one webhook delivery attempt.
	webhookTimeout = 10 * time.Second

	// webhookMaxResponseBytes limits how much of an error response body
	// is read back for diagnostics.
	webhookMaxResponseBytes = 4 << 10
)

// Transport delivers a composed notification through one external
// channel. Sends are single-attempt; the caller logs failures and never
// retries.
type Transport interface {
	Name() string
	Send(ctx context.Context, subject, body string) error
}

// SMTPTransport sends the notification as a plain-text email. The
// connection upgrades to TLS when the server offers STARTTLS and
// authenticates only when a username is configured.
type SMTPTransport struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Name identifies the transport in logs and counters.
func (t *SMTPTransport) Name() string { return "smtp" }

// Send delivers one message. The context's deadline bounds the whole
// exchange via the connection deadline.
func (t *SMTPTransport) Send(ctx context.Context, subject, body string) error {
	addr := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("alert: smtp dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("alert: smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.Host}); err != nil {
			return fmt.Errorf("alert: smtp starttls: %w", err)
		}
	}

	if t.Username != "" {
		auth := smtp.PlainAuth("", t.Username, t.Password, t.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("alert: smtp auth: %w", err)
		}
	}

	if err := client.Mail(t.From); err != nil {
		return fmt.Errorf("alert: smtp mail from: %w", err)
	}
	for _, rcpt := range t.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("alert: smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("alert: smtp data: %w", err)
	}
	if _, err := w.Write(t.message(subject, body)); err != nil {
		return fmt.Errorf("alert: smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("alert: smtp finish body: %w", err)
	}

	return client.Quit()
}

// message assembles the RFC 5322 payload for one notification.
func (t *SMTPTransport) message(subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", t.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(t.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// webhookPayload is the JSON body POSTed by WebhookTransport.
type webhookPayload struct {
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookTransport POSTs the notification as JSON to a configured URL.
type WebhookTransport struct {
	url        string
	httpClient *http.Client
}

// NewWebhookTransport creates a WebhookTransport with a bounded-timeout
// HTTP client.
func NewWebhookTransport(url string) *WebhookTransport {
	return &WebhookTransport{
		url: url,
		httpClient: &http.Client{
			Timeout: webhookTimeout,
		},
	}
}

// Name identifies the transport in logs and counters.
func (t *WebhookTransport) Name() string { return "webhook" }

// Send delivers one notification. Any non-2xx response is a failure.
func (t *WebhookTransport) Send(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{
		Subject:   subject,
		Body:      body,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("alert: webhook marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("alert: webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("alert: webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, webhookMaxResponseBytes))
		return fmt.Errorf("alert: webhook status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// LogTransport writes the notification to the logger only. It keeps the
// gate's behavior observable when no real transport is configured.
type LogTransport struct {
	Logger *slog.Logger
}

// Name identifies the transport in logs and counters.
func (t *LogTransport) Name() string { return "log" }

// Send records the notification and always succeeds.
func (t *LogTransport) Send(ctx context.Context, subject, body string) error {
	t.Logger.Warn("alert notification", "subject", subject, "body", body)
	return nil
}

// Compile-time interface compliance checks.
var (
	_ Transport = (*SMTPTransport)(nil)
	_ Transport = (*WebhookTransport)(nil)
	_ Transport = (*LogTransport)(nil)
)
