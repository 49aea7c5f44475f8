// Package notify delivers scan alerts. The daemon sends an email through the
// Brevo transactional API when a scan produces recommendations; environments
// without credentials fall back to logging the alert.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"diphunter/internal/util"
)

// Notifier delivers one alert message.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Compile-time interface checks.
var _ Notifier = (*LogNotifier)(nil)
var _ Notifier = (*BrevoNotifier)(nil)

// LogNotifier writes alerts to the structured log. It is the fallback when no
// email credentials are configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger falls back to
// slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{log: logger.With("component", "notify")}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, subject, body string) error {
	n.log.Info("alert", "subject", subject, "body", body)
	return nil
}

const defaultBrevoBaseURL = "https://api.brevo.com"

// BrevoNotifier sends transactional email through the Brevo v3 SMTP API.
type BrevoNotifier struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	fromName  string
	fromEmail string
	toEmail   string
	log       *slog.Logger
}

// NewBrevoNotifier creates a BrevoNotifier. An empty baseURL uses the public
// Brevo endpoint; tests point it at a local server.
func NewBrevoNotifier(apiKey, fromName, fromEmail, toEmail, baseURL string, logger *slog.Logger) *BrevoNotifier {
	if baseURL == "" {
		baseURL = defaultBrevoBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BrevoNotifier{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   baseURL,
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
		toEmail:   toEmail,
		log:       logger.With("component", "notify"),
	}
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	TextContent string         `json:"textContent"`
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Notify sends the alert email, retrying transient failures.
func (n *BrevoNotifier) Notify(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(brevoEmail{
		Sender:      brevoAddress{Name: n.fromName, Email: n.fromEmail},
		To:          []brevoAddress{{Email: n.toEmail}},
		Subject:     subject,
		TextContent: body,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	err = util.Retry(ctx, 3, time.Second, func() error {
		return n.send(ctx, payload)
	})
	if err != nil {
		return fmt.Errorf("sending alert email: %w", err)
	}
	n.log.Info("alert email sent", "subject", subject, "to", n.toEmail)
	return nil
}

func (n *BrevoNotifier) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.baseURL+"/v3/smtp/email", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
