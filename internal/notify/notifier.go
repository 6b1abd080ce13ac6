// ABOUTME: Webhook notifier delivering alert messages with a send cooldown.
// ABOUTME: Lossy by design: messages inside the cooldown window are dropped.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ErrDeliveryFailed indicates the webhook rejected or never received the
// message. Callers log and move on; delivery is best-effort.
var ErrDeliveryFailed = errors.New("alert delivery failed")

// DefaultCooldown is the minimum spacing between successful deliveries.
const DefaultCooldown = 60 * time.Second

// payload is the webhook request body.
type payload struct {
	Text string `json:"text"`
}

// Notifier posts alert messages to a single outbound webhook. A zero-value
// webhook URL turns delivery into a logged no-op so a missing channel never
// takes the monitor down. The cooldown gates every caller through one shared
// timestamp, updated only on confirmed delivery.
type Notifier struct {
	webhookURL string
	cooldown   time.Duration
	client     *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	lastSent time.Time

	// now is swappable for tests.
	now func() time.Time
}

// New creates a notifier for the given webhook URL. A cooldown of zero
// falls back to DefaultCooldown.
func New(webhookURL string, cooldown time.Duration, logger *slog.Logger) *Notifier {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Notifier{
		webhookURL: webhookURL,
		cooldown:   cooldown,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

// Notify delivers a message to the alert channel. Messages inside the
// cooldown window of the last successful delivery are silently dropped.
// Returns ErrDeliveryFailed on transport failure or a non-2xx response;
// failed sends do not consume the cooldown window.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if n.webhookURL == "" {
		n.logger.Info("no alert webhook configured, logging locally", "message", message)
		return nil
	}

	n.mu.Lock()
	if since := n.now().Sub(n.lastSent); !n.lastSent.IsZero() && since < n.cooldown {
		n.mu.Unlock()
		n.logger.Debug("notification dropped inside cooldown window",
			"since_last", since,
			"cooldown", n.cooldown,
		)
		return nil
	}
	n.mu.Unlock()

	if err := n.post(ctx, message); err != nil {
		n.logger.Error("alert delivery failed", "error", err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	n.mu.Lock()
	n.lastSent = n.now()
	n.mu.Unlock()

	n.logger.Info("alert delivered", "length", len(message))
	return nil
}

// post performs the webhook request.
func (n *Notifier) post(ctx context.Context, message string) error {
	body, err := json.Marshal(payload{Text: message})
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
