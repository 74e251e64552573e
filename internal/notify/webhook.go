package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Sentinel errors for webhook delivery failures.
var (
	ErrWebhookUnreachable = errors.New("mailer webhook unreachable")
	ErrWebhookRejected    = errors.New("mailer webhook rejected event")
	ErrWebhookTimeout     = errors.New("mailer webhook timeout")
)

// WebhookDispatcher POSTs each event as JSON to the mailer's HTTP endpoint.
type WebhookDispatcher struct {
	url      string
	username string
	password string
	client   *http.Client
}

// NewWebhookDispatcher creates a dispatcher posting to url. Basic auth is
// sent when both username and password are set.
func NewWebhookDispatcher(url, username, password string, timeout time.Duration) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:      url,
		username: username,
		password: password,
		client:   &http.Client{Timeout: timeout},
	}
}

func (d *WebhookDispatcher) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Kind", string(event.Kind))
	if d.username != "" && d.password != "" {
		req.SetBasicAuth(d.username, d.password)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrWebhookRejected, resp.StatusCode)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrWebhookTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrWebhookTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrWebhookUnreachable, err)
}

var _ Dispatcher = (*WebhookDispatcher)(nil)
