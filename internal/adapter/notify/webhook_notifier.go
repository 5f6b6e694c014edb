package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WebhookNotifier POSTs notifications as JSON to a configured URL. The
// subscriber on the other end is outside this service; delivery is best
// effort and bounded by the client timeout.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier returns a notifier targeting url.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	AdID    uuid.UUID `json:"ad_id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// Emit delivers one notification. Non-2xx responses are reported as
// errors so the caller can log them.
func (n *WebhookNotifier) Emit(ctx context.Context, adID uuid.UUID, title, message string) error {
	body, err := json.Marshal(webhookPayload{AdID: adID, Title: title, Message: message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
