package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DiscordWebhook posts moderation events to a Discord channel webhook.
// An empty webhook URL disables delivery entirely.
type DiscordWebhook struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordWebhook constructs a webhook notifier with a short timeout so a
// slow Discord endpoint cannot hold up a moderation request.
func NewDiscordWebhook(webhookURL string) *DiscordWebhook {
	return &DiscordWebhook{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Send posts the event as a Discord message with an embed carrying the
// payload fields. Each delivery is tagged with a fresh event id.
func (d *DiscordWebhook) Send(event string, payload map[string]interface{}) error {
	if d.webhookURL == "" {
		return nil
	}

	fields := make([]map[string]interface{}, 0, len(payload))
	for key, value := range payload {
		fields = append(fields, map[string]interface{}{
			"name":   key,
			"value":  fmt.Sprintf("%v", value),
			"inline": true,
		})
	}

	message := map[string]interface{}{
		"content": fmt.Sprintf("Moderation event: **%s**", event),
		"embeds": []map[string]interface{}{
			{
				"title":  event,
				"fields": fields,
				"footer": map[string]interface{}{
					"text": "event " + uuid.NewString(),
				},
			},
		},
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode webhook message: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
