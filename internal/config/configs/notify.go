package configs

import "time"

// Notify configures the notification emitter. When WebhookURL is empty,
// notifications go to the structured log only.
type Notify struct {
	// WebhookURL receives limit-pause notifications as JSON POSTs.
	WebhookURL string `env:"WEBHOOK_URL" envDefault:""`
	// Timeout bounds each webhook delivery attempt.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
}
