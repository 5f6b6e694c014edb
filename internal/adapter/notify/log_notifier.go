package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogNotifier emits notifications to the structured log. It is the
// default when no webhook is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier writing to the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Emit logs the notification.
func (n *LogNotifier) Emit(_ context.Context, adID uuid.UUID, title, message string) error {
	n.logger.Info("ad notification",
		slog.String("ad_id", adID.String()),
		slog.String("title", title),
		slog.String("message", message))
	return nil
}
