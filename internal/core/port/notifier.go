package port

import (
	"context"

	"github.com/google/uuid"
)

// Notifier is the outbound side channel for operator-facing signals, used
// when an ad is paused for reaching its limits. Delivery is best effort:
// the reconciler logs failures and moves on.
type Notifier interface {
	Emit(ctx context.Context, adID uuid.UUID, title, message string) error
}
