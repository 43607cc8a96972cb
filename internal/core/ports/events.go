package ports

import (
	"context"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/core/domain"
)

// BILogger publishes business events. Write is fire-and-forget: sinks log their
// own failures and never block the caller on them.
type BILogger interface {
	Write(ctx context.Context, event domain.Event)
}
