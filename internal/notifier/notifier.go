package notifier

import (
	"context"

	"github.com/mauv0809/match-ledger/internal/pubsub"
)

// Notifier defines a high-level interface for sending notifications about match events.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev pubsub.MatchEvent) error
}
