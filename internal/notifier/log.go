package notifier

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/match-ledger/internal/pubsub"
)

// LogNotifier writes every event to the application log.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(ctx context.Context, ev pubsub.MatchEvent) error {
	log.Info("Match event",
		"event", ev.Type,
		"matchID", ev.MatchID,
		"clubID", ev.ClubID,
		"state", ev.State,
		"actor", ev.ActorID,
	)
	return nil
}
