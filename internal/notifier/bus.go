package notifier

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/match-ledger/internal/pubsub"
)

// LocalBus publishes events straight to a Dispatcher in the background. It
// is used when no Pub/Sub project is configured.
type LocalBus struct {
	dispatcher *Dispatcher
	wg         sync.WaitGroup
}

// NewLocalBus creates a LocalBus for d.
func NewLocalBus(d *Dispatcher) *LocalBus {
	return &LocalBus{dispatcher: d}
}

func (b *LocalBus) Publish(ctx context.Context, ev pubsub.MatchEvent) error {
	// The request context ends with the response.
	ctx = context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.dispatcher.Dispatch(ctx, ev); err != nil {
			log.Warn("Local dispatch incomplete", "event", ev.Type, "matchID", ev.MatchID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every published event has been dispatched.
func (b *LocalBus) Wait() {
	b.wg.Wait()
}

// PubSubBus publishes events to Google Pub/Sub, one topic per event type.
// Delivery comes back through the push endpoint.
type PubSubBus struct {
	client pubsub.PubSubClient
}

// NewPubSubBus creates a PubSubBus.
func NewPubSubBus(client pubsub.PubSubClient) *PubSubBus {
	return &PubSubBus{client: client}
}

func (b *PubSubBus) Publish(ctx context.Context, ev pubsub.MatchEvent) error {
	return b.client.SendMessage(ctx, ev.Type, ev)
}
