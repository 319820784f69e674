package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/match-ledger/internal/pubsub"
	"golang.org/x/sync/errgroup"
)

// Dispatcher fans an event out to every configured Notifier.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
}

// NewDispatcher creates a Dispatcher. Nil notifiers are skipped.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{timeout: 10 * time.Second}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

// Dispatch delivers ev to all notifiers concurrently. One failing notifier
// does not stop the others; the first error is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, ev pubsub.MatchEvent) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var g errgroup.Group
	for _, n := range d.notifiers {
		g.Go(func() error {
			if err := n.Notify(ctx, ev); err != nil {
				log.Error("Notifier failed", "notifier", n.Name(), "event", ev.Type, "matchID", ev.MatchID, "error", err)
				return fmt.Errorf("%s: %w", n.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
