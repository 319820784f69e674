package notifier

import (
	"context"
	"sync"

	"github.com/mauv0809/match-ledger/internal/pubsub"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	NotifyFunc func(ev pubsub.MatchEvent) error

	// Call records
	NotifyCalls []pubsub.MatchEvent
}

var _ Notifier = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyCalls = nil
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Notify(ctx context.Context, ev pubsub.MatchEvent) error {
	m.mu.Lock()
	m.NotifyCalls = append(m.NotifyCalls, ev)
	fn := m.NotifyFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ev)
	}
	return nil
}

// Events returns a copy of the recorded events.
func (m *Mock) Events() []pubsub.MatchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pubsub.MatchEvent(nil), m.NotifyCalls...)
}
