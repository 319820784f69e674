package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	transitions         map[string]int
	durations           []float64
	finalized           map[string]int
	ratingConflicts     int
	eventsPublished     int
	eventsPublishFailed int
	notifSent           int
	notifFailed         int
	startupTime         float64
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		transitions: make(map[string]int),
		finalized:   make(map[string]int),
	}
}

func (m *Mock) IncTransition(op, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[op+"/"+outcome]++
}

func (m *Mock) ObserveTransitionDuration(op string, duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, duration)
}

func (m *Mock) IncFinalized(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized[mode]++
}

func (m *Mock) IncRatingConflicts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratingConflicts++
}

func (m *Mock) IncEventsPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsPublished++
}

func (m *Mock) IncEventsPublishFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsPublishFailed++
}

func (m *Mock) IncNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifSent++
}

func (m *Mock) IncNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// Transitions returns how often op ended with outcome.
func (m *Mock) Transitions(op, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions[op+"/"+outcome]
}

// Finalized returns the number of finalizations recorded for mode.
func (m *Mock) Finalized(mode string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalized[mode]
}

// RatingConflicts returns the number of times IncRatingConflicts was called.
func (m *Mock) RatingConflicts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratingConflicts
}

// EventsPublished returns the number of times IncEventsPublished was called.
func (m *Mock) EventsPublished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsPublished
}

// EventsPublishFailed returns the number of times IncEventsPublishFailed was called.
func (m *Mock) EventsPublishFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsPublishFailed
}

// NotifSent returns the number of times IncNotifSent was called.
func (m *Mock) NotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifSent
}

// NotifFailed returns the number of times IncNotifFailed was called.
func (m *Mock) NotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifFailed
}
