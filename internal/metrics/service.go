package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_ledger_transitions_total",
			Help: "Workflow operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		TransitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "match_ledger_transition_duration_seconds",
			Help:    "The duration of workflow operations, lock wait included.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		Finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "match_ledger_matches_finalized_total",
			Help: "The total number of matches finalized and rated.",
		}, []string{"mode"}),
		RatingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "match_ledger_rating_conflicts_total",
			Help: "Finalization attempts retried after a rating version conflict.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "match_ledger_events_published_total",
			Help: "The total number of match events published.",
		}),
		EventsPublishFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "match_ledger_events_publish_failed_total",
			Help: "The total number of match events that failed to publish.",
		}),
		NotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "match_ledger_notifications_sent_total",
			Help: "The total number of notifications successfully sent.",
		}),
		NotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "match_ledger_notifications_failed_total",
			Help: "The total number of notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "match_ledger_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.Transitions,
		s.TransitionDuration,
		s.Finalized,
		s.RatingConflicts,
		s.EventsPublished,
		s.EventsPublishFailed,
		s.NotifSent,
		s.NotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncTransition(op, outcome string) {
	s.Transitions.WithLabelValues(op, outcome).Inc()
}

func (s *Service) ObserveTransitionDuration(op string, duration float64) {
	s.TransitionDuration.WithLabelValues(op).Observe(duration)
}

func (s *Service) IncFinalized(mode string) {
	s.Finalized.WithLabelValues(mode).Inc()
}

func (s *Service) IncRatingConflicts() {
	s.RatingConflicts.Inc()
}

func (s *Service) IncEventsPublished() {
	s.EventsPublished.Inc()
}

func (s *Service) IncEventsPublishFailed() {
	s.EventsPublishFailed.Inc()
}

func (s *Service) IncNotifSent() {
	s.NotifSent.Inc()
}

func (s *Service) IncNotifFailed() {
	s.NotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
