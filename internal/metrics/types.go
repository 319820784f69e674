package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	Transitions         *prometheus.CounterVec
	TransitionDuration  *prometheus.HistogramVec
	Finalized           *prometheus.CounterVec
	RatingConflicts     prometheus.Counter
	EventsPublished     prometheus.Counter
	EventsPublishFailed prometheus.Counter
	NotifSent           prometheus.Counter
	NotifFailed         prometheus.Counter
	StartupTimeSeconds  prometheus.Gauge
}
