package metrics

// Metrics defines the interface for collecting application metrics.
type Metrics interface {
	IncTransition(op, outcome string)
	ObserveTransitionDuration(op string, duration float64)
	IncFinalized(mode string)
	IncRatingConflicts()
	IncEventsPublished()
	IncEventsPublishFailed()
	IncNotifSent()
	IncNotifFailed()
	SetStartupTime(duration float64)
}
