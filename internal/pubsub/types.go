package pubsub

import (
	"time"

	"cloud.google.com/go/pubsub"
)

type client struct {
	client *pubsub.Client
}

// EventType represents the type of event/message sent via pubsub. It is
// also the topic name.
type EventType string

const (
	EventMatchSubmitted EventType = "match-submitted"
	EventMatchFinalized EventType = "match-finalized"
	EventMatchRejected  EventType = "match-rejected"
	EventMatchVetoed    EventType = "match-vetoed"
)

// EventTypes lists every event the workflow publishes.
var EventTypes = []EventType{EventMatchSubmitted, EventMatchFinalized, EventMatchRejected, EventMatchVetoed}

// Valid reports whether e is a known event type.
func (e EventType) Valid() bool {
	for _, t := range EventTypes {
		if t == e {
			return true
		}
	}
	return false
}

// EventParticipant is one player of the match in an event payload.
type EventParticipant struct {
	Slot        string   `msgpack:"slot" json:"slot"`
	UserID      string   `msgpack:"user_id" json:"user_id"`
	Delta       *float64 `msgpack:"delta,omitempty" json:"delta,omitempty"`
	RatingAfter *float64 `msgpack:"rating_after,omitempty" json:"rating_after,omitempty"`
}

// MatchEvent is published after a workflow transition commits.
type MatchEvent struct {
	Type           EventType          `msgpack:"type" json:"type"`
	MatchID        string             `msgpack:"match_id" json:"match_id"`
	ClubID         string             `msgpack:"club_id" json:"club_id"`
	Mode           string             `msgpack:"mode" json:"mode"`
	Format         string             `msgpack:"format" json:"format"`
	State          string             `msgpack:"state" json:"state"`
	ScoreInitiator int                `msgpack:"score_initiator" json:"score_initiator"`
	ScoreOpponent  int                `msgpack:"score_opponent" json:"score_opponent"`
	Participants   []EventParticipant `msgpack:"participants" json:"participants"`
	ActorID        string             `msgpack:"actor_id" json:"actor_id"`
	Reason         string             `msgpack:"reason,omitempty" json:"reason,omitempty"`
	OccurredAt     time.Time          `msgpack:"occurred_at" json:"occurred_at"`
}
