package workflow

import (
	"context"
	"database/sql"
	"time"

	"github.com/mauv0809/match-ledger/internal/club"
	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/mauv0809/match-ledger/internal/lock"
	"github.com/mauv0809/match-ledger/internal/metrics"
	"github.com/mauv0809/match-ledger/internal/pubsub"
	"github.com/mauv0809/match-ledger/internal/rating"
)

// Publisher delivers match events once a transition has committed.
type Publisher interface {
	Publish(ctx context.Context, ev pubsub.MatchEvent) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	DB        *sql.DB
	Ledger    ledger.Ledger
	Ratings   rating.Store
	Adjuster  *rating.Adjuster
	Clubs     club.Directory
	Locker    lock.Locker
	Publisher Publisher
	Metrics   metrics.Metrics
	// MaxFinalizeAttempts bounds the retries after a rating version
	// conflict.
	MaxFinalizeAttempts int
}

// Service runs the match confirmation workflow.
type Service struct {
	db          *sql.DB
	ledger      ledger.Ledger
	ratings     rating.Store
	adjuster    *rating.Adjuster
	clubs       club.Directory
	locker      lock.Locker
	publisher   Publisher
	metrics     metrics.Metrics
	maxAttempts int
	now         func() time.Time
	newID       func() string
}

// SubmitRequest describes a played match reported by its initiator.
type SubmitRequest struct {
	ClubID      string
	InitiatorID string
	Mode        ledger.Mode
	Format      ledger.Format
	Date        string
	Location    string
	// PartnerID is the initiator's partner, doubles only.
	PartnerID string
	// OpponentIDs holds one opponent for singles and two for doubles.
	OpponentIDs     []string
	ScoreInitiator  int
	ScoreOpponent   int
	ClientRequestID string
}

// ListFinalizedRequest selects a page of a player's finalized matches.
type ListFinalizedRequest struct {
	CallerID string
	PlayerID string
	Mode     ledger.Mode
	Limit    int
	Offset   int
	Before   *int64
}

// FinalizedPage is one page of finalized matches as seen by the caller.
type FinalizedPage struct {
	Matches    []*MatchView `json:"matches"`
	NextBefore *int64       `json:"next_before,omitempty"`
}

// PlayerRating is a player's current ratings with recent history.
type PlayerRating struct {
	*rating.Player
	SinglesHistory []rating.HistoryEntry `json:"singles_history"`
	DoublesHistory []rating.HistoryEntry `json:"doubles_history"`
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, pubsub.MatchEvent) error { return nil }
