package rating

import (
	"errors"
	"time"

	"github.com/mauv0809/match-ledger/internal/ledger"
)

var (
	// ErrPlayerNotFound is returned when no rating row exists for a player.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrVersionConflict is returned when a player's rating_version moved
	// between read and write.
	ErrVersionConflict = errors.New("rating version conflict")
	// ErrUnratedParticipant is returned when a participant has no rating for
	// the match mode and no bootstrap value is available.
	ErrUnratedParticipant = errors.New("participant has no rating")
)

// Player is a rated player. A nil rating means the player has never been
// rated in that mode.
type Player struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	SinglesRating *float64  `json:"singles_rating" yaml:"singles_rating"`
	DoublesRating *float64  `json:"doubles_rating" yaml:"doubles_rating"`
	RatingVersion int       `json:"rating_version" yaml:"-"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"-"`
}

// Rating returns the player's rating for mode, or nil.
func (p *Player) Rating(mode ledger.Mode) *float64 {
	if mode == ledger.ModeDoubles {
		return p.DoublesRating
	}
	return p.SinglesRating
}

// Change is one rating movement written by Apply. ExpectedVersion is the
// rating_version the change was computed from.
type Change struct {
	PlayerID        string
	MatchID         string
	Mode            ledger.Mode
	Before          float64
	After           float64
	Delta           float64
	ExpectedVersion int
}

// HistoryEntry is an applied Change.
type HistoryEntry struct {
	ID            int64       `json:"id"`
	PlayerID      string      `json:"player_id"`
	MatchID       string      `json:"match_id"`
	Mode          ledger.Mode `json:"mode"`
	RatingBefore  float64     `json:"rating_before"`
	RatingAfter   float64     `json:"rating_after"`
	Delta         float64     `json:"delta"`
	RatingVersion int         `json:"rating_version"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Adjustment is the engine's result for one participant slot.
type Adjustment struct {
	Slot   ledger.Slot
	Before float64
	After  float64
	Delta  float64
}

type store struct {
	now func() time.Time
}
