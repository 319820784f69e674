package rating

import (
	"context"

	"github.com/mauv0809/match-ledger/internal/database"
	"github.com/mauv0809/match-ledger/internal/ledger"
)

// Store is the Rating Store. Ratings change only through Apply.
type Store interface {
	Get(ctx context.Context, q database.Querier, playerID string) (*Player, error)
	// UpsertPlayer creates a player or updates its name. Ratings given on
	// the player are only written where none is stored yet.
	UpsertPlayer(ctx context.Context, q database.Querier, p Player) error
	Apply(ctx context.Context, q database.Querier, c Change) error
	History(ctx context.Context, q database.Querier, playerID string, mode ledger.Mode, limit int) ([]HistoryEntry, error)
}

// Bootstrap supplies a starting rating for a player who has none in mode.
type Bootstrap interface {
	Initial(p *Player, mode ledger.Mode) (float64, bool)
}
