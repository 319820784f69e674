package ledger

import (
	"context"

	"github.com/mauv0809/match-ledger/internal/database"
)

// Ledger is the durable record of submitted matches. Every method takes the
// Querier to run against, so reads and writes can join the caller's
// transaction.
type Ledger interface {
	Create(ctx context.Context, q database.Querier, m *Match) error
	Get(ctx context.Context, q database.Querier, clubID, matchID string) (*Match, error)
	FindByRequestID(ctx context.Context, q database.Querier, clubID, initiatorID, requestID string) (*Match, error)
	Update(ctx context.Context, q database.Querier, m *Match) error
	NextFinalizedSeq(ctx context.Context, q database.Querier) (int64, error)
	ListPendingFor(ctx context.Context, q database.Querier, userID string) ([]*Match, error)
	ListPendingForApproval(ctx context.Context, q database.Querier, clubID string) ([]*Match, error)
	ListFinalized(ctx context.Context, q database.Querier, playerID string, mode Mode, limit, offset int, before *int64) (*Page, error)
}
