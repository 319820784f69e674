package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/match-ledger/internal/database"
	"github.com/mauv0809/match-ledger/internal/ledger"
)

// Adjuster applies the engine to a match inside the caller's transaction.
type Adjuster struct {
	store     Store
	engine    *Engine
	bootstrap Bootstrap
}

// NewAdjuster creates an Adjuster. bootstrap may be nil, in which case
// unrated participants fail the adjustment.
func NewAdjuster(store Store, engine *Engine, bootstrap Bootstrap) *Adjuster {
	return &Adjuster{store: store, engine: engine, bootstrap: bootstrap}
}

// Adjust reads every participant's current rating through q, computes the
// adjustments and writes them with a rating_version compare-and-swap. The
// before, after and delta values are recorded on m's participants.
//
// It returns ErrUnratedParticipant when a rating is missing and cannot be
// bootstrapped, and ErrVersionConflict when a rating moved concurrently. In
// both cases the caller must roll back q.
func (a *Adjuster) Adjust(ctx context.Context, q database.Querier, m *ledger.Match) ([]Adjustment, error) {
	ratings := make(map[ledger.Slot]float64, len(m.Participants))
	versions := make(map[ledger.Slot]int, len(m.Participants))
	players := make(map[ledger.Slot]string, len(m.Participants))

	for _, p := range m.Participants {
		player, err := a.store.Get(ctx, q, p.UserID)
		if errors.Is(err, ErrPlayerNotFound) {
			player = &Player{ID: p.UserID}
		} else if err != nil {
			return nil, err
		}

		current := player.Rating(m.Mode)
		if current == nil {
			initial, ok := a.initial(player, m.Mode)
			if !ok {
				return nil, fmt.Errorf("%w: %s has no %s rating", ErrUnratedParticipant, p.UserID, m.Mode)
			}
			log.Info("Bootstrapped rating", "playerID", p.UserID, "mode", m.Mode, "rating", initial)
			current = &initial
		}
		ratings[p.Slot] = *current
		versions[p.Slot] = player.RatingVersion
		players[p.Slot] = p.UserID
	}

	adjustments, err := a.engine.Compute(Input{
		Mode:           m.Mode,
		Format:         m.Format,
		ScoreInitiator: m.ScoreInitiator,
		ScoreOpponent:  m.ScoreOpponent,
		Ratings:        ratings,
	})
	if err != nil {
		return nil, err
	}

	for _, adj := range adjustments {
		err := a.store.Apply(ctx, q, Change{
			PlayerID:        players[adj.Slot],
			MatchID:         m.ID,
			Mode:            m.Mode,
			Before:          adj.Before,
			After:           adj.After,
			Delta:           adj.Delta,
			ExpectedVersion: versions[adj.Slot],
		})
		if err != nil {
			return nil, err
		}
		p := m.Participant(adj.Slot)
		before, after, delta := adj.Before, adj.After, adj.Delta
		p.RatingBefore = &before
		p.RatingAfter = &after
		p.Delta = &delta
	}
	return adjustments, nil
}

func (a *Adjuster) initial(p *Player, mode ledger.Mode) (float64, bool) {
	if a.bootstrap == nil {
		return 0, false
	}
	return a.bootstrap.Initial(p, mode)
}
