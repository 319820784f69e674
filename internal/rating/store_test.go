package rating_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mauv0809/match-ledger/internal/database"
	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/mauv0809/match-ledger/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, rating.Store, func()) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	return db, rating.NewStore(), teardown
}

func ptr(f float64) *float64 { return &f }

func TestUpsertAndGetPlayer(t *testing.T) {
	db, store, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	_, err := store.Get(ctx, db, "alice")
	assert.ErrorIs(t, err, rating.ErrPlayerNotFound)

	require.NoError(t, store.UpsertPlayer(ctx, db, rating.Player{ID: "alice", Name: "Alice", SinglesRating: ptr(3.0)}))
	p, err := store.Get(ctx, db, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	require.NotNil(t, p.SinglesRating)
	assert.Equal(t, 3.0, *p.SinglesRating)
	assert.Nil(t, p.DoublesRating)
	assert.Equal(t, 0, p.RatingVersion)

	// Re-seeding keeps the stored rating and fills the missing one.
	require.NoError(t, store.UpsertPlayer(ctx, db, rating.Player{ID: "alice", SinglesRating: ptr(9.0), DoublesRating: ptr(2.8)}))
	p, err = store.Get(ctx, db, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, 3.0, *p.SinglesRating)
	assert.Equal(t, 2.8, *p.DoublesRating)
}

func TestApply(t *testing.T) {
	db, store, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.UpsertPlayer(ctx, db, rating.Player{ID: "alice", SinglesRating: ptr(3.0)}))

	change := rating.Change{
		PlayerID: "alice", MatchID: "m1", Mode: ledger.ModeSingles,
		Before: 3.0, After: 3.043, Delta: 0.043, ExpectedVersion: 0,
	}
	require.NoError(t, store.Apply(ctx, db, change))

	p, err := store.Get(ctx, db, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3.043, *p.SinglesRating)
	assert.Equal(t, 1, p.RatingVersion)

	t.Run("stale version conflicts", func(t *testing.T) {
		stale := change
		stale.MatchID = "m2"
		assert.ErrorIs(t, store.Apply(ctx, db, stale), rating.ErrVersionConflict)

		p, err := store.Get(ctx, db, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, p.RatingVersion)
	})

	t.Run("same match cannot be applied twice", func(t *testing.T) {
		again := change
		again.ExpectedVersion = 1
		err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
			return store.Apply(ctx, tx, again)
		})
		assert.Error(t, err)

		p, err := store.Get(ctx, db, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, p.RatingVersion)
	})

	t.Run("unknown player is created", func(t *testing.T) {
		require.NoError(t, store.Apply(ctx, db, rating.Change{
			PlayerID: "bob", MatchID: "m1", Mode: ledger.ModeDoubles,
			Before: 2.5, After: 2.485, Delta: -0.015, ExpectedVersion: 0,
		}))
		p, err := store.Get(ctx, db, "bob")
		require.NoError(t, err)
		assert.Nil(t, p.SinglesRating)
		assert.Equal(t, 2.485, *p.DoublesRating)
	})

	history, err := store.History(ctx, db, "alice", ledger.ModeSingles, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "m1", history[0].MatchID)
	assert.Equal(t, 0.043, history[0].Delta)
	assert.Equal(t, 1, history[0].RatingVersion)

	history, err = store.History(ctx, db, "alice", ledger.ModeDoubles, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAdjust(t *testing.T) {
	db, store, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.UpsertPlayer(ctx, db, rating.Player{ID: "alice", SinglesRating: ptr(3.0)}))
	require.NoError(t, store.UpsertPlayer(ctx, db, rating.Player{ID: "bob", SinglesRating: ptr(3.1)}))

	newMatch := func(id, opponent string) *ledger.Match {
		return &ledger.Match{
			ID: id, ClubID: "c1", Mode: ledger.ModeSingles, Format: ledger.Format6Game,
			Participants: []ledger.Participant{
				{Slot: ledger.SlotInitiator, UserID: "alice", Confirmed: true},
				{Slot: ledger.SlotOpponent, UserID: opponent, Confirmed: true},
			},
			ScoreInitiator: 6, ScoreOpponent: 2, State: ledger.StateConfirmed,
		}
	}

	t.Run("rates both participants", func(t *testing.T) {
		adjuster := rating.NewAdjuster(store, rating.NewEngine(rating.DefaultConfig()), nil)
		m := newMatch("m1", "bob")
		_, err := adjuster.Adjust(ctx, db, m)
		require.NoError(t, err)

		initiator := m.Participant(ledger.SlotInitiator)
		require.NotNil(t, initiator.Delta)
		assert.Equal(t, 0.043, *initiator.Delta)
		assert.Equal(t, 3.0, *initiator.RatingBefore)
		assert.Equal(t, 3.043, *initiator.RatingAfter)
		assert.Equal(t, -0.043, *m.Participant(ledger.SlotOpponent).Delta)

		bob, err := store.Get(ctx, db, "bob")
		require.NoError(t, err)
		assert.Equal(t, 3.057, *bob.SinglesRating)
		assert.Equal(t, 1, bob.RatingVersion)
	})

	t.Run("unrated participant without bootstrap", func(t *testing.T) {
		adjuster := rating.NewAdjuster(store, rating.NewEngine(rating.DefaultConfig()), nil)
		m := newMatch("m2", "carol")
		_, err := adjuster.Adjust(ctx, db, m)
		assert.ErrorIs(t, err, rating.ErrUnratedParticipant)
		assert.Nil(t, m.Participant(ledger.SlotOpponent).Delta)
	})

	t.Run("unrated participant with fixed bootstrap", func(t *testing.T) {
		bootstrap, err := rating.NewBootstrap(rating.BootstrapConfig{Strategy: rating.BootstrapFixed, Fixed: 2.5})
		require.NoError(t, err)
		adjuster := rating.NewAdjuster(store, rating.NewEngine(rating.DefaultConfig()), bootstrap)
		m := newMatch("m3", "carol")
		_, err = adjuster.Adjust(ctx, db, m)
		require.NoError(t, err)
		assert.Equal(t, 2.5, *m.Participant(ledger.SlotOpponent).RatingBefore)

		carol, err := store.Get(ctx, db, "carol")
		require.NoError(t, err)
		assert.Equal(t, 1, carol.RatingVersion)
	})
}
