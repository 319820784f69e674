package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/match-ledger/internal/database"
	"github.com/mauv0809/match-ledger/internal/ledger"
)

// NewStore creates a new rating Store.
func NewStore() Store {
	return &store{now: time.Now}
}

func ratingColumn(mode ledger.Mode) (string, error) {
	switch mode {
	case ledger.ModeSingles:
		return "singles_rating", nil
	case ledger.ModeDoubles:
		return "doubles_rating", nil
	}
	return "", fmt.Errorf("unknown mode %q", mode)
}

func (s *store) Get(ctx context.Context, q database.Querier, playerID string) (*Player, error) {
	var (
		p                Player
		singles, doubles sql.NullFloat64
		updatedAt        int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, name, singles_rating, doubles_rating, rating_version, updated_at
		FROM players WHERE id = ?
	`, playerID).Scan(&p.ID, &p.Name, &singles, &doubles, &p.RatingVersion, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", playerID, err)
	}
	if singles.Valid {
		p.SinglesRating = &singles.Float64
	}
	if doubles.Valid {
		p.DoublesRating = &doubles.Float64
	}
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}

func (s *store) UpsertPlayer(ctx context.Context, q database.Querier, p Player) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO players (id, name, singles_rating, doubles_rating, rating_version, updated_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE players.name END,
			singles_rating = COALESCE(players.singles_rating, excluded.singles_rating),
			doubles_rating = COALESCE(players.doubles_rating, excluded.doubles_rating);
	`, p.ID, p.Name, p.SinglesRating, p.DoublesRating, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
	}
	log.Debug("Upserted player", "playerID", p.ID)
	return nil
}

// Apply writes c if the player's rating_version still equals
// c.ExpectedVersion, advancing it by one and appending a history row.
// A player without a row is created at version 0 first.
func (s *store) Apply(ctx context.Context, q database.Querier, c Change) error {
	col, err := ratingColumn(c.Mode)
	if err != nil {
		return err
	}
	now := s.now().Unix()

	if _, err := q.ExecContext(ctx, `
		INSERT INTO players (id, rating_version, updated_at) VALUES (?, 0, ?)
		ON CONFLICT(id) DO NOTHING;
	`, c.PlayerID, now); err != nil {
		return fmt.Errorf("failed to ensure player %s: %w", c.PlayerID, err)
	}

	res, err := q.ExecContext(ctx, `
		UPDATE players SET `+col+` = ?, rating_version = rating_version + 1, updated_at = ?
		WHERE id = ? AND rating_version = ?
	`, c.After, now, c.PlayerID, c.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update rating of %s: %w", c.PlayerID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		log.Warn("Rating version moved", "playerID", c.PlayerID, "matchID", c.MatchID, "expected", c.ExpectedVersion)
		return ErrVersionConflict
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO rating_history (player_id, match_id, mode, rating_before, rating_after, delta, rating_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.PlayerID, c.MatchID, string(c.Mode), c.Before, c.After, c.Delta, c.ExpectedVersion+1, now)
	if err != nil {
		return fmt.Errorf("failed to record rating history of %s: %w", c.PlayerID, err)
	}
	return nil
}

// History lists a player's applied changes for mode, newest first.
func (s *store) History(ctx context.Context, q database.Querier, playerID string, mode ledger.Mode, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, player_id, match_id, mode, rating_before, rating_after, delta, rating_version, created_at
		FROM rating_history
		WHERE player_id = ? AND mode = ?
		ORDER BY id DESC
		LIMIT ?
	`, playerID, string(mode), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e         HistoryEntry
			m         string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.MatchID, &m, &e.RatingBefore, &e.RatingAfter, &e.Delta, &e.RatingVersion, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating history row: %w", err)
		}
		e.Mode = ledger.Mode(m)
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
