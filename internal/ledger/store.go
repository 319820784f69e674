package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/match-ledger/internal/database"
)

const (
	// DefaultPageSize is used when ListFinalized is called without a limit.
	DefaultPageSize = 20
	// MaxPageSize caps a single ListFinalized page.
	MaxPageSize = 100
)

const matchColumns = `m.id, m.club_id, m.mode, m.format, m.match_date, m.location, m.score_initiator, m.score_opponent,
	m.state, m.approver_id, m.veto_reason, m.client_request_id, m.version, m.created_at, m.updated_at, m.finalized_at, m.finalized_seq`

// store keeps matches in the matches and match_participants tables.
type store struct {
	now func() time.Time
}

// New creates a new Ledger.
func New() Ledger {
	return &store{now: time.Now}
}

// Create inserts a new match with its participants. The match must not be terminal.
func (s *store) Create(ctx context.Context, q database.Querier, m *Match) error {
	if m.State.Terminal() {
		return ErrTerminal
	}
	now := s.now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	m.Version = 1

	_, err := q.ExecContext(ctx, `
		INSERT INTO matches (id, club_id, mode, format, match_date, location, initiator_id, score_initiator, score_opponent,
			state, approver_id, veto_reason, client_request_id, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ClubID, string(m.Mode), string(m.Format), m.Date, m.Location, m.InitiatorID(), m.ScoreInitiator, m.ScoreOpponent,
		string(m.State), m.ApproverID, m.VetoReason, nullString(m.ClientRequestID), m.Version, m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	for _, p := range m.Participants {
		_, err := q.ExecContext(ctx, `
			INSERT INTO match_participants (match_id, slot, user_id, confirmed, rejected, rating_before, rating_after, delta)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, string(p.Slot), p.UserID, p.Confirmed, p.Rejected, p.RatingBefore, p.RatingAfter, p.Delta)
		if err != nil {
			return fmt.Errorf("failed to create participant %s for match %s: %w", p.Slot, m.ID, err)
		}
	}

	log.Info("Created match", "matchID", m.ID, "clubID", m.ClubID, "mode", m.Mode, "format", m.Format)
	return nil
}

// Get retrieves a match by club and id.
func (s *store) Get(ctx context.Context, q database.Querier, clubID, matchID string) (*Match, error) {
	matches, err := s.queryMatches(ctx, q, `SELECT `+matchColumns+` FROM matches m WHERE m.club_id = ? AND m.id = ?`, clubID, matchID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches[0], nil
}

// FindByRequestID returns the match an initiator previously submitted with the
// same client request id, or ErrNotFound.
func (s *store) FindByRequestID(ctx context.Context, q database.Querier, clubID, initiatorID, requestID string) (*Match, error) {
	matches, err := s.queryMatches(ctx, q, `SELECT `+matchColumns+` FROM matches m
		WHERE m.club_id = ? AND m.initiator_id = ? AND m.client_request_id = ?`, clubID, initiatorID, requestID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches[0], nil
}

// Update writes the mutable fields of m. It only succeeds when the stored row
// still has m.Version and is not terminal; on success m.Version is advanced.
func (s *store) Update(ctx context.Context, q database.Querier, m *Match) error {
	now := s.now().UTC()
	var finalizedAt sql.NullInt64
	if m.FinalizedAt != nil {
		finalizedAt = sql.NullInt64{Int64: m.FinalizedAt.UnixMilli(), Valid: true}
	}

	res, err := q.ExecContext(ctx, `
		UPDATE matches
		SET state = ?, approver_id = ?, veto_reason = ?, version = version + 1, updated_at = ?, finalized_at = ?, finalized_seq = ?
		WHERE id = ? AND club_id = ? AND version = ? AND state NOT IN (?, ?, ?)
	`, string(m.State), m.ApproverID, m.VetoReason, now.UnixMilli(), finalizedAt, m.FinalizedSeq,
		m.ID, m.ClubID, m.Version, string(StateFinalized), string(StateRejected), string(StateVetoed))
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", m.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return s.explainMissedUpdate(ctx, q, m)
	}

	for _, p := range m.Participants {
		_, err := q.ExecContext(ctx, `
			UPDATE match_participants
			SET confirmed = ?, rejected = ?, rating_before = ?, rating_after = ?, delta = ?
			WHERE match_id = ? AND slot = ?
		`, p.Confirmed, p.Rejected, p.RatingBefore, p.RatingAfter, p.Delta, m.ID, string(p.Slot))
		if err != nil {
			return fmt.Errorf("failed to update participant %s of match %s: %w", p.Slot, m.ID, err)
		}
	}

	m.Version++
	m.UpdatedAt = now
	log.Debug("Updated match", "matchID", m.ID, "state", m.State, "version", m.Version)
	return nil
}

func (s *store) explainMissedUpdate(ctx context.Context, q database.Querier, m *Match) error {
	current, err := s.Get(ctx, q, m.ClubID, m.ID)
	if err != nil {
		return err
	}
	if current.State.Terminal() {
		return ErrTerminal
	}
	log.Warn("Match version moved during update", "matchID", m.ID, "expected", m.Version, "actual", current.Version)
	return ErrConcurrentUpdate
}

// NextFinalizedSeq returns the ordering key for the next finalized match.
// It must be called in the same transaction that writes the finalization.
func (s *store) NextFinalizedSeq(ctx context.Context, q database.Querier) (int64, error) {
	var seq int64
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(finalized_seq), 0) + 1 FROM matches").Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to allocate finalized sequence: %w", err)
	}
	return seq, nil
}

// ListPendingFor lists the non-terminal matches userID takes part in, newest first.
func (s *store) ListPendingFor(ctx context.Context, q database.Querier, userID string) ([]*Match, error) {
	return s.queryMatches(ctx, q, `SELECT `+matchColumns+` FROM matches m
		WHERE m.state IN (?, ?, ?)
		AND EXISTS (SELECT 1 FROM match_participants p WHERE p.match_id = m.id AND p.user_id = ?)
		ORDER BY m.created_at DESC, m.id`,
		string(StateProposed), string(StateConfirmed), string(StatePendingApproval), userID)
}

// ListPendingForApproval lists a club's approval queue, oldest first.
func (s *store) ListPendingForApproval(ctx context.Context, q database.Querier, clubID string) ([]*Match, error) {
	return s.queryMatches(ctx, q, `SELECT `+matchColumns+` FROM matches m
		WHERE m.club_id = ? AND m.state = ?
		ORDER BY m.created_at ASC, m.id`, clubID, string(StatePendingApproval))
}

// ListFinalized pages through a player's finalized matches of one mode,
// newest finalization first. When before is set only matches finalized
// earlier than that sequence are returned, which keeps pages stable while new
// matches are finalized.
func (s *store) ListFinalized(ctx context.Context, q database.Querier, playerID string, mode Mode, limit, offset int, before *int64) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + matchColumns + ` FROM matches m
		JOIN match_participants p ON p.match_id = m.id
		WHERE p.user_id = ? AND m.mode = ? AND m.state = ?`
	args := []any{playerID, string(mode), string(StateFinalized)}
	if before != nil {
		query += ` AND m.finalized_seq < ?`
		args = append(args, *before)
	}
	query += ` ORDER BY m.finalized_seq DESC LIMIT ? OFFSET ?`
	args = append(args, limit+1, offset)

	matches, err := s.queryMatches(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}

	page := &Page{Matches: matches}
	if len(matches) > limit {
		page.Matches = matches[:limit]
		page.NextBefore = page.Matches[limit-1].FinalizedSeq
	}
	return page, nil
}

// queryMatches runs a match query and attaches participants. The first result
// set is fully read and closed before participants are loaded, since a local
// database has a single connection.
func (s *store) queryMatches(ctx context.Context, q database.Querier, query string, args ...any) ([]*Match, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}

	if err := s.loadParticipants(ctx, q, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *store) loadParticipants(ctx context.Context, q database.Querier, matches []*Match) error {
	if len(matches) == 0 {
		return nil
	}
	byID := make(map[string]*Match, len(matches))
	placeholders := make([]string, 0, len(matches))
	args := make([]any, 0, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
		placeholders = append(placeholders, "?")
		args = append(args, m.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT match_id, slot, user_id, confirmed, rejected, rating_before, rating_after, delta
		FROM match_participants
		WHERE match_id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			matchID, slot, userID string
			p                     Participant
			before, after, delta  sql.NullFloat64
		)
		if err := rows.Scan(&matchID, &slot, &userID, &p.Confirmed, &p.Rejected, &before, &after, &delta); err != nil {
			return fmt.Errorf("failed to scan participant row: %w", err)
		}
		p.Slot = Slot(slot)
		p.UserID = userID
		p.RatingBefore = nullFloat(before)
		p.RatingAfter = nullFloat(after)
		p.Delta = nullFloat(delta)
		if m, ok := byID[matchID]; ok {
			m.Participants = append(m.Participants, p)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range matches {
		sortParticipants(m)
	}
	return nil
}

// sortParticipants orders participants by the mode's slot order.
func sortParticipants(m *Match) {
	ordered := make([]Participant, 0, len(m.Participants))
	for _, slot := range m.Mode.Slots() {
		if p := m.Participant(slot); p != nil {
			ordered = append(ordered, *p)
		}
	}
	m.Participants = ordered
}

// scanMatch is a helper function to scan a single match row.
func scanMatch(scanner interface{ Scan(...any) error }) (*Match, error) {
	var (
		m                                 Match
		mode, format, state               string
		approverID, vetoReason, requestID sql.NullString
		createdAt, updatedAt              int64
		finalizedAt, finalizedSeq         sql.NullInt64
	)
	err := scanner.Scan(
		&m.ID, &m.ClubID, &mode, &format, &m.Date, &m.Location, &m.ScoreInitiator, &m.ScoreOpponent,
		&state, &approverID, &vetoReason, &requestID, &m.Version, &createdAt, &updatedAt, &finalizedAt, &finalizedSeq,
	)
	if err != nil {
		return nil, err
	}
	m.Mode = Mode(mode)
	m.Format = Format(format)
	m.State = State(state)
	if approverID.Valid {
		m.ApproverID = &approverID.String
	}
	if vetoReason.Valid {
		m.VetoReason = &vetoReason.String
	}
	m.ClientRequestID = requestID.String
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	m.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if finalizedAt.Valid {
		t := time.UnixMilli(finalizedAt.Int64).UTC()
		m.FinalizedAt = &t
	}
	if finalizedSeq.Valid {
		seq := finalizedSeq.Int64
		m.FinalizedSeq = &seq
	}
	return &m, nil
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
