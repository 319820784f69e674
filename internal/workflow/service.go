package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/match-ledger/internal/club"
	"github.com/mauv0809/match-ledger/internal/database"
	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/mauv0809/match-ledger/internal/lock"
	"github.com/mauv0809/match-ledger/internal/pubsub"
	"github.com/mauv0809/match-ledger/internal/rating"
)

// MaxLocationLength bounds the free-text location of a match, in characters.
const MaxLocationLength = 200

// New creates a new Service. A nil Locker defaults to an in-process one and
// a nil Publisher drops events.
func New(d Deps) *Service {
	s := &Service{
		db:          d.DB,
		ledger:      d.Ledger,
		ratings:     d.Ratings,
		adjuster:    d.Adjuster,
		clubs:       d.Clubs,
		locker:      d.Locker,
		publisher:   d.Publisher,
		metrics:     d.Metrics,
		maxAttempts: d.MaxFinalizeAttempts,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.publisher == nil {
		s.publisher = noopPublisher{}
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 3
	}
	return s
}

// Submit records a played match in proposed state. A repeated
// ClientRequestID from the same initiator returns the match created first.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (view *MatchView, err error) {
	defer s.observe("submit", time.Now(), &err)

	participants, err := validateSubmit(req)
	if err != nil {
		return nil, err
	}

	role, err := s.clubs.Role(ctx, req.ClubID, req.InitiatorID)
	if err != nil {
		return nil, classify(err)
	}
	if role == club.RoleNone {
		return nil, fmt.Errorf("%w: %s is not a member of club %s", ErrAuthorization, req.InitiatorID, req.ClubID)
	}
	for _, p := range participants[1:] {
		member, err := s.clubs.IsMember(ctx, req.ClubID, p.UserID)
		if err != nil {
			return nil, classify(err)
		}
		if !member {
			return nil, fmt.Errorf("%w: %s is not a member of club %s", ErrValidation, p.UserID, req.ClubID)
		}
	}

	if req.ClientRequestID != "" {
		unlock, err := s.locker.Lock(ctx, "submit:"+req.ClubID+":"+req.InitiatorID+":"+req.ClientRequestID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		defer unlock()

		existing, err := s.ledger.FindByRequestID(ctx, s.db, req.ClubID, req.InitiatorID, req.ClientRequestID)
		if err == nil {
			log.Info("Returning existing match for repeated submit", "matchID", existing.ID, "requestID", req.ClientRequestID)
			return NewMatchView(existing, req.InitiatorID, role), nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return nil, classify(err)
		}
	}

	for i := range participants {
		player, err := s.ratings.Get(ctx, s.db, participants[i].UserID)
		if errors.Is(err, rating.ErrPlayerNotFound) {
			continue
		}
		if err != nil {
			return nil, classify(err)
		}
		if r := player.Rating(req.Mode); r != nil {
			v := *r
			participants[i].RatingBefore = &v
		}
	}

	m := &ledger.Match{
		ID:              s.newID(),
		ClubID:          req.ClubID,
		Mode:            req.Mode,
		Format:          req.Format,
		Date:            req.Date,
		Location:        strings.TrimSpace(req.Location),
		Participants:    participants,
		ScoreInitiator:  req.ScoreInitiator,
		ScoreOpponent:   req.ScoreOpponent,
		State:           ledger.StateProposed,
		ClientRequestID: req.ClientRequestID,
	}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.ledger.Create(ctx, tx, m)
	})
	if err != nil {
		return nil, classify(err)
	}

	s.publish(ctx, s.event(m, pubsub.EventMatchSubmitted, req.InitiatorID))
	return NewMatchView(m, req.InitiatorID, role), nil
}

func validateSubmit(req SubmitRequest) ([]ledger.Participant, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrValidation, req.Mode)
	}
	if !ValidFormat(req.Format) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, req.Format)
	}

	ids := []string{req.InitiatorID}
	switch req.Mode {
	case ledger.ModeSingles:
		if req.PartnerID != "" || len(req.OpponentIDs) != 1 {
			return nil, fmt.Errorf("%w: a singles match has exactly one opponent and no partner", ErrValidation)
		}
		ids = append(ids, req.OpponentIDs[0])
	case ledger.ModeDoubles:
		if req.PartnerID == "" || len(req.OpponentIDs) != 2 {
			return nil, fmt.Errorf("%w: a doubles match has one partner and two opponents", ErrValidation)
		}
		ids = append(ids, req.PartnerID, req.OpponentIDs[0], req.OpponentIDs[1])
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: participant ids must not be empty", ErrValidation)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s appears more than once", ErrDuplicateParticipant, id)
		}
		seen[id] = true
	}

	if err := ValidateScore(req.Format, req.ScoreInitiator, req.ScoreOpponent); err != nil {
		return nil, err
	}
	if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if utf8.RuneCountInString(req.Location) > MaxLocationLength {
		return nil, fmt.Errorf("%w: location is longer than %d characters", ErrValidation, MaxLocationLength)
	}

	slots := req.Mode.Slots()
	participants := make([]ledger.Participant, len(ids))
	for i, id := range ids {
		participants[i] = ledger.Participant{Slot: slots[i], UserID: id}
	}
	// Submitting is the initiator's confirmation.
	participants[0].Confirmed = true
	return participants, nil
}

// Confirm records userID's confirmation. Once every non-initiator has
// confirmed the match is finalized, or queued for approval when the club
// requires it. Confirming twice is a no-op.
func (s *Service) Confirm(ctx context.Context, clubID, matchID, userID string) (*MatchView, error) {
	return s.transition(ctx, clubID, matchID, userID, func(club.Role) command {
		return confirmCmd{userID: userID}
	})
}

// Reject terminates a proposed match on behalf of a non-initiator participant.
func (s *Service) Reject(ctx context.Context, clubID, matchID, userID string) (*MatchView, error) {
	return s.transition(ctx, clubID, matchID, userID, func(club.Role) command {
		return rejectCmd{userID: userID}
	})
}

// Cancel lets the initiator withdraw a match nobody has confirmed yet.
func (s *Service) Cancel(ctx context.Context, clubID, matchID, userID string) (*MatchView, error) {
	return s.transition(ctx, clubID, matchID, userID, func(club.Role) command {
		return cancelCmd{userID: userID}
	})
}

// Approve finalizes a match waiting for admin approval.
func (s *Service) Approve(ctx context.Context, clubID, matchID, approverID string) (*MatchView, error) {
	return s.transition(ctx, clubID, matchID, approverID, func(role club.Role) command {
		return approveCmd{approverID: approverID, isAdmin: role.IsAdmin()}
	})
}

// Veto terminates a confirmed or pending_approval match with a reason.
func (s *Service) Veto(ctx context.Context, clubID, matchID, approverID, reason string) (*MatchView, error) {
	return s.transition(ctx, clubID, matchID, approverID, func(role club.Role) command {
		return vetoCmd{approverID: approverID, isAdmin: role.IsAdmin(), reason: reason}
	})
}

// Finalize retries the finalization of a confirmed match, after an
// unrated participant has been given a rating for example.
func (s *Service) Finalize(ctx context.Context, clubID, matchID, approverID string) (*MatchView, error) {
	return s.transition(ctx, clubID, matchID, approverID, func(role club.Role) command {
		return finalizeCmd{approverID: approverID, isAdmin: role.IsAdmin()}
	})
}

// transition applies one command to a match under the match's lock.
func (s *Service) transition(ctx context.Context, clubID, matchID, actorID string, build func(club.Role) command) (view *MatchView, err error) {
	start := time.Now()
	cmd := build(club.RoleNone)
	defer s.observe(cmd.op(), start, &err)

	unlock, err := s.locker.Lock(ctx, "match:"+clubID+":"+matchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer unlock()

	role, err := s.clubs.Role(ctx, clubID, actorID)
	if err != nil {
		return nil, classify(err)
	}
	cmd = build(role)

	var p policy
	if _, ok := cmd.(confirmCmd); ok {
		p.requiresApproval, err = s.clubs.RequiresApproval(ctx, clubID)
		if errors.Is(err, club.ErrClubNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		if err != nil {
			return nil, classify(err)
		}
	}

	m, err := s.ledger.Get(ctx, s.db, clubID, matchID)
	if err != nil {
		return nil, classify(err)
	}

	out, err := apply(m, cmd, p)
	if err != nil {
		log.Info("Transition refused", "op", cmd.op(), "matchID", matchID, "actor", actorID, "state", m.State, "reason", err)
		return nil, err
	}

	current := m
	if out.changed {
		err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			return s.ledger.Update(ctx, tx, out.match)
		})
		if err != nil {
			return nil, classify(err)
		}
		current = out.match
		log.Info("Match transitioned", "op", cmd.op(), "matchID", matchID, "actor", actorID, "from", m.State, "to", current.State)

		switch current.State {
		case ledger.StateRejected:
			s.publish(ctx, s.event(current, pubsub.EventMatchRejected, actorID))
		case ledger.StateVetoed:
			s.publish(ctx, s.event(current, pubsub.EventMatchVetoed, actorID))
		}
	}

	if out.finalize {
		finalized, err := s.finalize(ctx, current, out.match.ApproverID)
		if err != nil {
			return nil, err
		}
		current = finalized
		s.publish(ctx, s.event(current, pubsub.EventMatchFinalized, actorID))
	}

	return NewMatchView(current, actorID, role), nil
}

// finalize rates m and marks it finalized in one transaction. The ratings
// are read inside the transaction; a rating version conflict restarts the
// whole attempt.
func (s *Service) finalize(ctx context.Context, m *ledger.Match, approverID *string) (*ledger.Match, error) {
	for attempt := 1; ; attempt++ {
		var finalized *ledger.Match
		err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			current, err := s.ledger.Get(ctx, tx, m.ClubID, m.ID)
			if err != nil {
				return err
			}
			if current.Version != m.Version {
				return ledger.ErrConcurrentUpdate
			}

			next := current.Clone()
			if _, err := s.adjuster.Adjust(ctx, tx, next); err != nil {
				return err
			}
			seq, err := s.ledger.NextFinalizedSeq(ctx, tx)
			if err != nil {
				return err
			}
			now := s.now().UTC()
			next.State = ledger.StateFinalized
			next.FinalizedAt = &now
			next.FinalizedSeq = &seq
			if approverID != nil {
				next.ApproverID = approverID
			}
			if err := s.ledger.Update(ctx, tx, next); err != nil {
				return err
			}
			finalized = next
			return nil
		})

		switch {
		case err == nil:
			s.metrics.IncFinalized(string(finalized.Mode))
			log.Info("Finalized match", "matchID", m.ID, "clubID", m.ClubID, "attempt", attempt)
			return finalized, nil
		case errors.Is(err, rating.ErrVersionConflict):
			s.metrics.IncRatingConflicts()
			if attempt >= s.maxAttempts {
				log.Error("Giving up finalization after rating conflicts", "matchID", m.ID, "attempts", attempt)
				return nil, fmt.Errorf("%w: %w after %d attempts", ErrStorage, err, attempt)
			}
			log.Warn("Rating changed during finalization, retrying", "matchID", m.ID, "attempt", attempt)
		case errors.Is(err, ErrUnratedParticipant):
			log.Warn("Finalization aborted", "matchID", m.ID, "state", m.State, "error", err)
			return nil, err
		default:
			log.Error("Finalization failed", "matchID", m.ID, "error", err)
			return nil, classify(err)
		}
	}
}

// Mode reports whether a match is singles or doubles.
func (s *Service) Mode(ctx context.Context, clubID, matchID string) (ledger.Mode, error) {
	m, err := s.ledger.Get(ctx, s.db, clubID, matchID)
	if err != nil {
		return "", classify(err)
	}
	return m.Mode, nil
}

// Get returns a match to a club member or participant.
func (s *Service) Get(ctx context.Context, clubID, matchID, callerID string) (*MatchView, error) {
	m, err := s.ledger.Get(ctx, s.db, clubID, matchID)
	if err != nil {
		return nil, classify(err)
	}
	role, err := s.clubs.Role(ctx, clubID, callerID)
	if err != nil {
		return nil, classify(err)
	}
	if role == club.RoleNone && m.ParticipantByUser(callerID) == nil {
		return nil, fmt.Errorf("%w: %s cannot see match %s", ErrAuthorization, callerID, matchID)
	}
	return NewMatchView(m, callerID, role), nil
}

// ListPending returns the caller's own non-terminal matches.
func (s *Service) ListPending(ctx context.Context, callerID, playerID string) ([]*MatchView, error) {
	if callerID != playerID {
		return nil, fmt.Errorf("%w: pending matches are only visible to their player", ErrAuthorization)
	}
	matches, err := s.ledger.ListPendingFor(ctx, s.db, playerID)
	if err != nil {
		return nil, classify(err)
	}
	return s.views(ctx, matches, callerID)
}

// ListPendingForApproval returns a club's approval queue to its admins.
func (s *Service) ListPendingForApproval(ctx context.Context, clubID, callerID string) ([]*MatchView, error) {
	role, err := s.clubs.Role(ctx, clubID, callerID)
	if err != nil {
		return nil, classify(err)
	}
	if !role.IsAdmin() {
		return nil, fmt.Errorf("%w: %s is not a club admin", ErrAuthorization, callerID)
	}
	matches, err := s.ledger.ListPendingForApproval(ctx, s.db, clubID)
	if err != nil {
		return nil, classify(err)
	}
	return s.views(ctx, matches, callerID)
}

// ListFinalized pages through a player's finalized matches of one mode.
func (s *Service) ListFinalized(ctx context.Context, req ListFinalizedRequest) (*FinalizedPage, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrValidation, req.Mode)
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrValidation)
	}
	page, err := s.ledger.ListFinalized(ctx, s.db, req.PlayerID, req.Mode, req.Limit, req.Offset, req.Before)
	if err != nil {
		return nil, classify(err)
	}
	views, err := s.views(ctx, page.Matches, req.CallerID)
	if err != nil {
		return nil, err
	}
	return &FinalizedPage{Matches: views, NextBefore: page.NextBefore}, nil
}

// Rating returns a player's current ratings and recent changes.
func (s *Service) Rating(ctx context.Context, playerID string) (*PlayerRating, error) {
	player, err := s.ratings.Get(ctx, s.db, playerID)
	if errors.Is(err, rating.ErrPlayerNotFound) {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, playerID)
	}
	if err != nil {
		return nil, classify(err)
	}
	singles, err := s.ratings.History(ctx, s.db, playerID, ledger.ModeSingles, 20)
	if err != nil {
		return nil, classify(err)
	}
	doubles, err := s.ratings.History(ctx, s.db, playerID, ledger.ModeDoubles, 20)
	if err != nil {
		return nil, classify(err)
	}
	return &PlayerRating{Player: player, SinglesHistory: singles, DoublesHistory: doubles}, nil
}

// views derives the caller's view of each match, looking up the caller's
// role once per club.
func (s *Service) views(ctx context.Context, matches []*ledger.Match, callerID string) ([]*MatchView, error) {
	roles := make(map[string]club.Role)
	views := make([]*MatchView, 0, len(matches))
	for _, m := range matches {
		role, ok := roles[m.ClubID]
		if !ok {
			var err error
			role, err = s.clubs.Role(ctx, m.ClubID, callerID)
			if err != nil {
				return nil, classify(err)
			}
			roles[m.ClubID] = role
		}
		views = append(views, NewMatchView(m, callerID, role))
	}
	return views, nil
}

func (s *Service) event(m *ledger.Match, t pubsub.EventType, actorID string) pubsub.MatchEvent {
	ev := pubsub.MatchEvent{
		Type:           t,
		MatchID:        m.ID,
		ClubID:         m.ClubID,
		Mode:           string(m.Mode),
		Format:         string(m.Format),
		State:          string(m.State),
		ScoreInitiator: m.ScoreInitiator,
		ScoreOpponent:  m.ScoreOpponent,
		ActorID:        actorID,
		OccurredAt:     s.now().UTC(),
	}
	if m.VetoReason != nil {
		ev.Reason = *m.VetoReason
	}
	for _, p := range m.Participants {
		ev.Participants = append(ev.Participants, pubsub.EventParticipant{
			Slot:        string(p.Slot),
			UserID:      p.UserID,
			Delta:       p.Delta,
			RatingAfter: p.RatingAfter,
		})
	}
	return ev
}

// publish never fails the caller; the transition has already committed.
func (s *Service) publish(ctx context.Context, ev pubsub.MatchEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.metrics.IncEventsPublishFailed()
		log.Error("Failed to publish match event", "event", ev.Type, "matchID", ev.MatchID, "error", err)
		return
	}
	s.metrics.IncEventsPublished()
}

func (s *Service) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveTransitionDuration(op, time.Since(start).Seconds())
	s.metrics.IncTransition(op, Outcome(*err))
}

// Outcome names the error class of err, "ok" for nil.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAuthorization):
		return "authorization"
	case errors.Is(err, ErrStateConflict):
		return "state_conflict"
	case errors.Is(err, ErrUnratedParticipant):
		return "unrated_participant"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "storage"
}
