package ledger

import (
	"errors"
	"time"
)

// Mode separates singles and doubles ledgers and ratings.
type Mode string

const (
	ModeSingles Mode = "singles"
	ModeDoubles Mode = "doubles"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeSingles || m == ModeDoubles
}

// Format is the scoring format a match was played in.
type Format string

const (
	Format6Game Format = "6_game"
	Format4Game Format = "4_game"
	FormatTB11  Format = "tb11"
	FormatTB10  Format = "tb10"
	FormatTB7   Format = "tb7"
)

// Formats lists every supported format.
var Formats = []Format{Format6Game, Format4Game, FormatTB11, FormatTB10, FormatTB7}

// State is the lifecycle state of a submitted match.
type State string

const (
	StateProposed        State = "proposed"
	StateConfirmed       State = "confirmed"
	StatePendingApproval State = "pending_approval"
	StateFinalized       State = "finalized"
	StateRejected        State = "rejected"
	StateVetoed          State = "vetoed"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateRejected || s == StateVetoed
}

// Slot names a participant's position in the match.
type Slot string

const (
	SlotInitiator Slot = "initiator"
	SlotPartner   Slot = "partner"
	SlotOpponent  Slot = "opponent"
	SlotOpponent1 Slot = "opponent1"
	SlotOpponent2 Slot = "opponent2"
)

// Slots returns the participant slots of a mode, in display order.
func (m Mode) Slots() []Slot {
	if m == ModeDoubles {
		return []Slot{SlotInitiator, SlotPartner, SlotOpponent1, SlotOpponent2}
	}
	return []Slot{SlotInitiator, SlotOpponent}
}

// InitiatorSide reports whether the slot plays on the initiator's side.
func (s Slot) InitiatorSide() bool {
	return s == SlotInitiator || s == SlotPartner
}

var (
	// ErrNotFound is returned when no match exists for the key.
	ErrNotFound = errors.New("match not found")
	// ErrConcurrentUpdate is returned when the stored version moved since the match was read.
	ErrConcurrentUpdate = errors.New("match was modified concurrently")
	// ErrTerminal is returned when attempting to write a match that is already terminal.
	ErrTerminal = errors.New("match is terminal and cannot be modified")
)

// Participant is one player slot of a match, with its confirmation flags and,
// once finalized, the rating movement.
type Participant struct {
	Slot         Slot     `json:"slot"`
	UserID       string   `json:"user_id"`
	Confirmed    bool     `json:"confirmed"`
	Rejected     bool     `json:"rejected"`
	RatingBefore *float64 `json:"rating_before,omitempty"`
	RatingAfter  *float64 `json:"rating_after,omitempty"`
	Delta        *float64 `json:"delta,omitempty"`
}

// Match is a ledger entry for a singles or doubles match.
type Match struct {
	ID              string        `json:"id"`
	ClubID          string        `json:"club_id"`
	Mode            Mode          `json:"mode"`
	Format          Format        `json:"format"`
	Date            string        `json:"date"`
	Location        string        `json:"location"`
	Participants    []Participant `json:"participants"`
	ScoreInitiator  int           `json:"score_initiator"`
	ScoreOpponent   int           `json:"score_opponent"`
	State           State         `json:"state"`
	ApproverID      *string       `json:"approver_id,omitempty"`
	VetoReason      *string       `json:"veto_reason,omitempty"`
	ClientRequestID string        `json:"client_request_id,omitempty"`
	Version         int           `json:"version"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	FinalizedAt     *time.Time    `json:"finalized_at,omitempty"`
	FinalizedSeq    *int64        `json:"finalized_seq,omitempty"`
}

// InitiatorID returns the user id in the initiator slot.
func (m *Match) InitiatorID() string {
	if p := m.Participant(SlotInitiator); p != nil {
		return p.UserID
	}
	return ""
}

// Participant returns the participant in slot, or nil.
func (m *Match) Participant(slot Slot) *Participant {
	for i := range m.Participants {
		if m.Participants[i].Slot == slot {
			return &m.Participants[i]
		}
	}
	return nil
}

// ParticipantByUser returns the participant entry for userID, or nil.
func (m *Match) ParticipantByUser(userID string) *Participant {
	for i := range m.Participants {
		if m.Participants[i].UserID == userID {
			return &m.Participants[i]
		}
	}
	return nil
}

// ConfirmedBy lists the users who have confirmed, initiator excluded.
func (m *Match) ConfirmedBy() []string {
	var ids []string
	for _, p := range m.Participants {
		if p.Confirmed && p.Slot != SlotInitiator {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// RejectedBy lists the users who have rejected (or, for the initiator, withdrawn).
func (m *Match) RejectedBy() []string {
	var ids []string
	for _, p := range m.Participants {
		if p.Rejected {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// AwaitingConfirmation lists the non-initiator participants who have not confirmed yet.
func (m *Match) AwaitingConfirmation() []string {
	var ids []string
	for _, p := range m.Participants {
		if p.Slot != SlotInitiator && !p.Confirmed {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// Clone returns a deep copy, so a transition can be computed without
// touching the caller's value.
func (m *Match) Clone() *Match {
	c := *m
	c.Participants = make([]Participant, len(m.Participants))
	for i, p := range m.Participants {
		c.Participants[i] = p
		c.Participants[i].RatingBefore = cloneFloat(p.RatingBefore)
		c.Participants[i].RatingAfter = cloneFloat(p.RatingAfter)
		c.Participants[i].Delta = cloneFloat(p.Delta)
	}
	if m.ApproverID != nil {
		v := *m.ApproverID
		c.ApproverID = &v
	}
	if m.VetoReason != nil {
		v := *m.VetoReason
		c.VetoReason = &v
	}
	if m.FinalizedAt != nil {
		v := *m.FinalizedAt
		c.FinalizedAt = &v
	}
	if m.FinalizedSeq != nil {
		v := *m.FinalizedSeq
		c.FinalizedSeq = &v
	}
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Page is one page of finalized matches, newest first. NextBefore is the
// cursor for the following page, or nil when there are no more.
type Page struct {
	Matches    []*Match `json:"matches"`
	NextBefore *int64   `json:"next_before,omitempty"`
}
