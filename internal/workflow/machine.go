package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mauv0809/match-ledger/internal/ledger"
)

// MaxVetoReasonLength bounds the veto reason, in characters.
const MaxVetoReasonLength = 500

// command is one of the closed set of transitions a caller can request.
type command interface {
	op() string
}

type confirmCmd struct{ userID string }

type rejectCmd struct{ userID string }

type cancelCmd struct{ userID string }

type approveCmd struct {
	approverID string
	isAdmin    bool
}

type vetoCmd struct {
	approverID string
	isAdmin    bool
	reason     string
}

// finalizeCmd retries the finalization of a confirmed match.
type finalizeCmd struct {
	approverID string
	isAdmin    bool
}

func (confirmCmd) op() string  { return "confirm" }
func (rejectCmd) op() string   { return "reject" }
func (cancelCmd) op() string   { return "cancel" }
func (approveCmd) op() string  { return "approve" }
func (vetoCmd) op() string     { return "veto" }
func (finalizeCmd) op() string { return "finalize" }

// policy is the club configuration a transition depends on.
type policy struct {
	requiresApproval bool
}

// outcome is the result of applying a command. match is a modified copy;
// the input is never touched. When changed is set the copy must be written.
// When finalize is set the rating adjustment must run and, if it succeeds,
// the match becomes finalized.
type outcome struct {
	match    *ledger.Match
	changed  bool
	finalize bool
}

// apply computes the next state of m for cmd. It performs no I/O.
// Authorization is checked before state, so a caller without the right to a
// command learns nothing about the match's progress.
func apply(m *ledger.Match, cmd command, p policy) (outcome, error) {
	next := m.Clone()
	switch c := cmd.(type) {
	case confirmCmd:
		return applyConfirm(next, c, p)
	case rejectCmd:
		return applyReject(next, c)
	case cancelCmd:
		return applyCancel(next, c)
	case approveCmd:
		return applyApprove(next, c)
	case vetoCmd:
		return applyVeto(next, c)
	case finalizeCmd:
		return applyFinalize(next, c)
	}
	return outcome{}, fmt.Errorf("%w: unknown command %T", ErrValidation, cmd)
}

func applyConfirm(m *ledger.Match, c confirmCmd, p policy) (outcome, error) {
	part := m.ParticipantByUser(c.userID)
	if part == nil {
		return outcome{}, fmt.Errorf("%w: %s is not a participant of match %s", ErrAuthorization, c.userID, m.ID)
	}
	if err := terminalError(m.State); err != nil {
		return outcome{}, err
	}

	switch m.State {
	case ledger.StateProposed:
		if part.Slot == ledger.SlotInitiator || part.Confirmed {
			return outcome{match: m}, nil
		}
		part.Confirmed = true
		if len(m.AwaitingConfirmation()) > 0 {
			return outcome{match: m, changed: true}, nil
		}
		if p.requiresApproval {
			m.State = ledger.StatePendingApproval
			return outcome{match: m, changed: true}, nil
		}
		m.State = ledger.StateConfirmed
		return outcome{match: m, changed: true, finalize: true}, nil

	case ledger.StateConfirmed:
		// A previous finalization did not complete.
		if p.requiresApproval {
			m.State = ledger.StatePendingApproval
			return outcome{match: m, changed: true}, nil
		}
		return outcome{match: m, finalize: true}, nil

	case ledger.StatePendingApproval:
		return outcome{match: m}, nil
	}
	return outcome{}, fmt.Errorf("%w: cannot confirm a %s match", ErrInvalidTransition, m.State)
}

func applyReject(m *ledger.Match, c rejectCmd) (outcome, error) {
	part := m.ParticipantByUser(c.userID)
	if part == nil {
		return outcome{}, fmt.Errorf("%w: %s is not a participant of match %s", ErrAuthorization, c.userID, m.ID)
	}
	if part.Slot == ledger.SlotInitiator {
		return outcome{}, fmt.Errorf("%w: the initiator cannot reject their own submission", ErrAuthorization)
	}
	if err := terminalError(m.State); err != nil {
		return outcome{}, err
	}
	if m.State != ledger.StateProposed {
		return outcome{}, fmt.Errorf("%w: cannot reject a %s match", ErrInvalidTransition, m.State)
	}
	if part.Confirmed {
		return outcome{}, fmt.Errorf("%w: %s already confirmed", ErrInvalidTransition, c.userID)
	}
	part.Rejected = true
	m.State = ledger.StateRejected
	return outcome{match: m, changed: true}, nil
}

func applyCancel(m *ledger.Match, c cancelCmd) (outcome, error) {
	if m.InitiatorID() != c.userID {
		return outcome{}, fmt.Errorf("%w: only the initiator can cancel match %s", ErrAuthorization, m.ID)
	}
	if err := terminalError(m.State); err != nil {
		return outcome{}, err
	}
	if m.State != ledger.StateProposed || len(m.ConfirmedBy()) > 0 {
		return outcome{}, fmt.Errorf("%w: match %s already has confirmations", ErrInvalidTransition, m.ID)
	}
	m.Participant(ledger.SlotInitiator).Rejected = true
	m.State = ledger.StateRejected
	return outcome{match: m, changed: true}, nil
}

func applyApprove(m *ledger.Match, c approveCmd) (outcome, error) {
	if !c.isAdmin {
		return outcome{}, fmt.Errorf("%w: %s is not a club admin", ErrAuthorization, c.approverID)
	}
	if err := terminalError(m.State); err != nil {
		return outcome{}, err
	}
	if m.State != ledger.StatePendingApproval {
		return outcome{}, fmt.Errorf("%w: cannot approve a %s match", ErrInvalidTransition, m.State)
	}
	approver := c.approverID
	m.ApproverID = &approver
	return outcome{match: m, finalize: true}, nil
}

func applyVeto(m *ledger.Match, c vetoCmd) (outcome, error) {
	if !c.isAdmin {
		return outcome{}, fmt.Errorf("%w: %s is not a club admin", ErrAuthorization, c.approverID)
	}
	reason := strings.TrimSpace(c.reason)
	if reason == "" || utf8.RuneCountInString(reason) > MaxVetoReasonLength {
		return outcome{}, fmt.Errorf("%w: veto reason must be 1 to %d characters", ErrValidation, MaxVetoReasonLength)
	}
	if err := terminalError(m.State); err != nil {
		return outcome{}, err
	}
	if m.State != ledger.StatePendingApproval && m.State != ledger.StateConfirmed {
		return outcome{}, fmt.Errorf("%w: cannot veto a %s match", ErrInvalidTransition, m.State)
	}
	approver := c.approverID
	m.ApproverID = &approver
	m.VetoReason = &reason
	m.State = ledger.StateVetoed
	return outcome{match: m, changed: true}, nil
}

func applyFinalize(m *ledger.Match, c finalizeCmd) (outcome, error) {
	if !c.isAdmin {
		return outcome{}, fmt.Errorf("%w: %s is not a club admin", ErrAuthorization, c.approverID)
	}
	if err := terminalError(m.State); err != nil {
		return outcome{}, err
	}
	if m.State != ledger.StateConfirmed {
		return outcome{}, fmt.Errorf("%w: only confirmed matches can be finalized, match is %s", ErrInvalidTransition, m.State)
	}
	approver := c.approverID
	m.ApproverID = &approver
	return outcome{match: m, finalize: true}, nil
}

// tiebreakTarget is the race-to number of each tiebreak format.
var tiebreakTarget = map[ledger.Format]int{
	ledger.FormatTB11: 11,
	ledger.FormatTB10: 10,
	ledger.FormatTB7:  7,
}

// ValidateScore checks that a side score is a possible final result of the
// format. Draws are never valid.
func ValidateScore(f ledger.Format, initiator, opponent int) error {
	if initiator < 0 || opponent < 0 {
		return fmt.Errorf("%w: scores must be non-negative", ErrInvalidScore)
	}
	if initiator == opponent {
		return fmt.Errorf("%w: %d-%d is a draw", ErrInvalidScore, initiator, opponent)
	}
	win, lose := max(initiator, opponent), min(initiator, opponent)

	var ok bool
	switch f {
	case ledger.Format6Game:
		ok = (win == 6 && lose <= 4) || (win == 7 && (lose == 5 || lose == 6))
	case ledger.Format4Game:
		ok = (win == 4 && lose <= 2) || (win == 5 && (lose == 3 || lose == 4))
	case ledger.FormatTB11, ledger.FormatTB10, ledger.FormatTB7:
		n := tiebreakTarget[f]
		ok = (win == n && lose <= n-2) || (win > n && lose == win-2)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, f)
	}
	if !ok {
		return fmt.Errorf("%w: %d-%d is not a %s result", ErrInvalidScore, initiator, opponent, f)
	}
	return nil
}

// ValidFormat reports whether f is a supported format.
func ValidFormat(f ledger.Format) bool {
	for _, known := range ledger.Formats {
		if known == f {
			return true
		}
	}
	return false
}
