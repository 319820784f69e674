package workflow

import (
	"fmt"
	"strings"

	"github.com/mauv0809/match-ledger/internal/club"
	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/mauv0809/match-ledger/internal/rating"
)

// ViewFlags tell a caller what the match means to them and which actions
// they may take. They are derived per request and never stored.
type ViewFlags struct {
	DisplayStatusText string `json:"display_status_text"`
	CanConfirm        bool   `json:"can_confirm"`
	CanDecline        bool   `json:"can_decline"`
	CanApprove        bool   `json:"can_approve"`
	CanVeto           bool   `json:"can_veto"`
	CanCancel         bool   `json:"can_cancel"`
}

// MatchView is a match as returned to one caller.
type MatchView struct {
	*ledger.Match
	ConfirmedBy []string `json:"confirmed_by"`
	RejectedBy  []string `json:"rejected_by"`
	ViewFlags
}

// NewMatchView derives the caller's view of m.
func NewMatchView(m *ledger.Match, callerID string, role club.Role) *MatchView {
	confirmed := m.ConfirmedBy()
	if confirmed == nil {
		confirmed = []string{}
	}
	rejected := m.RejectedBy()
	if rejected == nil {
		rejected = []string{}
	}
	return &MatchView{
		Match:       m,
		ConfirmedBy: confirmed,
		RejectedBy:  rejected,
		ViewFlags:   DeriveCallerView(m, callerID, role),
	}
}

// DeriveCallerView computes the flags for callerID holding role in the
// match's club. A flag is set only when the matching command would be
// accepted by the state machine.
func DeriveCallerView(m *ledger.Match, callerID string, role club.Role) ViewFlags {
	part := m.ParticipantByUser(callerID)
	isOpponentSide := part != nil && part.Slot != ledger.SlotInitiator
	isInitiator := part != nil && part.Slot == ledger.SlotInitiator
	admin := role.IsAdmin()

	var v ViewFlags
	switch m.State {
	case ledger.StateProposed:
		v.CanConfirm = isOpponentSide && !part.Confirmed
		v.CanDecline = v.CanConfirm
		v.CanCancel = isInitiator && len(m.ConfirmedBy()) == 0
	case ledger.StateConfirmed:
		// Confirming again retries a finalization that did not complete.
		v.CanConfirm = part != nil
		v.CanVeto = admin
	case ledger.StatePendingApproval:
		v.CanApprove = admin
		v.CanVeto = admin
	}
	v.DisplayStatusText = statusText(m, part)
	return v
}

func statusText(m *ledger.Match, part *ledger.Participant) string {
	switch m.State {
	case ledger.StateProposed:
		if part != nil && part.Slot != ledger.SlotInitiator && !part.Confirmed {
			return "Waiting for your confirmation"
		}
		n := len(m.AwaitingConfirmation())
		if n == 1 {
			return "Waiting for 1 confirmation"
		}
		return fmt.Sprintf("Waiting for %d confirmations", n)
	case ledger.StateConfirmed:
		return "Confirmed, awaiting rating"
	case ledger.StatePendingApproval:
		return "Awaiting admin approval"
	case ledger.StateFinalized:
		if part != nil && part.Delta != nil {
			return fmt.Sprintf("Finalized (%s)", rating.FormatDelta(*part.Delta))
		}
		return "Finalized"
	case ledger.StateRejected:
		rejectedBy := m.RejectedBy()
		if len(rejectedBy) == 1 && rejectedBy[0] == m.InitiatorID() {
			return "Cancelled by initiator"
		}
		return "Rejected by " + strings.Join(rejectedBy, ", ")
	case ledger.StateVetoed:
		if m.VetoReason != nil {
			return "Vetoed: " + *m.VetoReason
		}
		return "Vetoed"
	}
	return string(m.State)
}
