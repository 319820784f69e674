package workflow

import (
	"encoding/json"
	"testing"

	"github.com/mauv0809/match-ledger/internal/club"
	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusText(t *testing.T) {
	delta := 0.043
	reason := "score was 6-3"

	proposed := newDoubles(ledger.StateProposed)
	proposed.Participants[1].Confirmed = true

	finalized := newSingles(ledger.StateFinalized)
	finalized.Participants[0].Delta = &delta

	vetoed := newSingles(ledger.StateVetoed)
	vetoed.VetoReason = &reason

	rejected := newSingles(ledger.StateRejected)
	rejected.Participants[1].Rejected = true

	cancelled := newSingles(ledger.StateRejected)
	cancelled.Participants[0].Rejected = true

	tests := []struct {
		name   string
		m      *ledger.Match
		caller string
		want   string
	}{
		{"awaiting caller", proposed, "carol", "Waiting for your confirmation"},
		{"awaiting others", proposed, "bob", "Waiting for 2 confirmations"},
		{"awaiting one", newSingles(ledger.StateProposed), "alice", "Waiting for 1 confirmation"},
		{"confirmed", newSingles(ledger.StateConfirmed), "bob", "Confirmed, awaiting rating"},
		{"pending approval", newSingles(ledger.StatePendingApproval), "bob", "Awaiting admin approval"},
		{"finalized with delta", finalized, "alice", "Finalized (+0.043)"},
		{"finalized outsider", finalized, "admin", "Finalized"},
		{"rejected", rejected, "alice", "Rejected by bob"},
		{"cancelled", cancelled, "bob", "Cancelled by initiator"},
		{"vetoed", vetoed, "bob", "Vetoed: score was 6-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DeriveCallerView(tt.m, tt.caller, club.RoleMember)
			assert.Equal(t, tt.want, v.DisplayStatusText)
		})
	}
}

func TestMatchViewJSON(t *testing.T) {
	m := newDoubles(ledger.StateProposed)
	m.Participants[2].Confirmed = true

	data, err := json.Marshal(NewMatchView(m, "bob", club.RoleMember))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "m2", got["id"])
	assert.Equal(t, "proposed", got["state"])
	assert.Equal(t, []any{"carol"}, got["confirmed_by"])
	assert.Equal(t, []any{}, got["rejected_by"])
	assert.Equal(t, true, got["can_confirm"])
	assert.Equal(t, true, got["can_decline"])
	assert.Equal(t, false, got["can_cancel"])
	assert.Equal(t, "Waiting for your confirmation", got["display_status_text"])
}
