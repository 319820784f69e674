package club_test

import (
	"context"
	"testing"

	"github.com/mauv0809/match-ledger/internal/club"
	"github.com/mauv0809/match-ledger/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (club.ClubStore, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	return club.New(db), dbTeardown
}

func TestUpsertAndGetClub(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.UpsertClub(ctx, club.Club{ID: "c1", Name: "Padel Club"}))
	c, err := store.GetClub(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Padel Club", c.Name)
	assert.False(t, c.RequiresApproval)

	require.NoError(t, store.UpsertClub(ctx, club.Club{ID: "c1", Name: "Padel Club", RequiresApproval: true}))
	required, err := store.RequiresApproval(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, required)

	_, err = store.GetClub(ctx, "missing")
	assert.ErrorIs(t, err, club.ErrClubNotFound)
	_, err = store.RequiresApproval(ctx, "missing")
	assert.ErrorIs(t, err, club.ErrClubNotFound)
}

func TestMembershipAndRoles(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	require.NoError(t, store.UpsertClub(ctx, club.Club{ID: "c1", Name: "Padel Club"}))
	require.NoError(t, store.AddMember(ctx, "c1", "alice", club.RoleMember))
	require.NoError(t, store.AddMember(ctx, "c1", "bob", club.RoleLeader))
	require.NoError(t, store.AddMember(ctx, "c1", "carol", club.RoleAdmin))

	tests := []struct {
		user     string
		member   bool
		admin    bool
		wantRole club.Role
	}{
		{"alice", true, false, club.RoleMember},
		{"bob", true, true, club.RoleLeader},
		{"carol", true, true, club.RoleAdmin},
		{"mallory", false, false, club.RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			role, err := store.Role(ctx, "c1", tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, role)

			member, err := store.IsMember(ctx, "c1", tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.member, member)

			admin, err := store.IsAdmin(ctx, "c1", tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.admin, admin)
		})
	}

	// Promoting an existing member replaces the role.
	require.NoError(t, store.AddMember(ctx, "c1", "alice", club.RoleAdmin))
	admin, err := store.IsAdmin(ctx, "c1", "alice")
	require.NoError(t, err)
	assert.True(t, admin)

	members, err := store.ListMembers(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, members, 3)

	assert.Error(t, store.AddMember(ctx, "c1", "dave", club.Role("owner")))
}
