package club

import "context"

// Directory answers the roster and role questions the workflow needs about a
// club. Membership administration lives outside this service; the workflow
// only reads.
type Directory interface {
	Role(ctx context.Context, clubID, userID string) (Role, error)
	IsMember(ctx context.Context, clubID, userID string) (bool, error)
	IsAdmin(ctx context.Context, clubID, userID string) (bool, error)
	RequiresApproval(ctx context.Context, clubID string) (bool, error)
}

// ClubStore is the SQLite-backed Directory, plus the writes used by the
// seeder and tests.
type ClubStore interface {
	Directory
	UpsertClub(ctx context.Context, c Club) error
	GetClub(ctx context.Context, clubID string) (*Club, error)
	AddMember(ctx context.Context, clubID, userID string, role Role) error
	ListMembers(ctx context.Context, clubID string) ([]Member, error)
}
