package club

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// New creates a new ClubStore.
func New(db *sql.DB) ClubStore {
	return &store{
		db: db,
	}
}

// UpsertClub inserts a club or updates its name and approval policy.
func (s *store) UpsertClub(ctx context.Context, c Club) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clubs (id, name, requires_approval) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			requires_approval = excluded.requires_approval;
	`, c.ID, c.Name, c.RequiresApproval)
	if err != nil {
		return fmt.Errorf("failed to upsert club %s: %w", c.ID, err)
	}
	log.Info("Upserted club", "clubID", c.ID, "requires_approval", c.RequiresApproval)
	return nil
}

func (s *store) GetClub(ctx context.Context, clubID string) (*Club, error) {
	var c Club
	err := s.db.QueryRowContext(ctx, "SELECT id, name, requires_approval FROM clubs WHERE id = ?", clubID).
		Scan(&c.ID, &c.Name, &c.RequiresApproval)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClubNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get club %s: %w", clubID, err)
	}
	return &c, nil
}

// AddMember adds a user to a club, or changes the role of an existing member.
func (s *store) AddMember(ctx context.Context, clubID, userID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO club_members (club_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT(club_id, user_id) DO UPDATE SET role = excluded.role;
	`, clubID, userID, string(role))
	if err != nil {
		return fmt.Errorf("failed to add member %s to club %s: %w", userID, clubID, err)
	}
	log.Debug("Added club member", "clubID", clubID, "userID", userID, "role", role)
	return nil
}

func (s *store) ListMembers(ctx context.Context, clubID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT club_id, user_id, role FROM club_members WHERE club_id = ? ORDER BY user_id", clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of club %s: %w", clubID, err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var role string
		if err := rows.Scan(&m.ClubID, &m.UserID, &role); err != nil {
			return nil, err
		}
		m.Role = Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

// Role returns the user's role in the club, or RoleNone for non-members.
func (s *store) Role(ctx context.Context, clubID, userID string) (Role, error) {
	var role string
	err := s.db.QueryRowContext(ctx, "SELECT role FROM club_members WHERE club_id = ? AND user_id = ?", clubID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, fmt.Errorf("failed to look up role of %s in club %s: %w", userID, clubID, err)
	}
	return Role(role), nil
}

func (s *store) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	role, err := s.Role(ctx, clubID, userID)
	if err != nil {
		return false, err
	}
	return role != RoleNone, nil
}

func (s *store) IsAdmin(ctx context.Context, clubID, userID string) (bool, error) {
	role, err := s.Role(ctx, clubID, userID)
	if err != nil {
		return false, err
	}
	return role.IsAdmin(), nil
}

// RequiresApproval reports the club's approval policy. Unknown clubs are an
// error rather than silently using the no-approval path.
func (s *store) RequiresApproval(ctx context.Context, clubID string) (bool, error) {
	c, err := s.GetClub(ctx, clubID)
	if err != nil {
		return false, err
	}
	return c.RequiresApproval, nil
}
