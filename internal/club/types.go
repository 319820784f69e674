package club

import (
	"database/sql"
	"errors"
)

// Role is a member's authority inside a club.
type Role string

const (
	// RoleNone is returned for users who are not members of the club.
	RoleNone   Role = ""
	RoleMember Role = "member"
	RoleLeader Role = "leader"
	RoleAdmin  Role = "admin"
)

// IsAdmin reports whether the role may approve or veto matches.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleLeader
}

// Valid reports whether r is one of the known member roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleLeader, RoleAdmin:
		return true
	}
	return false
}

// ErrClubNotFound is returned when a club id is unknown.
var ErrClubNotFound = errors.New("club not found")

// Club is the scoping context for matches.
type Club struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	RequiresApproval bool   `json:"requires_approval" yaml:"requires_approval"`
}

// Member is a user's membership in a club.
type Member struct {
	ClubID string `json:"club_id"`
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// store handles all database operations for clubs.
type store struct {
	db *sql.DB
}
