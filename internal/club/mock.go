package club

import (
	"context"
	"sync"
)

// MockStore is an in-memory Directory for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu       sync.Mutex
	roles    map[string]map[string]Role
	approval map[string]bool

	// Spies for method calls
	RoleFunc             func(clubID, userID string) (Role, error)
	RequiresApprovalFunc func(clubID string) (bool, error)

	// Call records
	RoleCalls []struct {
		ClubID string
		UserID string
	}
}

var _ Directory = (*MockStore)(nil)

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{
		roles:    make(map[string]map[string]Role),
		approval: make(map[string]bool),
	}
}

// SetRole records a member's role.
func (m *MockStore) SetRole(clubID, userID string, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[clubID] == nil {
		m.roles[clubID] = make(map[string]Role)
	}
	m.roles[clubID][userID] = role
}

// SetRequiresApproval sets the club's approval policy.
func (m *MockStore) SetRequiresApproval(clubID string, required bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approval[clubID] = required
}

func (m *MockStore) Role(ctx context.Context, clubID, userID string) (Role, error) {
	m.mu.Lock()
	m.RoleCalls = append(m.RoleCalls, struct {
		ClubID string
		UserID string
	}{clubID, userID})
	fn := m.RoleFunc
	role := m.roles[clubID][userID]
	m.mu.Unlock()
	if fn != nil {
		return fn(clubID, userID)
	}
	return role, nil
}

func (m *MockStore) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	role, err := m.Role(ctx, clubID, userID)
	return role != RoleNone, err
}

func (m *MockStore) IsAdmin(ctx context.Context, clubID, userID string) (bool, error) {
	role, err := m.Role(ctx, clubID, userID)
	return role.IsAdmin(), err
}

func (m *MockStore) RequiresApproval(ctx context.Context, clubID string) (bool, error) {
	m.mu.Lock()
	fn := m.RequiresApprovalFunc
	required := m.approval[clubID]
	m.mu.Unlock()
	if fn != nil {
		return fn(clubID)
	}
	return required, nil
}
