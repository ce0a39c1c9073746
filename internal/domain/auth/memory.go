package auth

import (
	"context"
	"strings"
	"sync"
)

// MemoryUsers is a UserFinder for the in-memory store driver.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]AuthUser
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: map[string]AuthUser{}}
}

func (m *MemoryUsers) Add(id, email, roleName, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(strings.TrimSpace(email))] = AuthUser{ID: id, RoleName: roleName, Password: hash}
	return nil
}

func (m *MemoryUsers) FindActiveUserByEmail(ctx context.Context, email string) (*AuthUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *MemoryUsers) UpdateLastLogin(ctx context.Context, userID string) error {
	return nil
}
