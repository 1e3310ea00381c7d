// README: In-memory user store for tests and database-less runs.
package user

import (
	"context"
	"sync"
	"time"

	"campusride/internal/types"
)

type MemoryStore struct {
	mu    sync.Mutex
	users map[types.ID]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[types.ID]User{}}
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *MemoryStore) SaveProfile(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cur, ok := m.users[u.ID]
	if !ok {
		cur = User{ID: u.ID, Role: u.Role, CreatedAt: now}
	}
	cur.Name = u.Name
	cur.Email = u.Email
	cur.UpdatedAt = now
	m.users[u.ID] = cur
	*u = *copyUser(cur)
	return nil
}

func (m *MemoryStore) SetRating(_ context.Context, driverID types.ID, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	cur, ok := m.users[driverID]
	if !ok {
		cur = User{ID: driverID, Role: types.RoleDriver, CreatedAt: now}
	}
	if cur.Role != types.RoleDriver {
		return ErrNotDriver
	}
	v := value
	cur.Rating = &v
	cur.UpdatedAt = now
	m.users[driverID] = cur
	return nil
}

func copyUser(u User) *User {
	c := u
	if u.Rating != nil {
		r := *u.Rating
		c.Rating = &r
	}
	return &c
}
