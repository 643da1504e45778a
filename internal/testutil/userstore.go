// Package testutil holds in-memory stand-ins used by HTTP level tests.
package testutil

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/crm-admin-api/internal/models"
	"github.com/noah-isme/crm-admin-api/internal/repository"
)

// UserStore is an in-memory user repository that mirrors the Postgres
// behaviour: serial ids, a unique email index and sql.ErrNoRows for misses.
type UserStore struct {
	mu     sync.Mutex
	users  map[int64]models.User
	nextID int64
}

// NewUserStore seeds a store. Seeded ids are kept as given.
func NewUserStore(seed ...models.User) *UserStore {
	s := &UserStore{users: make(map[int64]models.User, len(seed))}
	for _, u := range seed {
		s.users[u.ID] = u
		if u.ID > s.nextID {
			s.nextID = u.ID
		}
	}
	return s
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(user.Email, 0) {
		return repository.ErrDuplicateEmail
	}
	s.nextID++
	now := time.Now().UTC()
	user.ID, user.CreatedAt, user.UpdatedAt = s.nextID, now, now
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	if s.emailTaken(user.Email, user.ID) {
		return repository.ErrDuplicateEmail
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.LastLogin = &ts
	s.users[id] = u
	return nil
}

func (s *UserStore) CountByRole(ctx context.Context) (map[models.UserRole]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[models.UserRole]int, len(models.Roles))
	for _, u := range s.users {
		counts[u.Role]++
	}
	return counts, nil
}

// Len reports the number of stored users.
func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *UserStore) emailTaken(email string, selfID int64) bool {
	for _, u := range s.users {
		if u.Email == email && u.ID != selfID {
			return true
		}
	}
	return false
}
