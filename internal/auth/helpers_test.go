package auth

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"user-portal/internal/observability"
)

const testSecret = "0123456789abcdef0123456789abcdef-test-secret"

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()

	codec, err := NewTokenCodec(TokenConfig{Secret: testSecret})
	require.NoError(t, err)
	return codec
}

func discardLogger() *observability.Logger {
	return observability.NewLoggerTo(io.Discard)
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

type memoryUserStore struct {
	mu     sync.Mutex
	users  map[string]User
	logins map[string]time.Time
}

func newMemoryUserStore(users ...User) *memoryUserStore {
	store := &memoryUserStore{users: make(map[string]User), logins: make(map[string]time.Time)}
	for _, user := range users {
		store.users[user.Username] = user
	}
	return store
}

func (s *memoryUserStore) GetByUsername(_ context.Context, username string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s *memoryUserStore) SetLocked(_ context.Context, username string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return sql.ErrNoRows
	}
	user.Locked = locked
	s.users[username] = user
	return nil
}

func (s *memoryUserStore) RecordLogin(_ context.Context, username string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logins[username] = at
	return nil
}

func (s *memoryUserStore) locked(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[username].Locked
}

func newTestUser(t *testing.T, username, password string, authorities ...string) User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return User{
		ID:           "id-" + username,
		Username:     username,
		PasswordHash: string(hash),
		Role:         "ROLE_USER",
		Authorities:  authorities,
		Active:       true,
	}
}
