package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"user-portal/internal/observability"
)

// UserStore is the persistence collaborator the login flow depends on.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	SetLocked(ctx context.Context, username string, locked bool) error
	RecordLogin(ctx context.Context, username string, at time.Time) error
}

// dummyPasswordHash is compared against when the username is unknown so
// both rejection paths pay for one bcrypt comparison.
var dummyPasswordHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("user-portal-unknown-account"), bcrypt.DefaultCost)
	return hash
})

type Service struct {
	users    UserStore
	attempts AttemptTracker
	listener *FailureListener
	codec    *TokenCodec
	logger   *observability.Logger
	metrics  *observability.Metrics
	now      func() time.Time
	compare  func(hash, password []byte) error
}

func NewService(users UserStore, attempts AttemptTracker, codec *TokenCodec, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		users:    users,
		attempts: attempts,
		listener: NewFailureListener(attempts, logger, metrics),
		codec:    codec,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		compare:  bcrypt.CompareHashAndPassword,
	}
}

// Login checks the credentials and the lockout state and returns the
// principal together with a freshly signed token.
func (s *Service) Login(ctx context.Context, username, password string) (Principal, string, error) {
	username = NormalizeUsername(username)
	if username == "" || password == "" {
		return Principal{}, "", ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = s.compare(dummyPasswordHash(), []byte(password))
			s.listener.OnBadCredentials(ctx, BadCredentialsEvent{Username: username})
			return Principal{}, "", ErrInvalidCredentials
		}
		return Principal{}, "", err
	}

	if err := s.validateLoginAttempt(ctx, &user); err != nil {
		return Principal{}, "", err
	}
	if user.Locked {
		return Principal{}, "", ErrAccountLocked
	}
	if !user.Active {
		return Principal{}, "", ErrAccountDisabled
	}

	if err := s.compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.listener.OnBadCredentials(ctx, BadCredentialsEvent{Username: username})
		return Principal{}, "", ErrInvalidCredentials
	}

	if err := s.attempts.Evict(ctx, username); err != nil {
		s.logger.Error("evict_login_attempts_failed", map[string]any{"username": username, "error": err.Error()})
	}
	if err := s.users.RecordLogin(ctx, username, s.now().UTC()); err != nil {
		return Principal{}, "", err
	}

	principal := user.Principal()
	token, err := s.codec.Issue(principal)
	if err != nil {
		return Principal{}, "", err
	}
	s.metrics.RecordTokenIssued(ctx)
	s.logger.Info("login_succeeded", map[string]any{"username": username})

	return principal, token, nil
}

// validateLoginAttempt locks an account that crossed the failure threshold.
// Once the persisted flag is set the cached counter is no longer needed.
func (s *Service) validateLoginAttempt(ctx context.Context, user *User) error {
	if user.Locked {
		if err := s.attempts.Evict(ctx, user.Username); err != nil {
			s.logger.Error("evict_login_attempts_failed", map[string]any{"username": user.Username, "error": err.Error()})
		}
		return nil
	}

	exceeded, err := s.attempts.HasExceededMaxAttempts(ctx, user.Username)
	if err != nil {
		return fmt.Errorf("check login attempts: %w", err)
	}
	if !exceeded {
		return nil
	}

	if err := s.users.SetLocked(ctx, user.Username, true); err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	user.Locked = true
	s.metrics.RecordAccountLocked(ctx)
	s.logger.Warn("account_locked", map[string]any{"username": user.Username})

	return nil
}

// Unlock clears the persisted lock flag and forgets recorded failures.
func (s *Service) Unlock(ctx context.Context, username string) error {
	username = NormalizeUsername(username)
	if username == "" {
		return sql.ErrNoRows
	}

	if err := s.users.SetLocked(ctx, username, false); err != nil {
		return err
	}
	if err := s.attempts.Evict(ctx, username); err != nil {
		return fmt.Errorf("evict login attempts: %w", err)
	}
	s.logger.Info("account_unlocked", map[string]any{"username": username})

	return nil
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountDisabled    = errors.New("account disabled")
)
