package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

const RoleSuperAdmin = "ROLE_SUPER_ADMIN"

// Repository reads and flags user records. User CRUD lives elsewhere; the
// authentication core only needs lookup, the lock flag and login stamps.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (User, error) {
	var (
		user        User
		authorities []string
		lastLoginAt sql.NullTime
	)
	// pgtype.Map caches scan plans and is not safe for concurrent use.
	types := pgtype.NewMap()

	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, authorities, is_active, is_locked, last_login_at, created_at, updated_at
		FROM users
		WHERE username = $1
	`, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		types.SQLScanner(&authorities),
		&user.Active,
		&user.Locked,
		&lastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by username: %w", err)
	}

	user.Authorities = authorities
	if lastLoginAt.Valid {
		value := lastLoginAt.Time.UTC()
		user.LastLoginAt = &value
	}

	return user, nil
}

func (r *Repository) SetLocked(ctx context.Context, username string, locked bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET is_locked = $2, updated_at = $3
		WHERE username = $1
	`, username, locked, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user lock flag: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user lock flag rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *Repository) RecordLogin(ctx context.Context, username string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET last_login_at = $2
		WHERE username = $1
	`, username, at.UTC())
	if err != nil {
		return fmt.Errorf("record last login: %w", err)
	}

	return nil
}

// UpsertAdmin creates or refreshes the bootstrap administrator. An existing
// account with the same username is reactivated and unlocked.
func (r *Repository) UpsertAdmin(ctx context.Context, username, plainPassword string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate uuid v7: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, authorities, is_active, is_locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, FALSE, $6, $6)
		ON CONFLICT (username)
		DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role,
			authorities = EXCLUDED.authorities,
			is_active = TRUE,
			is_locked = FALSE,
			updated_at = EXCLUDED.updated_at
	`, id.String(), username, string(hash), RoleSuperAdmin, SuperAdminAuthorities, now)
	if err != nil {
		return fmt.Errorf("upsert admin user: %w", err)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
