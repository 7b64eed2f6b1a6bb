// Package auth_repo provides PostgreSQL implementations for auth repositories.
package auth_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/domain/auth"
	"tannery/internal/infrastructure/storage/postgres"
)

const usersTable = "sys_users"

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txManager *postgres.TxManager
}

var _ auth.UserRepository = (*UserRepo)(nil)

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *postgres.TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	query := `
		INSERT INTO sys_users (
			id, email, password_hash, first_name, last_name,
			is_active, failed_login_attempts, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.IsActive,
		user.FailedLoginAttempts, user.Version,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userSelect = `
	SELECT id, email, password_hash, first_name, last_name,
		   is_active, last_login_at, failed_login_attempts, locked_until,
		   created_at, updated_at, deleted_at, version
	FROM sys_users
`

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	query := userSelect + ` WHERE id = $1 AND deleted_at IS NULL`

	var user auth.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &user, query, userID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", userID.String())
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := userSelect + ` WHERE lower(email) = lower($1) AND deleted_at IS NULL`

	var user auth.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &user, query, email); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", email)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// Update updates user data.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	query := `
		UPDATE sys_users SET
			email = $2, password_hash = $3, first_name = $4, last_name = $5,
			is_active = $6, last_login_at = $7,
			failed_login_attempts = $8, locked_until = $9,
			updated_at = $10, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL
	`

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.IsActive,
		user.LastLoginAt, user.FailedLoginAttempts, user.LockedUntil,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("user", user.ID.String())
	}
	return nil
}

// Exists checks if email is already registered.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	query := `SELECT 1 FROM sys_users WHERE lower(email) = lower($1) AND deleted_at IS NULL LIMIT 1`

	var one int
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &one, query, email); err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return true, nil
}
