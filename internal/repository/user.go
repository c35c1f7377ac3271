package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teamgrid/server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, id string, params model.CreateUserParams) (*model.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string) error
	// UpdateLockoutState mirrors the attempt-log-derived lockout onto the
	// user row for display purposes. The attempt log stays authoritative.
	UpdateLockoutState(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db sessionDB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	return HandleNotFound(&user, err)
}

// FindByEmail treats email as a case-insensitive key.
func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE lower(email) = $1
	`, strings.ToLower(email))
	return HandleNotFound(&user, err)
}

func (r *userRepo) Create(ctx context.Context, id string, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (id, name, email, role, password_hash, is_active, availability, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, TRUE, NOW())
		RETURNING *
	`, id, params.Name, strings.ToLower(params.Email), params.Role, params.PasswordHash)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, password_changed_at = NOW() WHERE id = $1
	`, id, passwordHash)
	return err
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = NOW() WHERE id = $1
	`, id)
	return err
}

func (r *userRepo) UpdateLockoutState(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET failed_login_attempts = $2, account_locked_until = $3 WHERE id = $1
	`, id, failedAttempts, lockedUntil)
	return err
}
