package model

import "time"

type User struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Email        string  `db:"email" json:"email"`
	Role         string  `db:"role" json:"role"` // legacy default role, superseded by team membership
	Avatar       *string `db:"avatar" json:"avatar,omitempty"`
	Availability bool    `db:"availability" json:"availability"`
	// PasswordHash is nullable: a user without a password set can never
	// authenticate, but looking them up must not fail.
	PasswordHash        *string    `db:"password_hash" json:"-"`
	IsActive            bool       `db:"is_active" json:"-"`
	MustChangePassword  bool       `db:"must_change_password" json:"-"`
	PasswordChangedAt   *time.Time `db:"password_changed_at" json:"-"`
	CreatedAt           *time.Time `db:"created_at" json:"createdAt,omitempty"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	AccountLockedUntil  *time.Time `db:"account_locked_until" json:"-"`
}

type CreateUserParams struct {
	Name         string
	Email        string
	Role         string
	PasswordHash string
}
