package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teamgrid/server-go/internal/model"
	"github.com/teamgrid/server-go/internal/util"
)

// AttemptLogRepository is the append-only login attempt log. It is the
// authoritative source for lockout decisions.
type AttemptLogRepository interface {
	Record(ctx context.Context, params model.RecordLoginAttemptParams) error
	CountFailedSince(ctx context.Context, email string, since time.Time) (int, error)
	LastFailedAt(ctx context.Context, email string) (*time.Time, error)
	// ClearFailed removes failed rows after a verified successful login.
	// Successful rows are retained for history display.
	ClearFailed(ctx context.Context, email string) error
	ListRecent(ctx context.Context, email string, limit int) ([]model.LoginAttempt, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type attemptLogRepo struct {
	db sessionDB
}

func NewAttemptLogRepository(db *sqlx.DB) AttemptLogRepository {
	return &attemptLogRepo{db: db}
}

func (r *attemptLogRepo) Record(ctx context.Context, params model.RecordLoginAttemptParams) error {
	id, err := util.GenerateToken()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, attempted_at, success, failure_reason)
		VALUES ($1, $2, $3, $4, NOW(), $5, $6)
	`, id[:32], strings.ToLower(params.Email), params.IPAddress, params.UserAgent, params.Success, params.FailureReason)
	return err
}

func (r *attemptLogRepo) CountFailedSince(ctx context.Context, email string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND success = FALSE AND attempted_at > $2
	`, strings.ToLower(email), since)
	return count, err
}

func (r *attemptLogRepo) LastFailedAt(ctx context.Context, email string) (*time.Time, error) {
	var at time.Time
	err := r.db.GetContext(ctx, &at, `
		SELECT attempted_at FROM login_attempts
		WHERE email = $1 AND success = FALSE
		ORDER BY attempted_at DESC
		LIMIT 1
	`, strings.ToLower(email))
	return HandleNotFound(&at, err)
}

func (r *attemptLogRepo) ClearFailed(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM login_attempts WHERE email = $1 AND success = FALSE
	`, strings.ToLower(email))
	return err
}

func (r *attemptLogRepo) ListRecent(ctx context.Context, email string, limit int) ([]model.LoginAttempt, error) {
	attempts := []model.LoginAttempt{}
	err := r.db.SelectContext(ctx, &attempts, `
		SELECT * FROM login_attempts
		WHERE email = $1
		ORDER BY attempted_at DESC
		LIMIT $2
	`, strings.ToLower(email), limit)
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *attemptLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM login_attempts WHERE attempted_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
