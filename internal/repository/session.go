package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teamgrid/server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	UpdateLastAccessed(ctx context.Context, id string, at time.Time) error
	UpdateLastActivity(ctx context.Context, id string, at time.Time) error
	UpdateTeam(ctx context.Context, id string, teamID string) (bool, error)
	UpdateCSRFToken(ctx context.Context, id string, token *string) error
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string, exceptID *string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (id, user_id, team_id, created_at, expires_at, last_accessed, last_activity_at, ip_address, user_agent)
		VALUES ($1, $2, $3, NOW(), $4, NOW(), NOW(), $5, $6)
		RETURNING *
	`, params.ID, params.UserID, params.TeamID, params.ExpiresAt, params.IPAddress, params.UserAgent)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) UpdateLastAccessed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_accessed = $2 WHERE id = $1
	`, id, at)
	return err
}

func (r *sessionRepo) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity_at = $2 WHERE id = $1
	`, id, at)
	return err
}

func (r *sessionRepo) UpdateTeam(ctx context.Context, id string, teamID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET team_id = $2 WHERE id = $1
	`, id, teamID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *sessionRepo) UpdateCSRFToken(ctx context.Context, id string, token *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET csrf_token = $2 WHERE id = $1
	`, id, token)
	return err
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *sessionRepo) DeleteByUserID(ctx context.Context, userID string, exceptID *string) (int64, error) {
	var result sql.Result
	var err error
	if exceptID != nil {
		result, err = r.db.ExecContext(ctx, `
			DELETE FROM sessions WHERE user_id = $1 AND id != $2
		`, userID, *exceptID)
	} else {
		result, err = r.db.ExecContext(ctx, `
			DELETE FROM sessions WHERE user_id = $1
		`, userID)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteExpired reaps rows past their absolute expiration. Expiry is
// otherwise detected lazily at validation time; this only keeps the
// table from accumulating dead rows.
func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
