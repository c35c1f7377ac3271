package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/teamgrid/server-go/internal/model"
)

type TeamRepository interface {
	FindByID(ctx context.Context, id string) (*model.Team, error)
	ListForUser(ctx context.Context, userID string) ([]model.Team, error)
	Create(ctx context.Context, id, name, accountType string, createdByUserID *string) (*model.Team, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) TeamRepository
}

type teamRepo struct {
	db sessionDB
}

func NewTeamRepository(db *sqlx.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) WithTx(tx *sqlx.Tx) TeamRepository {
	return &teamRepo{db: tx}
}

func (r *teamRepo) FindByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.db.GetContext(ctx, &team, `
		SELECT * FROM teams WHERE id = $1 AND is_archived = FALSE
	`, id)
	return HandleNotFound(&team, err)
}

// ListForUser returns teams in a stable order so "first team" fallback
// is deterministic.
func (r *teamRepo) ListForUser(ctx context.Context, userID string) ([]model.Team, error) {
	teams := []model.Team{}
	err := r.db.SelectContext(ctx, &teams, `
		SELECT t.* FROM teams t
		JOIN team_memberships m ON m.team_id = t.id
		WHERE m.user_id = $1 AND t.is_archived = FALSE
		ORDER BY m.joined_at, t.id
	`, userID)
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepo) Create(ctx context.Context, id, name, accountType string, createdByUserID *string) (*model.Team, error) {
	var team model.Team
	err := r.db.GetContext(ctx, &team, `
		INSERT INTO teams (id, name, account_type, created_at, created_by_user_id, is_archived)
		VALUES ($1, $2, $3, NOW(), $4, FALSE)
		RETURNING *
	`, id, name, accountType, createdByUserID)
	if err != nil {
		return nil, err
	}
	return &team, nil
}
