package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/teamgrid/server-go/internal/model"
)

type InvitationRepository interface {
	Create(ctx context.Context, id string, params model.CreateInvitationParams) (*model.Invitation, error)
	FindByToken(ctx context.Context, token string) (*model.Invitation, error)
	FindPendingByEmail(ctx context.Context, teamID, email string) (*model.Invitation, error)
	ListPending(ctx context.Context, teamID string) ([]model.Invitation, error)
	MarkAccepted(ctx context.Context, id string) error
	Delete(ctx context.Context, id, teamID string) (bool, error)
}

type invitationRepo struct {
	db sessionDB
}

func NewInvitationRepository(db *sqlx.DB) InvitationRepository {
	return &invitationRepo{db: db}
}

func (r *invitationRepo) Create(ctx context.Context, id string, params model.CreateInvitationParams) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.GetContext(ctx, &inv, `
		INSERT INTO invitations (id, team_id, email, role, invited_by_user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING *
	`, id, params.TeamID, strings.ToLower(params.Email), params.Role,
		params.InvitedByUserID, params.Token, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepo) FindByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.GetContext(ctx, &inv, `
		SELECT * FROM invitations WHERE token = $1 AND accepted_at IS NULL
	`, token)
	return HandleNotFound(&inv, err)
}

func (r *invitationRepo) FindPendingByEmail(ctx context.Context, teamID, email string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.GetContext(ctx, &inv, `
		SELECT * FROM invitations
		WHERE team_id = $1 AND email = $2 AND accepted_at IS NULL AND expires_at > NOW()
	`, teamID, strings.ToLower(email))
	return HandleNotFound(&inv, err)
}

func (r *invitationRepo) ListPending(ctx context.Context, teamID string) ([]model.Invitation, error) {
	invitations := []model.Invitation{}
	err := r.db.SelectContext(ctx, &invitations, `
		SELECT * FROM invitations
		WHERE team_id = $1 AND accepted_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *invitationRepo) MarkAccepted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE invitations SET accepted_at = NOW() WHERE id = $1
	`, id)
	return err
}

func (r *invitationRepo) Delete(ctx context.Context, id, teamID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM invitations WHERE id = $1 AND team_id = $2 AND accepted_at IS NULL
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
