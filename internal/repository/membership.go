package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/teamgrid/server-go/internal/model"
)

type MembershipRepository interface {
	Find(ctx context.Context, teamID, userID string) (*model.TeamMembership, error)
	Role(ctx context.Context, teamID, userID string) (*model.TeamRole, error)
	FirstTeamForUser(ctx context.Context, userID string) (*string, error)
	ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error)
	Insert(ctx context.Context, id, teamID, userID string, role model.TeamRole) (*model.TeamMembership, error)
	UpdateRole(ctx context.Context, teamID, userID string, role model.TeamRole) (bool, error)
	Delete(ctx context.Context, teamID, userID string) (bool, error)
	CountAdmins(ctx context.Context, teamID string) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) MembershipRepository
}

type membershipRepo struct {
	db sessionDB
}

func NewMembershipRepository(db *sqlx.DB) MembershipRepository {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) WithTx(tx *sqlx.Tx) MembershipRepository {
	return &membershipRepo{db: tx}
}

func (r *membershipRepo) Find(ctx context.Context, teamID, userID string) (*model.TeamMembership, error) {
	var m model.TeamMembership
	err := r.db.GetContext(ctx, &m, `
		SELECT * FROM team_memberships WHERE team_id = $1 AND user_id = $2
	`, teamID, userID)
	return HandleNotFound(&m, err)
}

func (r *membershipRepo) Role(ctx context.Context, teamID, userID string) (*model.TeamRole, error) {
	m, err := r.Find(ctx, teamID, userID)
	if err != nil || m == nil {
		return nil, err
	}
	return &m.Role, nil
}

// FirstTeamForUser returns the user's first team by join order, or nil
// when the user belongs to no team.
func (r *membershipRepo) FirstTeamForUser(ctx context.Context, userID string) (*string, error) {
	var teamID string
	err := r.db.GetContext(ctx, &teamID, `
		SELECT m.team_id FROM team_memberships m
		JOIN teams t ON t.id = m.team_id
		WHERE m.user_id = $1 AND t.is_archived = FALSE
		ORDER BY m.joined_at, m.team_id
		LIMIT 1
	`, userID)
	return HandleNotFound(&teamID, err)
}

func (r *membershipRepo) ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	members := []model.TeamMember{}
	err := r.db.SelectContext(ctx, &members, `
		SELECT u.id, u.name, u.email, m.role, u.avatar, u.availability, m.joined_at
		FROM team_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.joined_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *membershipRepo) Insert(ctx context.Context, id, teamID, userID string, role model.TeamRole) (*model.TeamMembership, error) {
	var m model.TeamMembership
	err := r.db.GetContext(ctx, &m, `
		INSERT INTO team_memberships (id, team_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING *
	`, id, teamID, userID, role)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepo) UpdateRole(ctx context.Context, teamID, userID string, role model.TeamRole) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE team_memberships SET role = $3 WHERE team_id = $1 AND user_id = $2
	`, teamID, userID, role)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *membershipRepo) Delete(ctx context.Context, teamID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM team_memberships WHERE team_id = $1 AND user_id = $2
	`, teamID, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *membershipRepo) CountAdmins(ctx context.Context, teamID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM team_memberships WHERE team_id = $1 AND role = 'admin'
	`, teamID)
	return count, err
}
