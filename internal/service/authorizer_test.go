package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamgrid/server-go/internal/config"
	apperrors "github.com/teamgrid/server-go/internal/errors"
	"github.com/teamgrid/server-go/internal/model"
)

func rolePtr(r model.TeamRole) *model.TeamRole { return &r }

func TestRequireTeamContext(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, teamID *string, memberships *mockMembershipRepo) (*Authorizer, *fakeSessionRepo, string) {
		t.Helper()
		repo := newFakeSessionRepo()
		sessions := NewSessionService(repo, config.DefaultSessionPolicy())
		session, err := sessions.Create(ctx, "u_1", teamID, nil, nil)
		require.NoError(t, err)
		return NewAuthorizer(sessions, memberships), repo, session.ID
	}

	t.Run("session with team and membership", func(t *testing.T) {
		teamID := "team_1"
		auth, _, sessionID := setup(t, &teamID, &mockMembershipRepo{
			roleFunc: func(ctx context.Context, teamID, userID string) (*model.TeamRole, error) {
				return rolePtr(model.RoleAdmin), nil
			},
		})

		authCtx, err := auth.RequireTeamContext(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "u_1", authCtx.UserID)
		assert.Equal(t, "team_1", authCtx.TeamID)
		assert.Equal(t, model.RoleAdmin, authCtx.Role)
	})

	t.Run("teamless session falls back to first team and persists it", func(t *testing.T) {
		first := "team_first"
		auth, repo, sessionID := setup(t, nil, &mockMembershipRepo{
			firstTeamForUserFunc: func(ctx context.Context, userID string) (*string, error) {
				return &first, nil
			},
			roleFunc: func(ctx context.Context, teamID, userID string) (*model.TeamRole, error) {
				return rolePtr(model.RoleMember), nil
			},
		})

		authCtx, err := auth.RequireTeamContext(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "team_first", authCtx.TeamID)

		stored := repo.get(sessionID).TeamID
		require.NotNil(t, stored)
		assert.Equal(t, "team_first", *stored, "fallback team must be written back to the session")
	})

	t.Run("user with no teams at all", func(t *testing.T) {
		auth, _, sessionID := setup(t, nil, &mockMembershipRepo{})

		_, err := auth.RequireTeamContext(ctx, sessionID)
		assert.Equal(t, apperrors.ErrCodeNoTeamContext, apperrors.GetCode(err))
	})

	t.Run("stale team binding without membership is forbidden", func(t *testing.T) {
		teamID := "team_gone"
		auth, _, sessionID := setup(t, &teamID, &mockMembershipRepo{
			roleFunc: func(ctx context.Context, teamID, userID string) (*model.TeamRole, error) {
				return nil, nil
			},
		})

		_, err := auth.RequireTeamContext(ctx, sessionID)
		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
	})

	t.Run("invalid session", func(t *testing.T) {
		auth, _, _ := setup(t, nil, &mockMembershipRepo{})

		_, err := auth.RequireTeamContext(ctx, "nope")
		assert.Equal(t, apperrors.ErrCodeSessionExpired, apperrors.GetCode(err))
	})
}

func TestRequireAdmin(t *testing.T) {
	auth := NewAuthorizer(nil, nil)

	assert.NoError(t, auth.RequireAdmin(&AuthContext{Role: model.RoleAdmin}))

	err := auth.RequireAdmin(&AuthContext{Role: model.RoleMember})
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))

	err = auth.RequireAdmin(&AuthContext{Role: model.RoleViewer})
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
}

func TestOptionalTeamContext(t *testing.T) {
	ctx := context.Background()

	t.Run("valid binding", func(t *testing.T) {
		repo := newFakeSessionRepo()
		sessions := NewSessionService(repo, config.DefaultSessionPolicy())
		teamID := "team_1"
		session, err := sessions.Create(ctx, "u_1", &teamID, nil, nil)
		require.NoError(t, err)

		auth := NewAuthorizer(sessions, &mockMembershipRepo{
			roleFunc: func(ctx context.Context, teamID, userID string) (*model.TeamRole, error) {
				return rolePtr(model.RoleViewer), nil
			},
		})

		authCtx := auth.OptionalTeamContext(ctx, session.ID)
		require.NotNil(t, authCtx)
		assert.Equal(t, model.RoleViewer, authCtx.Role)
	})

	t.Run("degrades to nil on any miss", func(t *testing.T) {
		repo := newFakeSessionRepo()
		sessions := NewSessionService(repo, config.DefaultSessionPolicy())
		auth := NewAuthorizer(sessions, &mockMembershipRepo{})

		assert.Nil(t, auth.OptionalTeamContext(ctx, ""))
		assert.Nil(t, auth.OptionalTeamContext(ctx, "nope"))

		// Valid session but no team binding.
		session, err := sessions.Create(ctx, "u_1", nil, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, auth.OptionalTeamContext(ctx, session.ID))
	})
}
