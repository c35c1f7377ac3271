package service

import (
	"context"

	apperrors "github.com/teamgrid/server-go/internal/errors"
	"github.com/teamgrid/server-go/internal/model"
	"github.com/teamgrid/server-go/internal/repository"
)

// AuthContext is the request-scoped identity and tenant binding.
type AuthContext struct {
	UserID string
	TeamID string
	Role   model.TeamRole
}

// Authorizer composes session validation with team membership lookups
// to produce request-scoped auth contexts.
type Authorizer struct {
	sessions    *SessionService
	memberships repository.MembershipRepository
}

func NewAuthorizer(sessions *SessionService, memberships repository.MembershipRepository) *Authorizer {
	return &Authorizer{sessions: sessions, memberships: memberships}
}

// RequireUser resolves a session id to its owning user, or fails with
// an authentication error.
func (a *Authorizer) RequireUser(ctx context.Context, sessionID string) (string, error) {
	return a.sessions.Validate(ctx, sessionID)
}

// RequireTeamContext resolves the full (user, team, role) binding. A
// session without a team falls back to the user's first team and that
// choice is persisted back onto the session. A user with no team at all
// gets a distinct error so clients can prompt "join a team" instead of
// "log in". A team id without a matching membership (stale or foreign)
// is forbidden.
func (a *Authorizer) RequireTeamContext(ctx context.Context, sessionID string) (*AuthContext, error) {
	session, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	teamID := session.TeamID
	if teamID == nil {
		first, err := a.memberships.FirstTeamForUser(ctx, session.UserID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if first != nil {
			if _, err := a.sessions.SwitchTeam(ctx, session.ID, *first); err != nil {
				return nil, apperrors.Database(err)
			}
			teamID = first
		}
	}

	if teamID == nil {
		return nil, apperrors.NoTeamContext()
	}

	role, err := a.memberships.Role(ctx, *teamID, session.UserID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if role == nil {
		return nil, apperrors.Forbidden("Not a member of this team")
	}

	return &AuthContext{UserID: session.UserID, TeamID: *teamID, Role: *role}, nil
}

// RequireAdmin gates an already-resolved context on the admin role.
func (a *Authorizer) RequireAdmin(authCtx *AuthContext) error {
	if authCtx.Role != model.RoleAdmin {
		return apperrors.Forbidden("Admin role required")
	}
	return nil
}

// OptionalTeamContext is like RequireTeamContext but returns nil rather
// than an error when there is no valid session, no team or no
// membership. Read endpoints use it to degrade to unscoped results.
func (a *Authorizer) OptionalTeamContext(ctx context.Context, sessionID string) *AuthContext {
	if sessionID == "" {
		return nil
	}

	session, err := a.sessions.Get(ctx, sessionID)
	if err != nil || session.TeamID == nil {
		return nil
	}

	role, err := a.memberships.Role(ctx, *session.TeamID, session.UserID)
	if err != nil || role == nil {
		return nil
	}

	return &AuthContext{UserID: session.UserID, TeamID: *session.TeamID, Role: *role}
}
