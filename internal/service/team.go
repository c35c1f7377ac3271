package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teamgrid/server-go/internal/audit"
	"github.com/teamgrid/server-go/internal/database"
	apperrors "github.com/teamgrid/server-go/internal/errors"
	"github.com/teamgrid/server-go/internal/model"
	"github.com/teamgrid/server-go/internal/repository"
	"github.com/teamgrid/server-go/internal/util"
)

const invitationExpiry = 7 * 24 * time.Hour

type RegisterInput struct {
	TeamName    string
	AccountType string
	AdminName   string
	AdminEmail  string
	Password    string
	IPAddress   *string
	UserAgent   *string
}

type AcceptInvitationInput struct {
	Token     string
	Name      string
	Password  string
	IPAddress *string
	UserAgent *string
}

// TeamService owns team membership, invitations and registration. The
// last-admin invariant is enforced here, before any role change or
// removal.
type TeamService struct {
	db          *database.DB
	users       repository.UserRepository
	teams       repository.TeamRepository
	memberships repository.MembershipRepository
	invitations repository.InvitationRepository
	policy      *PasswordPolicy
	sessions    *SessionService
	csrf        *CSRFManager
}

func NewTeamService(
	db *database.DB,
	users repository.UserRepository,
	teams repository.TeamRepository,
	memberships repository.MembershipRepository,
	invitations repository.InvitationRepository,
	policy *PasswordPolicy,
	sessions *SessionService,
	csrf *CSRFManager,
) *TeamService {
	return &TeamService{
		db:          db,
		users:       users,
		teams:       teams,
		memberships: memberships,
		invitations: invitations,
		policy:      policy,
		sessions:    sessions,
		csrf:        csrf,
	}
}

func newID(prefix string) (string, error) {
	token, err := util.GenerateToken()
	if err != nil {
		return "", err
	}
	return prefix + "_" + token[:8], nil
}

// Register creates a team and its first admin in one transaction, then
// opens a session bound to the new team.
func (s *TeamService) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	existing, err := s.users.FindByEmail(ctx, input.AdminEmail)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("Email")
	}

	if ok, reason := s.policy.ValidateStrength(input.Password); !ok {
		return nil, apperrors.WeakPassword(reason)
	}

	hash, err := s.policy.Hash(input.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password").WithCause(err)
	}

	userID, err := newID("u")
	if err != nil {
		return nil, apperrors.Internal("Failed to generate id").WithCause(err)
	}
	teamID, err := newID("team")
	if err != nil {
		return nil, apperrors.Internal("Failed to generate id").WithCause(err)
	}
	membershipID, err := newID("tm")
	if err != nil {
		return nil, apperrors.Internal("Failed to generate id").WithCause(err)
	}

	var user *model.User
	var team *model.Team
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err = s.users.WithTx(tx).Create(ctx, userID, model.CreateUserParams{
			Name:         input.AdminName,
			Email:        input.AdminEmail,
			Role:         string(model.RoleAdmin),
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		team, err = s.teams.WithTx(tx).Create(ctx, teamID, input.TeamName, input.AccountType, &userID)
		if err != nil {
			return fmt.Errorf("create team: %w", err)
		}

		if _, err := s.memberships.WithTx(tx).Insert(ctx, membershipID, teamID, userID, model.RoleAdmin); err != nil {
			return fmt.Errorf("create membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	session, err := s.sessions.Create(ctx, user.ID, &team.ID, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	csrfToken, err := s.csrf.Issue(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventRegistration,
		UserID: user.ID,
		TeamID: team.ID,
		IP:     strOrEmpty(input.IPAddress),
	})

	return &LoginResult{
		Session:   session,
		CSRFToken: csrfToken,
		User:      user,
		Role:      model.RoleAdmin,
		Team:      team,
		Teams:     []model.Team{*team},
	}, nil
}

// SwitchTeam rebinds a session to another team after confirming the
// user's membership in it.
func (s *TeamService) SwitchTeam(ctx context.Context, sessionID, teamID string) (*model.Team, error) {
	userID, err := s.sessions.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	role, err := s.memberships.Role(ctx, teamID, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if role == nil {
		return nil, apperrors.Forbidden("Not a member of this team")
	}

	ok, err := s.sessions.SwitchTeam(ctx, sessionID, teamID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if !ok {
		return nil, apperrors.SessionExpired()
	}

	team, err := s.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if team == nil {
		return nil, apperrors.NotFound("Team")
	}

	audit.Log(ctx, audit.Event{Type: audit.EventTeamSwitch, UserID: userID, TeamID: teamID})
	return team, nil
}

func (s *TeamService) ListTeams(ctx context.Context, sessionID string) ([]model.Team, error) {
	userID, err := s.sessions.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return teams, nil
}

func (s *TeamService) ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	members, err := s.memberships.ListMembers(ctx, teamID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return members, nil
}

// UpdateMemberRole changes a member's role. Demoting the last admin is
// a conflict: a team must retain at least one admin.
func (s *TeamService) UpdateMemberRole(ctx context.Context, teamID, userID string, role model.TeamRole) error {
	if !role.Valid() {
		return apperrors.InvalidInput("role", "must be admin, member or viewer")
	}

	current, err := s.memberships.Role(ctx, teamID, userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if current == nil {
		return apperrors.NotFound("Member")
	}

	if *current == model.RoleAdmin && role != model.RoleAdmin {
		admins, err := s.memberships.CountAdmins(ctx, teamID)
		if err != nil {
			return apperrors.Database(err)
		}
		if admins <= 1 {
			return apperrors.LastAdmin()
		}
	}

	ok, err := s.memberships.UpdateRole(ctx, teamID, userID, role)
	if err != nil {
		return apperrors.Database(err)
	}
	if !ok {
		return apperrors.NotFound("Member")
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventMemberRoleChange,
		UserID:  userID,
		TeamID:  teamID,
		Details: map[string]interface{}{"role": string(role)},
	})
	return nil
}

// RemoveMember deletes a membership with the same last-admin guard.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string) error {
	current, err := s.memberships.Role(ctx, teamID, userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if current == nil {
		return apperrors.NotFound("Member")
	}

	if *current == model.RoleAdmin {
		admins, err := s.memberships.CountAdmins(ctx, teamID)
		if err != nil {
			return apperrors.Database(err)
		}
		if admins <= 1 {
			return apperrors.LastAdmin()
		}
	}

	ok, err := s.memberships.Delete(ctx, teamID, userID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !ok {
		return apperrors.NotFound("Member")
	}

	audit.Log(ctx, audit.Event{Type: audit.EventMemberRemove, UserID: userID, TeamID: teamID})
	return nil
}

// CreateInvitation issues an admin-created invitation with a fresh
// token and a fixed expiry.
func (s *TeamService) CreateInvitation(ctx context.Context, teamID, email string, role model.TeamRole, invitedBy string) (*model.Invitation, error) {
	if !role.Valid() {
		return nil, apperrors.InvalidInput("role", "must be admin, member or viewer")
	}

	existing, err := s.invitations.FindPendingByEmail(ctx, teamID, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("Invitation for this email")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate token").WithCause(err)
	}
	id, err := newID("inv")
	if err != nil {
		return nil, apperrors.Internal("Failed to generate id").WithCause(err)
	}

	inv, err := s.invitations.Create(ctx, id, model.CreateInvitationParams{
		TeamID:          teamID,
		Email:           email,
		Role:            role,
		InvitedByUserID: invitedBy,
		Token:           token,
		ExpiresAt:       time.Now().Add(invitationExpiry),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventInvitationCreate, TeamID: teamID, Email: email})
	return inv, nil
}

func (s *TeamService) ListInvitations(ctx context.Context, teamID string) ([]model.Invitation, error) {
	invitations, err := s.invitations.ListPending(ctx, teamID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return invitations, nil
}

func (s *TeamService) RevokeInvitation(ctx context.Context, invitationID, teamID string) error {
	ok, err := s.invitations.Delete(ctx, invitationID, teamID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !ok {
		return apperrors.NotFound("Invitation")
	}
	audit.Log(ctx, audit.Event{Type: audit.EventInvitationRevoke, TeamID: teamID})
	return nil
}

// InvitationDetails returns the invitation plus its team for the accept
// page, rejecting expired tokens.
func (s *TeamService) InvitationDetails(ctx context.Context, token string) (*model.Invitation, *model.Team, error) {
	inv, err := s.invitations.FindByToken(ctx, token)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if inv == nil {
		return nil, nil, apperrors.NotFound("Invitation")
	}
	if time.Now().After(inv.ExpiresAt) {
		return nil, nil, apperrors.InvitationExpired()
	}

	team, err := s.teams.FindByID(ctx, inv.TeamID)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if team == nil {
		return nil, nil, apperrors.NotFound("Team")
	}
	return inv, team, nil
}

// AcceptInvitation joins an existing user to the team, or creates a new
// user with a strength-checked password, then opens a session bound to
// the team.
func (s *TeamService) AcceptInvitation(ctx context.Context, input AcceptInvitationInput) (*LoginResult, error) {
	inv, team, err := s.InvitationDetails(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, inv.Email)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if user != nil {
		existing, err := s.memberships.Find(ctx, inv.TeamID, user.ID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if existing != nil {
			return nil, apperrors.Conflict("Already a member of this team")
		}

		membershipID, err := newID("tm")
		if err != nil {
			return nil, apperrors.Internal("Failed to generate id").WithCause(err)
		}
		if _, err := s.memberships.Insert(ctx, membershipID, inv.TeamID, user.ID, inv.Role); err != nil {
			return nil, apperrors.Database(err)
		}
		if err := s.invitations.MarkAccepted(ctx, inv.ID); err != nil {
			return nil, apperrors.Database(err)
		}
	} else {
		if ok, reason := s.policy.ValidateStrength(input.Password); !ok {
			return nil, apperrors.WeakPassword(reason)
		}

		hash, err := s.policy.Hash(input.Password)
		if err != nil {
			return nil, apperrors.Internal("Failed to hash password").WithCause(err)
		}

		userID, err := newID("u")
		if err != nil {
			return nil, apperrors.Internal("Failed to generate id").WithCause(err)
		}
		membershipID, err := newID("tm")
		if err != nil {
			return nil, apperrors.Internal("Failed to generate id").WithCause(err)
		}

		err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
			user, err = s.users.WithTx(tx).Create(ctx, userID, model.CreateUserParams{
				Name:         input.Name,
				Email:        inv.Email,
				Role:         string(inv.Role),
				PasswordHash: hash,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			if _, err := s.memberships.WithTx(tx).Insert(ctx, membershipID, inv.TeamID, userID, inv.Role); err != nil {
				return fmt.Errorf("create membership: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, apperrors.Database(err)
		}

		if err := s.invitations.MarkAccepted(ctx, inv.ID); err != nil {
			return nil, apperrors.Database(err)
		}
	}

	session, err := s.sessions.Create(ctx, user.ID, &team.ID, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	csrfToken, err := s.csrf.Issue(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventInvitationAccept,
		UserID: user.ID,
		TeamID: team.ID,
	})

	return &LoginResult{
		Session:   session,
		CSRFToken: csrfToken,
		User:      user,
		Role:      inv.Role,
		Team:      team,
		Teams:     []model.Team{*team},
	}, nil
}
