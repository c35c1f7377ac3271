package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teamgrid/server-go/internal/audit"
	apperrors "github.com/teamgrid/server-go/internal/errors"
	"github.com/teamgrid/server-go/internal/model"
	"github.com/teamgrid/server-go/internal/repository"
)

const (
	reasonAccountLocked      = "Account locked due to too many failed attempts"
	reasonEmailNotFound      = "Email not found"
	reasonAccountDisabled    = "Account disabled"
	reasonInvalidCredentials = "Invalid credentials"
)

type LoginInput struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

type LoginResult struct {
	Session   *model.Session
	CSRFToken string
	User      *model.User
	Role      model.TeamRole
	Team      *model.Team
	Teams     []model.Team
}

type SessionCheck struct {
	Authenticated bool
	User          *model.User
	Team          *model.Team
}

// AuthService orchestrates login, logout, session checks and password
// changes across the rate limiter, password policy, session store and
// CSRF manager.
type AuthService struct {
	users    repository.UserRepository
	teams    repository.TeamRepository
	policy   *PasswordPolicy
	limiter  *LoginRateLimiter
	sessions *SessionService
	csrf     *CSRFManager
}

func NewAuthService(
	users repository.UserRepository,
	teams repository.TeamRepository,
	policy *PasswordPolicy,
	limiter *LoginRateLimiter,
	sessions *SessionService,
	csrf *CSRFManager,
) *AuthService {
	return &AuthService{
		users:    users,
		teams:    teams,
		policy:   policy,
		limiter:  limiter,
		sessions: sessions,
		csrf:     csrf,
	}
}

// Login gates on the rate limiter, verifies credentials and on success
// creates a session bound to the user's first team plus a fresh CSRF
// token. Unknown email and wrong password produce the same client-facing
// error; every attempt, including rejected ones, lands in the audit log.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	limit, err := s.limiter.Check(ctx, input.Email)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if !limit.Allowed {
		s.recordFailure(ctx, input, reasonAccountLocked)
		audit.Log(ctx, audit.Event{
			Type:  audit.EventAccountLocked,
			Email: input.Email,
			IP:    strOrEmpty(input.IPAddress),
		})
		appErr := apperrors.AccountLocked(s.limiter.LockoutMinutes())
		if limit.LockedUntil != nil {
			appErr = appErr.WithRetryAfter(time.Until(*limit.LockedUntil))
		}
		return nil, appErr
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		s.recordFailure(ctx, input, reasonEmailNotFound)
		return nil, apperrors.InvalidCredentials()
	}

	if !user.IsActive {
		s.recordFailure(ctx, input, reasonAccountDisabled)
		return nil, apperrors.AccountDisabled()
	}

	if !s.policy.Verify(input.Password, user.PasswordHash) {
		s.recordFailure(ctx, input, reasonInvalidCredentials)
		s.mirrorLockoutState(ctx, user, input.Email)
		return nil, apperrors.InvalidCredentials()
	}

	if err := s.limiter.Record(ctx, input.Email, true, input.IPAddress, input.UserAgent, nil); err != nil {
		log.Error().Err(err).Msg("failed to record successful login attempt")
	}
	if err := s.limiter.Clear(ctx, input.Email); err != nil {
		log.Error().Err(err).Msg("failed to clear login attempts")
	}
	if err := s.users.UpdateLockoutState(ctx, user.ID, 0, nil); err != nil {
		log.Error().Err(err).Msg("failed to reset lockout state")
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Error().Err(err).Msg("failed to update last login")
	}

	teams, err := s.teams.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	var teamID *string
	var currentTeam *model.Team
	role := model.TeamRole(user.Role)
	if len(teams) > 0 {
		currentTeam = &teams[0]
		teamID = &teams[0].ID
	}

	session, err := s.sessions.Create(ctx, user.ID, teamID, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	csrfToken, err := s.csrf.Issue(ctx, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventLoginSuccess,
		UserID: user.ID,
		Email:  input.Email,
		IP:     strOrEmpty(input.IPAddress),
	})

	return &LoginResult{
		Session:   session,
		CSRFToken: csrfToken,
		User:      user,
		Role:      role,
		Team:      currentTeam,
		Teams:     teams,
	}, nil
}

// Logout deletes the session. Deleting an already-gone session is fine.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperrors.Database(err)
	}
	audit.Log(ctx, audit.Event{Type: audit.EventLogout})
	return nil
}

// CheckSession reports whether a session is valid without ever raising:
// any failure is just "not authenticated".
func (s *AuthService) CheckSession(ctx context.Context, sessionID string) *SessionCheck {
	if sessionID == "" {
		return &SessionCheck{Authenticated: false}
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return &SessionCheck{Authenticated: false}
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil || user == nil {
		return &SessionCheck{Authenticated: false}
	}

	var team *model.Team
	if session.TeamID != nil {
		team, _ = s.teams.FindByID(ctx, *session.TeamID)
	}

	return &SessionCheck{Authenticated: true, User: user, Team: team}
}

// ChangePassword verifies the current password, enforces strength rules
// on the new one, requires it to differ, then invalidates every session
// for the user and rotates the CSRF token on the requesting session.
func (s *AuthService) ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) (string, error) {
	userID, err := s.sessions.Validate(ctx, sessionID)
	if err != nil {
		return "", err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if user == nil {
		return "", apperrors.NotFound("User")
	}

	if !s.policy.Verify(currentPassword, user.PasswordHash) {
		return "", apperrors.ValidationError("Current password is incorrect")
	}

	if ok, reason := s.policy.ValidateStrength(newPassword); !ok {
		return "", apperrors.WeakPassword(reason)
	}

	if s.policy.Verify(newPassword, user.PasswordHash) {
		return "", apperrors.ValidationError("New password must be different from current password")
	}

	newHash, err := s.policy.Hash(newPassword)
	if err != nil {
		return "", apperrors.Internal("Failed to hash password").WithCause(err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return "", apperrors.Database(err)
	}

	// Full invalidation: the requesting session dies with the rest. The
	// rotated token is returned so the client can re-authenticate and
	// fetch a fresh session knowingly.
	if err := s.sessions.InvalidateAll(ctx, userID, nil); err != nil {
		return "", apperrors.Database(err)
	}

	newToken, err := s.csrf.Issue(ctx, sessionID)
	if err != nil {
		return "", apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventPasswordChange, UserID: userID})

	return newToken, nil
}

func (s *AuthService) recordFailure(ctx context.Context, input LoginInput, reason string) {
	if err := s.limiter.Record(ctx, input.Email, false, input.IPAddress, input.UserAgent, &reason); err != nil {
		log.Error().Err(err).Msg("failed to record login attempt")
	}
	audit.Log(ctx, audit.Event{
		Type:    audit.EventLoginFailure,
		Email:   input.Email,
		IP:      strOrEmpty(input.IPAddress),
		Details: map[string]interface{}{"reason": reason},
	})
}

// mirrorLockoutState copies the log-derived failure count onto the user
// row. The attempt log remains authoritative; this is bookkeeping for
// profile display.
func (s *AuthService) mirrorLockoutState(ctx context.Context, user *model.User, email string) {
	result, err := s.limiter.Check(ctx, email)
	if err != nil {
		log.Debug().Err(err).Msg("failed to derive lockout state")
		return
	}
	failed := s.limiter.policy.MaxAttempts - result.AttemptsRemaining
	if err := s.users.UpdateLockoutState(ctx, user.ID, failed, result.LockedUntil); err != nil {
		log.Debug().Err(err).Msg("failed to mirror lockout state")
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
