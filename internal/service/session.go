package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teamgrid/server-go/internal/config"
	apperrors "github.com/teamgrid/server-go/internal/errors"
	"github.com/teamgrid/server-go/internal/model"
	"github.com/teamgrid/server-go/internal/repository"
	"github.com/teamgrid/server-go/internal/util"
)

// SessionService owns the session lifecycle. Expiry is lazy: a session
// failing any check is deleted at validation time, never by treating a
// stale row as valid.
type SessionService struct {
	sessions repository.SessionRepository
	policy   config.SessionPolicy
	now      func() time.Time
}

func NewSessionService(sessions repository.SessionRepository, policy config.SessionPolicy) *SessionService {
	return &SessionService{
		sessions: sessions,
		policy:   policy,
		now:      time.Now,
	}
}

// Create issues a fresh unguessable session id bound to the user and,
// when available, a team.
func (s *SessionService) Create(ctx context.Context, userID string, teamID *string, ip, userAgent *string) (*model.Session, error) {
	id, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	session, err := s.sessions.Create(ctx, model.CreateSessionParams{
		ID:        id,
		UserID:    userID,
		TeamID:    teamID,
		ExpiresAt: s.now().Add(s.policy.TTL),
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info().Str("userId", userID).Msg("session created")
	return session, nil
}

// Validate returns the owning user id if the session passes all three
// expiry checks, bumping last_accessed. A failing session is deleted
// before returning, so a second call reports not-found rather than the
// original reason. Store failures fail closed.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (string, error) {
	session, err := s.get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if err := s.sessions.UpdateLastAccessed(ctx, session.ID, s.now()); err != nil {
		return "", apperrors.SessionExpired().WithCause(err)
	}

	return session.UserID, nil
}

// Get returns the full validated session. Same expiry semantics as
// Validate.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.UpdateLastAccessed(ctx, session.ID, s.now()); err != nil {
		return nil, apperrors.SessionExpired().WithCause(err)
	}

	return session, nil
}

func (s *SessionService) get(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, apperrors.SessionExpired()
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.SessionExpired().WithCause(err)
	}
	if session == nil {
		return nil, apperrors.SessionExpired()
	}

	now := s.now()

	// Absolute expiration ceiling.
	if now.After(session.ExpiresAt) {
		return nil, s.expire(ctx, session.ID)
	}

	// Absolute timeout from creation, regardless of activity.
	if now.After(session.CreatedAt.Add(s.policy.AbsoluteTimeout)) {
		return nil, s.expire(ctx, session.ID)
	}

	// Idle timeout from the last tracked activity, when present.
	if session.LastActivityAt != nil && now.After(session.LastActivityAt.Add(s.policy.IdleTimeout)) {
		return nil, s.expire(ctx, session.ID)
	}

	return session, nil
}

func (s *SessionService) expire(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		log.Error().Err(err).Msg("failed to delete expired session")
	}
	return apperrors.SessionExpired()
}

// TouchActivity records activity on the session. It is best-effort:
// failures are logged and swallowed, and callers invoke it off the
// response path.
func (s *SessionService) TouchActivity(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.sessions.UpdateLastActivity(ctx, sessionID, s.now()); err != nil {
		log.Debug().Err(err).Msg("failed to update session activity")
	}
}

// Delete is idempotent: deleting an already-gone session is not an error.
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// InvalidateAll deletes every session for a user, optionally sparing one.
func (s *SessionService) InvalidateAll(ctx context.Context, userID string, exceptSessionID *string) error {
	count, err := s.sessions.DeleteByUserID(ctx, userID, exceptSessionID)
	if err != nil {
		return fmt.Errorf("invalidate sessions: %w", err)
	}
	log.Info().Str("userId", userID).Int64("count", count).Msg("sessions invalidated")
	return nil
}

// SwitchTeam rebinds the session's team context in place. It returns
// false only when the session does not exist.
func (s *SessionService) SwitchTeam(ctx context.Context, sessionID, teamID string) (bool, error) {
	return s.sessions.UpdateTeam(ctx, sessionID, teamID)
}

// GetTeamID is a pure read of the session's team binding.
func (s *SessionService) GetTeamID(ctx context.Context, sessionID string) (*string, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return session.TeamID, nil
}

// DeleteExpired reaps sessions past their absolute expiration.
func (s *SessionService) DeleteExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}
