package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/teamgrid/server-go/internal/repository"
	"github.com/teamgrid/server-go/internal/util"
)

// CSRFManager issues and verifies the per-session anti-forgery token.
// The token lives on the owning session row and is rotated at login,
// registration, invitation acceptance and password change.
type CSRFManager struct {
	sessions repository.SessionRepository
}

func NewCSRFManager(sessions repository.SessionRepository) *CSRFManager {
	return &CSRFManager{sessions: sessions}
}

// Issue generates a fresh token, independent of the session id, and
// stores it on the session. Any previously issued token stops verifying.
func (m *CSRFManager) Issue(ctx context.Context, sessionID string) (string, error) {
	token, err := util.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	if err := m.sessions.UpdateCSRFToken(ctx, sessionID, &token); err != nil {
		return "", fmt.Errorf("store csrf token: %w", err)
	}
	return token, nil
}

func (m *CSRFManager) Get(ctx context.Context, sessionID string) (*string, error) {
	session, err := m.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return session.CSRFToken, nil
}

func (m *CSRFManager) Clear(ctx context.Context, sessionID string) error {
	return m.sessions.UpdateCSRFToken(ctx, sessionID, nil)
}

// Verify compares the supplied token against the stored one in constant
// time. No token stored means false, never an error.
func (m *CSRFManager) Verify(ctx context.Context, sessionID, suppliedToken string) bool {
	stored, err := m.Get(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("csrf token lookup failed")
		return false
	}
	if stored == nil || *stored == "" {
		return false
	}
	return util.ConstantTimeEqual(*stored, suppliedToken)
}
