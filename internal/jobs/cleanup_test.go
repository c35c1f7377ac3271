package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teamgrid/server-go/internal/config"
	"github.com/teamgrid/server-go/internal/model"
	"github.com/teamgrid/server-go/internal/service"
)

type mockSessionRepo struct {
	deleteExpiredCalls atomic.Int64
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) UpdateLastAccessed(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (m *mockSessionRepo) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (m *mockSessionRepo) UpdateTeam(ctx context.Context, id string, teamID string) (bool, error) {
	return false, nil
}

func (m *mockSessionRepo) UpdateCSRFToken(ctx context.Context, id string, token *string) error {
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string, exceptID *string) (int64, error) {
	return 0, nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	m.deleteExpiredCalls.Add(1)
	return 2, nil
}

type mockAttemptRepo struct {
	deleteOlderThanCalls atomic.Int64
	lastCutoff           atomic.Value
}

func (m *mockAttemptRepo) Record(ctx context.Context, params model.RecordLoginAttemptParams) error {
	return nil
}

func (m *mockAttemptRepo) CountFailedSince(ctx context.Context, email string, since time.Time) (int, error) {
	return 0, nil
}

func (m *mockAttemptRepo) LastFailedAt(ctx context.Context, email string) (*time.Time, error) {
	return nil, nil
}

func (m *mockAttemptRepo) ClearFailed(ctx context.Context, email string) error {
	return nil
}

func (m *mockAttemptRepo) ListRecent(ctx context.Context, email string, limit int) ([]model.LoginAttempt, error) {
	return nil, nil
}

func (m *mockAttemptRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.deleteOlderThanCalls.Add(1)
	m.lastCutoff.Store(cutoff)
	return 1, nil
}

func TestCleanupJob(t *testing.T) {
	sessionRepo := &mockSessionRepo{}
	attemptRepo := &mockAttemptRepo{}

	sessions := service.NewSessionService(sessionRepo, config.DefaultSessionPolicy())
	limiter := service.NewLoginRateLimiter(attemptRepo, config.DefaultLoginRateLimitPolicy())

	job := NewCleanupJob(sessions, limiter, config.LoginAttemptRetention, time.Hour)
	job.Start()
	defer job.Stop()

	// The first sweep runs immediately on start.
	assert.Eventually(t, func() bool {
		return sessionRepo.deleteExpiredCalls.Load() >= 1 &&
			attemptRepo.deleteOlderThanCalls.Load() >= 1
	}, time.Second, 10*time.Millisecond)

	cutoff, ok := attemptRepo.lastCutoff.Load().(time.Time)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(-config.LoginAttemptRetention), cutoff, time.Minute)
}
