package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teamgrid/server-go/internal/config"
	"github.com/teamgrid/server-go/internal/model"
	"github.com/teamgrid/server-go/internal/repository"
)

// RateLimitResult is the outcome of a lockout check for one identity.
type RateLimitResult struct {
	Allowed           bool
	AttemptsRemaining int
	LockedUntil       *time.Time
}

// LoginRateLimiter derives lockout state from the attempt log. It keeps
// no in-process state, so it is correct across multiple instances
// sharing one store. It tolerates the benign race where two concurrent
// failures both pass the check; the count converges and lockout still
// triggers on the next attempt.
type LoginRateLimiter struct {
	attempts repository.AttemptLogRepository
	policy   config.LoginRateLimitPolicy
	now      func() time.Time
}

func NewLoginRateLimiter(attempts repository.AttemptLogRepository, policy config.LoginRateLimitPolicy) *LoginRateLimiter {
	return &LoginRateLimiter{
		attempts: attempts,
		policy:   policy,
		now:      time.Now,
	}
}

// Check counts failed attempts for the email within the trailing window.
// At or past the threshold, the lockout runs from the most recent failed
// attempt, so continued failures keep extending it. Once the lockout has
// elapsed the check allows again; stale failure rows age out of the
// window on their own.
func (l *LoginRateLimiter) Check(ctx context.Context, email string) (RateLimitResult, error) {
	now := l.now()
	windowStart := now.Add(-l.policy.Window)

	failed, err := l.attempts.CountFailedSince(ctx, email, windowStart)
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("count failed attempts: %w", err)
	}

	remaining := l.policy.MaxAttempts - failed
	if remaining < 0 {
		remaining = 0
	}

	if failed >= l.policy.MaxAttempts {
		lastFailed, err := l.attempts.LastFailedAt(ctx, email)
		if err != nil {
			return RateLimitResult{}, fmt.Errorf("find last failed attempt: %w", err)
		}
		if lastFailed != nil {
			lockedUntil := lastFailed.Add(l.policy.LockoutDuration)
			if now.Before(lockedUntil) {
				return RateLimitResult{Allowed: false, AttemptsRemaining: 0, LockedUntil: &lockedUntil}, nil
			}
		}
	}

	return RateLimitResult{Allowed: true, AttemptsRemaining: remaining}, nil
}

// Record appends one immutable attempt row. It is called for every
// outcome, including attempts the limiter itself rejected.
func (l *LoginRateLimiter) Record(ctx context.Context, email string, success bool, ip, userAgent, failureReason *string) error {
	return l.attempts.Record(ctx, model.RecordLoginAttemptParams{
		Email:         email,
		IPAddress:     ip,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: failureReason,
	})
}

// Clear removes failed rows for the identity after a verified successful
// login. Successful rows stay for history display.
func (l *LoginRateLimiter) Clear(ctx context.Context, email string) error {
	return l.attempts.ClearFailed(ctx, email)
}

// LockoutMinutes reports the configured lockout duration for client
// messaging.
func (l *LoginRateLimiter) LockoutMinutes() int {
	return int(l.policy.LockoutDuration.Minutes())
}

// PruneOlderThan removes attempt rows past the retention cutoff.
func (l *LoginRateLimiter) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	count, err := l.attempts.DeleteOlderThan(ctx, l.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("pruned old login attempts")
	}
	return count, nil
}
