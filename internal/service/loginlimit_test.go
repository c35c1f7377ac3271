package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamgrid/server-go/internal/config"
)

// testClock is a manually advanced clock shared by the limiter and the
// attempt store.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newLimiterForTest() (*LoginRateLimiter, *fakeAttemptRepo, *testClock) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	repo := newFakeAttemptRepo(clock.now)
	limiter := NewLoginRateLimiter(repo, config.DefaultLoginRateLimitPolicy())
	limiter.now = clock.now
	return limiter, repo, clock
}

func failLogin(t *testing.T, ctx context.Context, l *LoginRateLimiter, email string) {
	t.Helper()
	reason := "Invalid credentials"
	require.NoError(t, l.Record(ctx, email, false, nil, nil, &reason))
}

func TestLoginRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows below the threshold", func(t *testing.T) {
		limiter, _, _ := newLimiterForTest()

		for i := 0; i < 4; i++ {
			failLogin(t, ctx, limiter, "a@example.com")
		}

		result, err := limiter.Check(ctx, "a@example.com")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 1, result.AttemptsRemaining)
	})

	t.Run("locks at the fifth failure", func(t *testing.T) {
		limiter, _, clock := newLimiterForTest()

		for i := 0; i < 5; i++ {
			failLogin(t, ctx, limiter, "a@example.com")
		}

		result, err := limiter.Check(ctx, "a@example.com")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.AttemptsRemaining)
		require.NotNil(t, result.LockedUntil)
		assert.Equal(t, clock.t.Add(15*time.Minute), *result.LockedUntil)
	})

	t.Run("lockout holds even for a later attempt", func(t *testing.T) {
		// The correct password cannot unlock the account: the limiter is
		// checked before credentials.
		limiter, _, clock := newLimiterForTest()

		for i := 0; i < 5; i++ {
			failLogin(t, ctx, limiter, "a@example.com")
		}

		clock.advance(10 * time.Minute)
		result, err := limiter.Check(ctx, "a@example.com")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
	})

	t.Run("lockout runs from the most recent failure", func(t *testing.T) {
		limiter, _, clock := newLimiterForTest()

		for i := 0; i < 5; i++ {
			failLogin(t, ctx, limiter, "a@example.com")
		}

		// A rejected attempt during lockout is still recorded and pushes
		// the lockout horizon out past the original last-failure + 15m.
		clock.advance(10 * time.Minute)
		failLogin(t, ctx, limiter, "a@example.com")

		clock.advance(4 * time.Minute)
		result, err := limiter.Check(ctx, "a@example.com")
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		require.NotNil(t, result.LockedUntil)
		assert.Equal(t, clock.t.Add(11*time.Minute), *result.LockedUntil)
	})

	t.Run("allows after the lockout elapses", func(t *testing.T) {
		limiter, _, clock := newLimiterForTest()

		for i := 0; i < 5; i++ {
			failLogin(t, ctx, limiter, "a@example.com")
		}

		clock.advance(16 * time.Minute)
		result, err := limiter.Check(ctx, "a@example.com")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("old failures age out of the window", func(t *testing.T) {
		limiter, _, clock := newLimiterForTest()

		for i := 0; i < 4; i++ {
			failLogin(t, ctx, limiter, "a@example.com")
		}

		clock.advance(16 * time.Minute)
		failLogin(t, ctx, limiter, "a@example.com")

		result, err := limiter.Check(ctx, "a@example.com")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 4, result.AttemptsRemaining)
	})

	t.Run("identities are isolated", func(t *testing.T) {
		limiter, _, _ := newLimiterForTest()

		for i := 0; i < 5; i++ {
			failLogin(t, ctx, limiter, "a@example.com")
		}

		result, err := limiter.Check(ctx, "b@example.com")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 5, result.AttemptsRemaining)
	})

	t.Run("clear resets the failure count but keeps successes", func(t *testing.T) {
		limiter, repo, _ := newLimiterForTest()

		for i := 0; i < 4; i++ {
			failLogin(t, ctx, limiter, "a@example.com")
		}
		require.NoError(t, limiter.Record(ctx, "a@example.com", true, nil, nil, nil))
		require.NoError(t, limiter.Clear(ctx, "a@example.com"))

		result, err := limiter.Check(ctx, "a@example.com")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 5, result.AttemptsRemaining)

		// The successful row survives for history.
		assert.Equal(t, 1, repo.size())
	})

	t.Run("lockout minutes reflects policy", func(t *testing.T) {
		limiter, _, _ := newLimiterForTest()
		assert.Equal(t, 15, limiter.LockoutMinutes())
	})
}

func TestPruneOlderThan(t *testing.T) {
	ctx := context.Background()
	limiter, repo, clock := newLimiterForTest()

	failLogin(t, ctx, limiter, "a@example.com")
	clock.advance(31 * 24 * time.Hour)
	failLogin(t, ctx, limiter, "a@example.com")

	count, err := limiter.PruneOlderThan(ctx, config.LoginAttemptRetention)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, repo.size())
}
