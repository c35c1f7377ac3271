package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teamgrid/server-go/internal/service"
)

// CleanupJob periodically removes expired sessions and prunes old login
// attempt records. Expiry is still enforced lazily on every read; this
// job only keeps the tables from growing without bound.
type CleanupJob struct {
	sessions  *service.SessionService
	limiter   *service.LoginRateLimiter
	retention time.Duration
	interval  time.Duration
	done      chan struct{}
}

func NewCleanupJob(
	sessions *service.SessionService,
	limiter *service.LoginRateLimiter,
	retention time.Duration,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		sessions:  sessions,
		limiter:   limiter,
		retention: retention,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "sessions", j.sessions.DeleteExpired)
	j.runCleanup(ctx, "login attempts", func(ctx context.Context) (int64, error) {
		return j.limiter.PruneOlderThan(ctx, j.retention)
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
