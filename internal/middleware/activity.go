package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/teamgrid/server-go/internal/service"
)

const activityUpdateTimeout = 5 * time.Second

// ActivityMiddleware records session activity for any request carrying
// a session id. The write runs in its own goroutine with a detached
// context so it can never block, delay or fail the request; it is the
// only path that moves last_activity_at, keeping "I was validated"
// separate from "I was active".
type ActivityMiddleware struct {
	sessions *service.SessionService
}

func NewActivityMiddleware(sessions *service.SessionService) *ActivityMiddleware {
	return &ActivityMiddleware{sessions: sessions}
}

func (m *ActivityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionID := SessionID(r); sessionID != "" {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), activityUpdateTimeout)
				defer cancel()
				m.sessions.TouchActivity(ctx, sessionID)
			}()
		}

		next.ServeHTTP(w, r)
	})
}
