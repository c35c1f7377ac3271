package middleware

import (
	"context"
	"net/http"

	apperrors "github.com/teamgrid/server-go/internal/errors"
	"github.com/teamgrid/server-go/internal/httputil"
	"github.com/teamgrid/server-go/internal/service"
)

const (
	// SessionHeader carries the opaque session id on every request.
	SessionHeader = "X-Session-ID"
)

type contextKey string

const (
	UserIDContextKey      contextKey = "userID"
	AuthContextContextKey contextKey = "authContext"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDContextKey).(string); ok {
		return userID
	}
	return ""
}

func GetAuthContext(ctx context.Context) *service.AuthContext {
	if authCtx, ok := ctx.Value(AuthContextContextKey).(*service.AuthContext); ok {
		return authCtx
	}
	return nil
}

func SessionID(r *http.Request) string {
	return r.Header.Get(SessionHeader)
}

// SessionMiddleware requires a valid session and puts the owning user
// id on the request context. Validation is a fresh read against the
// store on every request; a store failure denies access.
type SessionMiddleware struct {
	authorizer *service.Authorizer
}

func NewSessionMiddleware(authorizer *service.Authorizer) *SessionMiddleware {
	return &SessionMiddleware{authorizer: authorizer}
}

func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := SessionID(r)
		if sessionID == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
			return
		}

		userID, err := m.authorizer.RequireUser(r.Context(), sessionID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TeamContextMiddleware requires a full (user, team, role) binding.
type TeamContextMiddleware struct {
	authorizer *service.Authorizer
}

func NewTeamContextMiddleware(authorizer *service.Authorizer) *TeamContextMiddleware {
	return &TeamContextMiddleware{authorizer: authorizer}
}

func (m *TeamContextMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := m.authorizer.RequireTeamContext(r.Context(), SessionID(r))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, authCtx.UserID)
		ctx = context.WithValue(ctx, AuthContextContextKey, authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware gates on the admin role. It must run inside
// TeamContextMiddleware.
type AdminMiddleware struct {
	authorizer *service.Authorizer
}

func NewAdminMiddleware(authorizer *service.Authorizer) *AdminMiddleware {
	return &AdminMiddleware{authorizer: authorizer}
}

func (m *AdminMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r.Context())
		if authCtx == nil {
			httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
			return
		}
		if err := m.authorizer.RequireAdmin(authCtx); err != nil {
			httputil.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
