package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventLoginSuccess     EventType = "login_success"
	EventLoginFailure     EventType = "login_failure"
	EventAccountLocked    EventType = "account_locked"
	EventLogout           EventType = "logout"
	EventPasswordChange   EventType = "password_change"
	EventSessionExpired   EventType = "session_expired"
	EventCSRFFailure      EventType = "csrf_failure"
	EventRegistration     EventType = "registration"
	EventTeamSwitch       EventType = "team_switch"
	EventInvitationCreate EventType = "invitation_create"
	EventInvitationAccept EventType = "invitation_accept"
	EventInvitationRevoke EventType = "invitation_revoke"
	EventMemberRoleChange EventType = "member_role_change"
	EventMemberRemove     EventType = "member_remove"
	EventRateLimitExceed  EventType = "rate_limit_exceeded"
)

type Event struct {
	Type      EventType
	UserID    string
	Email     string
	TeamID    string
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

// Log emits a structured security audit event. Full internal detail is
// server-side only; nothing here is returned to clients.
func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.UserID != "" {
		logger = logger.With().Str("user_id", event.UserID).Logger()
	}
	if event.Email != "" {
		logger = logger.With().Str("email", event.Email).Logger()
	}
	if event.TeamID != "" {
		logger = logger.With().Str("team_id", event.TeamID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = clientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
