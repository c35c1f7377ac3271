package handler

import (
	"net/http"
	"time"

	"github.com/teamgrid/server-go/internal/httputil"
	"github.com/teamgrid/server-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// clientInfo extracts the caller's address and user agent for attempt
// and session records. RemoteAddr is already rewritten by the RealIP
// middleware.
func clientInfo(r *http.Request) (*string, *string) {
	var ip, ua *string
	if r.RemoteAddr != "" {
		addr := r.RemoteAddr
		ip = &addr
	}
	if agent := r.UserAgent(); agent != "" {
		ua = &agent
	}
	return ip, ua
}

func formatUser(u *model.User) map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"id":          u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"lastLoginAt": formatTime(u.LastLoginAt),
	}
}

func formatTeam(t *model.Team) map[string]any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"id":          t.ID,
		"name":        t.Name,
		"accountType": t.AccountType,
	}
}
