package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/teamgrid/server-go/internal/errors"
	"github.com/teamgrid/server-go/internal/middleware"
	"github.com/teamgrid/server-go/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	teamService *service.TeamService
	csrfManager *service.CSRFManager
	loginLimit  func(http.Handler) http.Handler
}

func NewAuthHandler(
	authService *service.AuthService,
	teamService *service.TeamService,
	csrfManager *service.CSRFManager,
	loginLimit func(http.Handler) http.Handler,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		teamService: teamService,
		csrfManager: csrfManager,
		loginLimit:  loginLimit,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.loginLimit).Post("/login", h.Login)
	r.Post("/register", h.Register)
	r.Get("/session", h.Session)
	r.Post("/logout", h.Logout)
	r.Post("/change-password", h.ChangePassword)
	r.Get("/csrf-token", h.CSRFToken)

	return r
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, apperrors.ValidationError("Email and password are required"))
		return
	}

	ip, ua := clientInfo(r)
	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: ip,
		UserAgent: ua,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, formatLoginResult(result))
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamName    string `json:"teamName"`
		AccountType string `json:"accountType"`
		AdminName   string `json:"adminName"`
		AdminEmail  string `json:"adminEmail"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if req.TeamName == "" || req.AdminName == "" || req.AdminEmail == "" || req.Password == "" {
		writeError(w, apperrors.ValidationError("Team name, admin name, email and password are required"))
		return
	}
	if req.AccountType == "" {
		req.AccountType = "standard"
	}

	ip, ua := clientInfo(r)
	result, err := h.teamService.Register(r.Context(), service.RegisterInput{
		TeamName:    req.TeamName,
		AccountType: req.AccountType,
		AdminName:   req.AdminName,
		AdminEmail:  req.AdminEmail,
		Password:    req.Password,
		IPAddress:   ip,
		UserAgent:   ua,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, formatLoginResult(result))
}

// GET /api/auth/session
//
// Never errors: an absent, expired or malformed session is reported as
// authenticated=false with a 200.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	check := h.authService.CheckSession(r.Context(), middleware.SessionID(r))

	resp := map[string]any{"authenticated": check.Authenticated}
	if check.Authenticated {
		resp["user"] = formatUser(check.User)
		resp["team"] = formatTeam(check.Team)
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.SessionID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, apperrors.ValidationError("Current and new password are required"))
		return
	}

	csrfToken, err := h.authService.ChangePassword(r.Context(), middleware.SessionID(r), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"csrfToken": csrfToken,
	})
}

// GET /api/auth/csrf-token
//
// Returns the token currently bound to the session, issuing one if the
// session has none yet.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r)
	if sessionID == "" {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	token, err := h.csrfManager.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}
	if token == nil || *token == "" {
		issued, err := h.csrfManager.Issue(r.Context(), sessionID)
		if err != nil {
			writeError(w, apperrors.Database(err))
			return
		}
		token = &issued
	}

	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": *token})
}

func formatLoginResult(result *service.LoginResult) map[string]any {
	teams := make([]map[string]any, 0, len(result.Teams))
	for i := range result.Teams {
		teams = append(teams, formatTeam(&result.Teams[i]))
	}

	return map[string]any{
		"sessionId": result.Session.ID,
		"csrfToken": result.CSRFToken,
		"expiresAt": result.Session.ExpiresAt.Format(time.RFC3339),
		"user":      formatUser(result.User),
		"role":      string(result.Role),
		"team":      formatTeam(result.Team),
		"teams":     teams,
	}
}
