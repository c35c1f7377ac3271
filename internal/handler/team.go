package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/teamgrid/server-go/internal/errors"
	"github.com/teamgrid/server-go/internal/middleware"
	"github.com/teamgrid/server-go/internal/model"
	"github.com/teamgrid/server-go/internal/service"
)

type TeamHandler struct {
	teamService *service.TeamService
}

func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// Routes for session-scoped team operations. Member management routes
// are registered separately under MemberRoutes so the caller can stack
// team-context and admin middleware on them.
func (h *TeamHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListTeams)
	r.Post("/switch", h.Switch)

	return r
}

func (h *TeamHandler) MemberRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMembers)
	r.Put("/{userID}/role", h.UpdateMemberRole)
	r.Delete("/{userID}", h.RemoveMember)

	return r
}

// GET /api/teams
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.ListTeams(r.Context(), middleware.SessionID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(teams))
	for i := range teams {
		out = append(out, formatTeam(&teams[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": out})
}

// POST /api/teams/switch
func (h *TeamHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID string `json:"teamId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TeamID == "" {
		writeError(w, apperrors.ValidationError("Team id is required"))
		return
	}

	team, err := h.teamService.SwitchTeam(r.Context(), middleware.SessionID(r), req.TeamID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"team": formatTeam(team)})
}

// GET /api/teams/current/members
func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	members, err := h.teamService.ListMembers(r.Context(), authCtx.TeamID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(members))
	for _, m := range members {
		out = append(out, map[string]any{
			"id":       m.ID,
			"name":     m.Name,
			"email":    m.Email,
			"role":     string(m.Role),
			"joinedAt": m.JoinedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": out})
}

// PUT /api/teams/current/members/{userID}/role
func (h *TeamHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	userID := chi.URLParam(r, "userID")

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		writeError(w, apperrors.ValidationError("Role is required"))
		return
	}

	if err := h.teamService.UpdateMemberRole(r.Context(), authCtx.TeamID, userID, model.TeamRole(req.Role)); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DELETE /api/teams/current/members/{userID}
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	if err := h.teamService.RemoveMember(r.Context(), authCtx.TeamID, chi.URLParam(r, "userID")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
