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

type InvitationHandler struct {
	teamService *service.TeamService
}

func NewInvitationHandler(teamService *service.TeamService) *InvitationHandler {
	return &InvitationHandler{teamService: teamService}
}

// POST /api/invitations
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, apperrors.ValidationError("Email is required"))
		return
	}
	if req.Role == "" {
		req.Role = string(model.RoleMember)
	}

	inv, err := h.teamService.CreateInvitation(r.Context(), authCtx.TeamID, req.Email, model.TeamRole(req.Role), authCtx.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"invitation": formatInvitation(inv),
		// The token is returned once, at creation, for the invite link.
		"token": inv.Token,
	})
}

// GET /api/invitations
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	invitations, err := h.teamService.ListInvitations(r.Context(), authCtx.TeamID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(invitations))
	for i := range invitations {
		out = append(out, formatInvitation(&invitations[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": out})
}

// DELETE /api/invitations/{invitationID}
func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	if err := h.teamService.RevokeInvitation(r.Context(), chi.URLParam(r, "invitationID"), authCtx.TeamID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /api/invitations/{token}/details
func (h *InvitationHandler) Details(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, apperrors.ValidationError("Token is required"))
		return
	}

	inv, team, err := h.teamService.InvitationDetails(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"email":     inv.Email,
		"role":      string(inv.Role),
		"team":      formatTeam(team),
		"expiresAt": inv.ExpiresAt,
	})
}

// POST /api/invitations/{token}/accept
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, apperrors.ValidationError("Token is required"))
		return
	}

	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	ip, ua := clientInfo(r)
	result, err := h.teamService.AcceptInvitation(r.Context(), service.AcceptInvitationInput{
		Token:     token,
		Name:      req.Name,
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

func formatInvitation(inv *model.Invitation) map[string]any {
	return map[string]any{
		"id":        inv.ID,
		"email":     inv.Email,
		"role":      string(inv.Role),
		"expiresAt": inv.ExpiresAt,
		"createdAt": inv.CreatedAt,
	}
}
