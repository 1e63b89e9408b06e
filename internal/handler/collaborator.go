package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/auth"
	"github.com/oryahud/aForm/internal/service"
)

// CollaboratorHandler exposes the per-form collaborator management
// endpoints: invite, list, remove.
type CollaboratorHandler struct {
	collaborators *service.CollaboratorService
	logger        *slog.Logger
}

// NewCollaboratorHandler creates a CollaboratorHandler.
func NewCollaboratorHandler(collaborators *service.CollaboratorService, logger *slog.Logger) *CollaboratorHandler {
	return &CollaboratorHandler{collaborators: collaborators, logger: logger}
}

// HandleInvite grants an existing user a role on the form. The response
// message carries the email-delivery outcome as a suffix — delivery is
// best-effort and never fails the grant.
//
// HTTP: POST /api/form/{name}/invite
// BODY: {"email": "bob@example.com", "role": "editor"}
func (h *CollaboratorHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	name := r.PathValue("name")

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.collaborators.Invite(r.Context(), user, name, req.Email, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Collaborator added successfully"
	if result.EmailSent {
		message += " and invitation email sent"
	} else {
		message += " but invitation email failed to send"
	}

	writeJSON(w, http.StatusOK, struct {
		Message      string               `json:"message"`
		Collaborator service.Collaborator `json:"collaborator"`
	}{
		Message:      message,
		Collaborator: result.Collaborator,
	})
}

// HandleList returns the form's collaborators and the creator's ID, so the
// frontend can suppress the remove button on the creator's row.
//
// HTTP: GET /api/form/{name}/collaborators
func (h *CollaboratorHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	collaborators, creatorID, err := h.collaborators.List(r.Context(), user, r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Collaborators []service.Collaborator `json:"collaborators"`
		Creator       string                 `json:"creator"`
	}{
		Collaborators: collaborators,
		Creator:       creatorID,
	})
}

// HandleRemove strips a collaborator of every role on the form.
//
// HTTP: DELETE /api/form/{name}/collaborators/{userId}
func (h *CollaboratorHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	err := h.collaborators.Remove(r.Context(), user, r.PathValue("name"), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Collaborator removed successfully"})
}
