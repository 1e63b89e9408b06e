package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/auth"
	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/service"
)

// FormHandler exposes the form lifecycle over JSON: create, edit, publish,
// hide, delete, plus the public submission endpoint and the submission
// views for collaborators.
type FormHandler struct {
	forms  *service.FormService
	logger *slog.Logger
}

// NewFormHandler creates a FormHandler.
func NewFormHandler(forms *service.FormService, logger *slog.Logger) *FormHandler {
	return &FormHandler{forms: forms, logger: logger}
}

// messageResponse is the common "{message: ...}" success body.
type messageResponse struct {
	Message string `json:"message"`
}

// formSummary is the list-view shape: everything the dashboard renders,
// with counts instead of the full question and submission payloads.
type formSummary struct {
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	CreatedBy       string    `json:"created_by"`
	CreatedByName   string    `json:"created_by_name"`
	QuestionCount   int       `json:"question_count"`
	SubmissionCount int       `json:"submission_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func summarize(f *model.Form) formSummary {
	return formSummary{
		Name:            f.Name,
		Status:          f.Status,
		CreatedBy:       f.CreatedBy,
		CreatedByName:   f.CreatedByName,
		QuestionCount:   len(f.Questions),
		SubmissionCount: len(f.Submissions),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// HandleCreate creates a draft form owned by the caller.
//
// HTTP: POST /create-form
// BODY: {"name": "my form"}
//
// A taken name comes back as 400, not 409 — the create dialog treats it
// like any other validation problem on the name field.
func (h *FormHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	form, err := h.forms.Create(r.Context(), user, req.Name)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "A form with this name already exists",
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message  string `json:"message"`
		Redirect string `json:"redirect"`
	}{
		Message:  "Form created successfully!",
		Redirect: "/form/" + form.Name,
	})
}

// HandleMyForms lists the forms visible to the caller: every form for a
// site admin, otherwise the forms the caller holds any role on.
//
// HTTP: GET /api/my-forms
func (h *FormHandler) HandleMyForms(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	forms, err := h.forms.VisibleForms(r.Context(), user)
	if err != nil {
		h.logger.Error("listing forms failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	summaries := make([]formSummary, 0, len(forms))
	for i := range forms {
		summaries = append(summaries, summarize(&forms[i]))
	}

	writeJSON(w, http.StatusOK, struct {
		Forms []formSummary `json:"forms"`
	}{Forms: summaries})
}

// HandleSave replaces the form's question list wholesale.
//
// HTTP: POST /api/form/{name}/save
// BODY: {"questions": [...]}
func (h *FormHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	name := r.PathValue("name")

	var req struct {
		Questions []model.Question `json:"questions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.forms.SaveQuestions(r.Context(), user, name, req.Questions); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Form saved successfully"})
}

// HandleAddQuestion appends a default question and returns it so the editor
// can render it without a reload.
//
// HTTP: POST /api/form/{name}/question
func (h *FormHandler) HandleAddQuestion(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	name := r.PathValue("name")

	question, err := h.forms.AddQuestion(r.Context(), user, name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Question *model.Question `json:"question"`
	}{Question: question})
}

// HandlePublish makes the form publicly reachable on its submit URL.
//
// HTTP: POST /api/form/{name}/publish
func (h *FormHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	if err := h.forms.Publish(r.Context(), user, r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Form published successfully!"})
}

// HandleHide takes the form back to draft. In-flight respondents lose the
// page on their next request; already-stored submissions stay.
//
// HTTP: POST /api/form/{name}/hide
func (h *FormHandler) HandleHide(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	if err := h.forms.Hide(r.Context(), user, r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Form hidden successfully!"})
}

// HandleSubmit stores a public submission. No session required; the only
// gate is the form being published. Responses are stored verbatim.
//
// HTTP: POST /api/form/{name}/submit
// BODY: {"responses": {"q_1": "...", ...}}
func (h *FormHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req struct {
		Responses map[string]any `json:"responses"`
	}
	// An empty body counts as an empty submission, not a client error.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	submissionID, err := h.forms.Submit(r.Context(), name, req.Responses)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			h.logger.Error("storing submission failed",
				slog.String("form", name),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message      string `json:"message"`
		SubmissionID string `json:"submission_id"`
	}{
		Message:      "Form submitted successfully!",
		SubmissionID: submissionID,
	})
}

// HandleSubmissions returns the form's submissions for collaborators with
// view access.
//
// HTTP: GET /api/form/{name}/submissions
func (h *FormHandler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	form, err := h.forms.GetSubmissions(r.Context(), user, r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Form        string             `json:"form"`
		Questions   []model.Question   `json:"questions"`
		Submissions []model.Submission `json:"submissions"`
	}{
		Form:        form.Name,
		Questions:   form.Questions,
		Submissions: form.Submissions,
	})
}

// HandleDeleteSubmission removes one submission.
//
// HTTP: DELETE /api/form/{name}/submission/{id}/delete
func (h *FormHandler) HandleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	err := h.forms.DeleteSubmission(r.Context(), user, r.PathValue("name"), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Submission deleted successfully"})
}

// HandleDelete removes the form with all its submissions and grants.
//
// HTTP: DELETE /api/form/{name}/delete
func (h *FormHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	if err := h.forms.Delete(r.Context(), user, r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Form deleted successfully"})
}
