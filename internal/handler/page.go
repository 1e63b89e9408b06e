package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/auth"
	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/service"
)

// PageHandler renders the HTML pages. Every page is a base.html shell with
// a per-page content block; templates are parsed once at startup.
type PageHandler struct {
	templates map[string]*template.Template
	forms     *service.FormService
	logger    *slog.Logger
}

// pages lists the content templates. Each is parsed together with base.html
// so {{template "content" .}} resolves per page.
var pages = []string{"login", "my_forms", "form_editor", "submissions", "submit"}

// NewPageHandler parses the page templates from templateDir.
func NewPageHandler(templateDir string, forms *service.FormService, logger *slog.Logger) (*PageHandler, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, page+".html"),
		)
		if err != nil {
			return nil, err
		}
		templates[page] = tmpl
	}
	return &PageHandler{templates: templates, forms: forms, logger: logger}, nil
}

func (h *PageHandler) render(w http.ResponseWriter, page string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates[page].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleMyForms renders the dashboard with the forms visible to the caller.
//
// HTTP: GET /  and  GET /my-forms
func (h *PageHandler) HandleMyForms(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	forms, err := h.forms.VisibleForms(r.Context(), user)
	if err != nil {
		h.logger.Error("listing forms failed", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.render(w, "my_forms", map[string]any{
		"Title": "My Forms",
		"User":  user,
		"Forms": forms,
	})
}

// HandleFormEditor renders the question editor. A missing form sends the
// user back to the dashboard; a form they cannot edit is a hard 403.
//
// HTTP: GET /form/{name}
func (h *PageHandler) HandleFormEditor(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	name := r.PathValue("name")

	form, err := h.forms.GetForEdit(r.Context(), user, name)
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	h.render(w, "form_editor", map[string]any{
		"Title":         form.Name,
		"User":          user,
		"Form":          form,
		"QuestionTypes": model.QuestionTypes,
	})
}

// HandleSubmissionsPage renders the submissions view for collaborators.
//
// HTTP: GET /form/{name}/submissions
func (h *PageHandler) HandleSubmissionsPage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	form, err := h.forms.GetSubmissions(r.Context(), user, r.PathValue("name"))
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	h.render(w, "submissions", map[string]any{
		"Title": form.Name + " — Submissions",
		"User":  user,
		"Form":  form,
	})
}

// HandleSubmitPage renders the public submission page. No session; any form
// that is not exactly published is a 404, indistinguishable from a form
// that does not exist.
//
// HTTP: GET /submit/{name}
func (h *PageHandler) HandleSubmitPage(w http.ResponseWriter, r *http.Request) {
	form, err := h.forms.GetPublished(r.Context(), r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	h.render(w, "submit", map[string]any{
		"Title": form.Name,
		"Form":  form,
	})
}

// HandleLoginPage renders the login page, or sends an already-authenticated
// visitor home.
//
// HTTP: GET /login-page
func (h *PageHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, "login", map[string]any{"Title": "Sign in"})
}

// pageError is the HTML-side error mapping: a vanished form redirects to
// the dashboard instead of showing a JSON error, a permission failure is a
// plain 403.
func (h *PageHandler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		http.Redirect(w, r, "/my-forms", http.StatusFound)
	case errors.Is(err, apperror.ErrForbidden):
		http.Error(w, "You don't have access to this form", http.StatusForbidden)
	default:
		h.logger.Error("page render failed", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
