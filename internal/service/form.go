package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/authz"
	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/repository"
)

const maxFormNameLength = 100

// FormService handles the form lifecycle: creation, the editor operations,
// publishing, and the public submission flow. Every operation that takes a
// caller loads the form first and authorizes against its permission lists
// before touching anything.
type FormService struct {
	forms  repository.FormRepository
	logger *slog.Logger
}

// NewFormService creates a FormService.
func NewFormService(forms repository.FormRepository, logger *slog.Logger) *FormService {
	return &FormService{forms: forms, logger: logger}
}

// Create validates the name and stores a new draft form with the caller
// seeded as its admin. A duplicate name fails with ErrConflict and leaves
// the existing form untouched.
func (s *FormService) Create(ctx context.Context, caller *model.User, name string) (*model.Form, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "form name is required")
	}
	if len(name) > maxFormNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("form name must be %d characters or less", maxFormNameLength))
	}

	form := &model.Form{
		Name:          name,
		Status:        model.StatusDraft,
		CreatedBy:     caller.ID,
		CreatedByName: caller.Name,
		Questions:     []model.Question{},
	}
	if err := s.forms.Create(ctx, form); err != nil {
		return nil, err
	}

	s.logger.Info("form created",
		slog.String("form", form.Name),
		slog.String("createdBy", caller.ID),
	)
	return form, nil
}

// VisibleForms returns the forms the caller may see.
func (s *FormService) VisibleForms(ctx context.Context, caller *model.User) ([]model.Form, error) {
	return authz.VisibleForms(ctx, s.forms, caller)
}

// GetForEdit loads a form for the editor. ErrNotFound if absent,
// ErrForbidden if the caller lacks edit permission.
func (s *FormService) GetForEdit(ctx context.Context, caller *model.User, name string) (*model.Form, error) {
	return s.load(ctx, caller, name, authz.FormPermEdit)
}

// GetSubmissions loads a form for the submissions view. ErrForbidden if the
// caller lacks view_submissions permission.
func (s *FormService) GetSubmissions(ctx context.Context, caller *model.User, name string) (*model.Form, error) {
	return s.load(ctx, caller, name, authz.FormPermViewSubmissions)
}

// GetPublished loads a form for the public submission page. Any status
// other than exactly "published" — draft, hidden again, missing — reads as
// not found, so drafts are indistinguishable from absent forms to the
// public.
func (s *FormService) GetPublished(ctx context.Context, name string) (*model.Form, error) {
	form, err := s.forms.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !form.IsPublished() {
		return nil, apperror.NotFound("form", name)
	}
	return form, nil
}

// SaveQuestions replaces the form's question list wholesale. Requires edit
// permission. Question types outside the builder's catalog are rejected.
func (s *FormService) SaveQuestions(ctx context.Context, caller *model.User, name string, questions []model.Question) error {
	if _, err := s.load(ctx, caller, name, authz.FormPermEdit); err != nil {
		return err
	}

	for _, q := range questions {
		if !model.ValidQuestionType(q.Type) {
			return apperror.ValidationFailed("type",
				fmt.Sprintf("unknown question type %q", q.Type))
		}
	}

	if err := s.forms.ReplaceQuestions(ctx, name, questions); err != nil {
		return err
	}

	s.logger.Info("form saved",
		slog.String("form", name),
		slog.Int("questions", len(questions)),
		slog.String("by", caller.ID),
	)
	return nil
}

// AddQuestion appends a default question and returns it. The ID is the next
// sequential index, "q_<n+1>". After deletions this counter can re-issue an
// ID that an older submission still references — a quirk of the original
// scheme we reproduce rather than repair.
func (s *FormService) AddQuestion(ctx context.Context, caller *model.User, name string) (*model.Question, error) {
	form, err := s.load(ctx, caller, name, authz.FormPermEdit)
	if err != nil {
		return nil, err
	}

	n := len(form.Questions) + 1
	question := model.Question{
		ID:       fmt.Sprintf("q_%d", n),
		Title:    fmt.Sprintf("Question %d", n),
		Text:     "",
		Type:     "text",
		Required: false,
	}

	questions := append(form.Questions, question)
	if err := s.forms.ReplaceQuestions(ctx, name, questions); err != nil {
		return nil, err
	}

	return &question, nil
}

// Publish makes the form publicly reachable. Requires form admin.
func (s *FormService) Publish(ctx context.Context, caller *model.User, name string) error {
	return s.setStatus(ctx, caller, name, model.StatusPublished)
}

// Hide takes the form back to draft. Requires form admin. Concurrent
// publish/hide calls race; last write wins.
func (s *FormService) Hide(ctx context.Context, caller *model.User, name string) error {
	return s.setStatus(ctx, caller, name, model.StatusDraft)
}

func (s *FormService) setStatus(ctx context.Context, caller *model.User, name, status string) error {
	if _, err := s.load(ctx, caller, name, authz.FormPermAdmin); err != nil {
		return err
	}
	if err := s.forms.SetStatus(ctx, name, status); err != nil {
		return err
	}

	s.logger.Info("form status changed",
		slog.String("form", name),
		slog.String("status", status),
		slog.String("by", caller.ID),
	)
	return nil
}

// Delete removes the form together with its embedded submissions and
// permission lists. Requires form admin.
func (s *FormService) Delete(ctx context.Context, caller *model.User, name string) error {
	if _, err := s.load(ctx, caller, name, authz.FormPermAdmin); err != nil {
		return err
	}
	if err := s.forms.Delete(ctx, name); err != nil {
		return err
	}

	s.logger.Info("form deleted",
		slog.String("form", name),
		slog.String("by", caller.ID),
	)
	return nil
}

// Submit records a public submission against a published form and returns
// the generated submission ID. No caller: the endpoint is unauthenticated.
// Responses are stored verbatim — no validation against the question list,
// extra or missing keys included.
func (s *FormService) Submit(ctx context.Context, name string, responses map[string]any) (string, error) {
	if _, err := s.GetPublished(ctx, name); err != nil {
		return "", err
	}

	sub := model.Submission{
		ID:          xid.New().String(),
		SubmittedAt: time.Now(),
		Responses:   responses,
	}
	if err := s.forms.AppendSubmission(ctx, name, sub); err != nil {
		return "", fmt.Errorf("service/form: appending submission to %s: %w", name, err)
	}

	s.logger.Info("submission received",
		slog.String("form", name),
		slog.String("submission", sub.ID),
	)
	return sub.ID, nil
}

// DeleteSubmission removes one submission. Requires edit permission on the
// form; ErrNotFound if either the form or the submission is absent.
func (s *FormService) DeleteSubmission(ctx context.Context, caller *model.User, name, submissionID string) error {
	if _, err := s.load(ctx, caller, name, authz.FormPermEdit); err != nil {
		return err
	}
	if err := s.forms.DeleteSubmission(ctx, name, submissionID); err != nil {
		return err
	}

	s.logger.Info("submission deleted",
		slog.String("form", name),
		slog.String("submission", submissionID),
		slog.String("by", caller.ID),
	)
	return nil
}

// load fetches a form and authorizes the caller in one step. Order matters:
// a missing form is 404 for everyone, while an existing form the caller may
// not touch is 403.
func (s *FormService) load(ctx context.Context, caller *model.User, name string, perm authz.FormPermission) (*model.Form, error) {
	form, err := s.forms.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !authz.HasFormPermission(caller, form, perm) {
		return nil, apperror.Forbidden("insufficient permissions")
	}
	return form, nil
}
