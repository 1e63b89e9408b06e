package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/authz"
	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/repository"
)

// InviteMailer delivers collaborator invitation emails. Delivery is
// best-effort by design: a failure never fails the invite, it only changes
// the message the caller sees. The mail package provides the SMTP
// implementation; tests inject fakes.
type InviteMailer interface {
	SendInvite(ctx context.Context, to, formName, role, inviterName string) error
}

// Collaborator is the summary shape returned by the collaborator endpoints.
type Collaborator struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// InviteResult is what a successful invite returns: the collaborator that
// was added and whether the notification email actually went out.
type InviteResult struct {
	Collaborator Collaborator
	EmailSent    bool
}

// CollaboratorService manages per-form collaborator grants.
type CollaboratorService struct {
	forms  repository.FormRepository
	users  repository.UserRepository
	mailer InviteMailer
	logger *slog.Logger
}

// NewCollaboratorService creates a CollaboratorService. mailer may be nil
// when SMTP is not configured; invites then report the email as not sent.
func NewCollaboratorService(
	forms repository.FormRepository,
	users repository.UserRepository,
	mailer InviteMailer,
	logger *slog.Logger,
) *CollaboratorService {
	return &CollaboratorService{forms: forms, users: users, mailer: mailer, logger: logger}
}

// Invite grants an existing user a collaborator role on the form.
//
// Rules, in the order they are checked: the form must exist (404), the
// caller must hold form admin (403), the email must be non-blank and the
// role must be editor or viewer (400) — inviting someone as a second admin
// is not a thing —, the invitee must already have an account (404), and the
// invitee must not already hold any role on the form (400).
func (s *CollaboratorService) Invite(ctx context.Context, caller *model.User, formName, email, role string) (*InviteResult, error) {
	form, err := s.forms.GetByName(ctx, formName)
	if err != nil {
		return nil, err
	}
	if !authz.HasFormPermission(caller, form, authz.FormPermAdmin) {
		return nil, apperror.Forbidden("only form admins can invite collaborators")
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if role != string(model.FormRoleEditor) && role != string(model.FormRoleViewer) {
		return nil, apperror.ValidationFailed("role", "role must be editor or viewer")
	}

	invitee, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("service/collaborator: looking up invitee: %w", err)
	}

	if form.Permissions.HasAny(invitee.ID) {
		return nil, apperror.ValidationFailed("email", "user already has access to this form")
	}

	if err := s.forms.AddCollaborator(ctx, formName, invitee.ID, model.FormRole(role)); err != nil {
		return nil, err
	}

	s.logger.Info("collaborator invited",
		slog.String("form", formName),
		slog.String("invitee", invitee.ID),
		slog.String("role", role),
		slog.String("by", caller.ID),
	)

	// Best-effort email. A failure is logged and reported in the response
	// message, never retried or queued.
	emailSent := false
	if s.mailer != nil {
		if err := s.mailer.SendInvite(ctx, invitee.Email, formName, role, caller.Name); err != nil {
			s.logger.Warn("invite email failed",
				slog.String("form", formName),
				slog.String("to", invitee.Email),
				slog.String("error", err.Error()),
			)
		} else {
			emailSent = true
		}
	}

	return &InviteResult{
		Collaborator: Collaborator{
			ID:    invitee.ID,
			Email: invitee.Email,
			Name:  invitee.Name,
			Role:  role,
		},
		EmailSent: emailSent,
	}, nil
}

// List returns the form's collaborators with their roles resolved to user
// summaries. Requires edit permission (editors may see who else is on the
// form; viewers may not).
func (s *CollaboratorService) List(ctx context.Context, caller *model.User, formName string) ([]Collaborator, string, error) {
	form, err := s.forms.GetByName(ctx, formName)
	if err != nil {
		return nil, "", err
	}
	if !authz.HasFormPermission(caller, form, authz.FormPermEdit) {
		return nil, "", apperror.Forbidden("insufficient permissions")
	}

	collaborators := []Collaborator{}
	appendRole := func(ids []string, role model.FormRole) {
		for _, id := range ids {
			c := Collaborator{ID: id, Role: string(role)}
			if u, err := s.users.GetByID(ctx, id); err == nil {
				c.Email = u.Email
				c.Name = u.Name
			}
			collaborators = append(collaborators, c)
		}
	}
	appendRole(form.Permissions.Admin, model.FormRoleAdmin)
	appendRole(form.Permissions.Editor, model.FormRoleEditor)
	appendRole(form.Permissions.Viewer, model.FormRoleViewer)

	return collaborators, form.CreatedBy, nil
}

// Remove strips userID of every role on the form. Requires form admin.
// The creator can never be removed, by anyone. Removing a user who holds no
// role is reported as not found at this level (the storage operation itself
// is an idempotent no-op, but the endpoint contract distinguishes the case).
func (s *CollaboratorService) Remove(ctx context.Context, caller *model.User, formName, userID string) error {
	form, err := s.forms.GetByName(ctx, formName)
	if err != nil {
		return err
	}
	if !authz.HasFormPermission(caller, form, authz.FormPermAdmin) {
		return apperror.Forbidden("only form admins can remove collaborators")
	}

	if userID == form.CreatedBy {
		return apperror.ValidationFailed("userId", "cannot remove the form creator")
	}
	if !form.Permissions.HasAny(userID) {
		return apperror.NotFound("collaborator", userID)
	}

	if err := s.forms.RemoveCollaborator(ctx, formName, userID); err != nil {
		return err
	}

	s.logger.Info("collaborator removed",
		slog.String("form", formName),
		slog.String("user", userID),
		slog.String("by", caller.ID),
	)
	return nil
}
