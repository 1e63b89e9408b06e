// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage provides the real implementation; tests
// substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/oryahud/aForm/internal/model"
)

// UserRepository stores user accounts keyed by their derived ID, with email
// as the unique natural lookup key.
type UserRepository interface {
	// Create stores a new user. Returns apperror.ErrConflict if a user with
	// the same email (or ID) already exists.
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile overwrites name and picture and bumps last_login.
	// Returns apperror.ErrNotFound if no user has that ID.
	UpdateProfile(ctx context.Context, id, name, picture string) (*model.User, error)

	// GetByEmail returns apperror.ErrNotFound when no user has that email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByID returns apperror.ErrNotFound when no user has that ID.
	GetByID(ctx context.Context, id string) (*model.User, error)

	GetAll(ctx context.Context) ([]model.User, error)

	// Delete returns apperror.ErrNotFound when no user was removed.
	Delete(ctx context.Context, id string) error
}

// FormRepository stores form documents keyed by their unique name, including
// the embedded question list, submissions, and collaborator permission lists.
//
// Every mutator is atomic with respect to a single form: two concurrent
// AddCollaborator calls on the same form must not lose either grant, and two
// concurrent AppendSubmission calls must both land. All mutators bump
// updated_at.
type FormRepository interface {
	// Create stores a new form. Returns apperror.ErrConflict if the name is
	// already taken; the existing form is left untouched.
	Create(ctx context.Context, form *model.Form) error

	// GetByName returns apperror.ErrNotFound when no form has that name.
	GetByName(ctx context.Context, name string) (*model.Form, error)

	GetAll(ctx context.Context) ([]model.Form, error)

	// GetFormsForUser returns every form where userID appears in any of the
	// three permission lists, resolved with a single filtered query.
	GetFormsForUser(ctx context.Context, userID string) ([]model.Form, error)

	// Delete removes the form with its embedded submissions and permission
	// lists. Returns apperror.ErrNotFound when no form was removed.
	Delete(ctx context.Context, name string) error

	// ReplaceQuestions swaps the ordered question list wholesale.
	ReplaceQuestions(ctx context.Context, name string, questions []model.Question) error

	// SetStatus flips the form between draft and published.
	SetStatus(ctx context.Context, name, status string) error

	// AppendSubmission appends one submission. The submission's ID and
	// SubmittedAt must already be populated by the caller.
	AppendSubmission(ctx context.Context, name string, sub model.Submission) error

	// DeleteSubmission returns apperror.ErrNotFound if either the form or
	// the submission is absent.
	DeleteSubmission(ctx context.Context, name, submissionID string) error

	// AddCollaborator grants userID the given form role. Granting an
	// already-present (user, role) pair is a no-op success.
	AddCollaborator(ctx context.Context, name, userID string, role model.FormRole) error

	// RemoveCollaborator removes userID from all three role lists at once.
	// Removing an absent user is a no-op success as long as the form exists;
	// a missing form returns apperror.ErrNotFound.
	RemoveCollaborator(ctx context.Context, name, userID string) error
}
