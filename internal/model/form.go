package model

import "time"

// Form status values. Only published forms are publicly reachable via the
// submit endpoints; every other value (including an empty one on legacy
// rows) behaves like a draft.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// FormRole is a role scoped to a single form. It is deliberately a distinct
// type from the global Role: only these three values may enter the
// collaborator store, and the CHECK constraint in the schema enforces it.
type FormRole string

const (
	FormRoleAdmin  FormRole = "admin"
	FormRoleEditor FormRole = "editor"
	FormRoleViewer FormRole = "viewer"
)

// ValidFormRole reports whether s names one of the three form roles.
func ValidFormRole(s string) bool {
	switch FormRole(s) {
	case FormRoleAdmin, FormRoleEditor, FormRoleViewer:
		return true
	}
	return false
}

// Permissions holds the three per-form membership lists as sets of user IDs.
//
// The lists are disjoint by convention, not construction: the storage layer
// is idempotent per (user, role) but nothing stops the same ID from being
// granted two roles through separate writes. Authorization treats a nil or
// empty list as "nobody" — absent permission data always fails closed.
type Permissions struct {
	Admin  []string `json:"admin"`
	Editor []string `json:"editor"`
	Viewer []string `json:"viewer"`
}

// Has reports whether userID appears in the list for the given form role.
func (p Permissions) Has(role FormRole, userID string) bool {
	var list []string
	switch role {
	case FormRoleAdmin:
		list = p.Admin
	case FormRoleEditor:
		list = p.Editor
	case FormRoleViewer:
		list = p.Viewer
	}
	for _, id := range list {
		if id == userID {
			return true
		}
	}
	return false
}

// HasAny reports whether userID holds any of the three form roles.
func (p Permissions) HasAny(userID string) bool {
	return p.Has(FormRoleAdmin, userID) ||
		p.Has(FormRoleEditor, userID) ||
		p.Has(FormRoleViewer, userID)
}

// Question is one entry in a form's ordered question list.
//
// IDs are assigned as "q_<n>" where n is the next sequential index at the
// time the question is added. After deletions the counter can re-issue an
// existing ID — a latent bug carried over from the original scheme rather
// than silently redesigned.
//
// The option fields are type-specific and omitted from JSON when unset:
// Options for radio/checkbox/select, MinValue/MaxValue for number/rating,
// FileTypes for file questions.
type Question struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	Type      string   `json:"type"`
	Required  bool     `json:"required"`
	Options   []string `json:"options,omitempty"`
	MinValue  *float64 `json:"minValue,omitempty"`
	MaxValue  *float64 `json:"maxValue,omitempty"`
	FileTypes []string `json:"fileTypes,omitempty"`
}

// QuestionTypes enumerates the types the form builder can produce.
var QuestionTypes = []string{
	"text", "email", "phone", "date", "time", "url", "number",
	"rating", "radio", "checkbox", "select", "textarea", "file",
}

// ValidQuestionType reports whether t is a known question type.
func ValidQuestionType(t string) bool {
	for _, qt := range QuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// Submission is a single respondent's set of answers to a published form.
//
// Responses maps question IDs to arbitrary values. No validation against
// the form's question list is performed — extra or missing keys are stored
// as-is.
type Submission struct {
	ID          string         `json:"id"`
	SubmittedAt time.Time      `json:"submitted_at"`
	Responses   map[string]any `json:"responses"`
}

// Form is a named, versionless document describing an ordered set of
// questions plus its submissions and collaborator permission lists.
//
// Name is the unique natural key and appears in URLs. CreatedBy is the
// immutable creator reference; the creator's ID is seeded into
// Permissions.Admin at creation and can never be removed through the
// collaborator endpoints.
type Form struct {
	Name          string       `json:"name"`
	Status        string       `json:"status"`
	CreatedBy     string       `json:"created_by"`
	CreatedByName string       `json:"created_by_name"`
	Permissions   Permissions  `json:"permissions"`
	Questions     []Question   `json:"questions"`
	Submissions   []Submission `json:"submissions"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// IsPublished reports whether the form is publicly reachable. Anything but
// an exact "published" — draft, empty, or garbage — counts as not published.
func (f *Form) IsPublished() bool {
	return f != nil && f.Status == StatusPublished
}
