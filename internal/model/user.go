// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is a user's global role, independent of any specific form.
//
// Global roles gate coarse-grained permissions (may this user create forms
// at all?). Per-form access is a separate axis — see Permissions and the
// authz package. The one place the two axes meet: a global admin passes
// every form-scoped check.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// User represents a registered user account.
//
// We use Google OAuth as the identity provider, so accounts are keyed by
// email. The internal ID is derived deterministically from the email at
// creation time (same email ⇒ same ID) and never changes afterwards; the
// email itself stays the natural lookup key with a UNIQUE constraint behind
// it.
//
// Name and Picture are display metadata from the Google profile and are
// overwritten on every login. LastLogin is bumped on every login as well.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"`
	Role      Role      `json:"role"`
	Status    string    `json:"status"` // always "active" — no deactivation flow exists
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login"`
}

// IsAdmin reports whether the user holds the global admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
