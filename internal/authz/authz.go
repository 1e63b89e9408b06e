// Package authz decides, for an authenticated user and optionally a form,
// whether an action is permitted.
//
// There are two independent permission axes:
//
//   - Global role permissions: a static mapping from the user's account role
//     to a fixed set of permission tokens. No form involved.
//   - Form-scoped permissions: membership in the form's admin/editor/viewer
//     lists. Independent of the global role, with one override — a global
//     admin passes every form-scoped check regardless of membership.
//
// Every check fails closed: an unknown role yields no global permissions,
// missing or empty membership lists grant access to no one, and an unknown
// form permission token is always denied. None of the checks can panic on
// malformed permission data — route handlers do not uniformly guard against
// it, so the functions here must.
package authz

import (
	"context"

	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/repository"
)

// Permission is a global permission token granted through a user's role.
type Permission string

const (
	PermCreateForm        Permission = "create_form"
	PermEditForm          Permission = "edit_form"
	PermDeleteForm        Permission = "delete_form"
	PermViewForm          Permission = "view_form"
	PermViewSubmissions   Permission = "view_submissions"
	PermDeleteSubmissions Permission = "delete_submissions"
	PermManageUsers       Permission = "manage_users"
	PermViewAnalytics     Permission = "view_analytics"
	PermExportData        Permission = "export_data"
)

// FormPermission is a form-scoped permission token. Only these three are
// meaningful; any other token is denied for every caller.
type FormPermission string

const (
	FormPermAdmin           FormPermission = "admin"
	FormPermEdit            FormPermission = "edit"
	FormPermViewSubmissions FormPermission = "view_submissions"
)

// rolePermissions is the static global role → permission-token table.
var rolePermissions = map[model.Role][]Permission{
	model.RoleAdmin: {
		PermCreateForm, PermEditForm, PermDeleteForm, PermViewForm,
		PermViewSubmissions, PermDeleteSubmissions, PermManageUsers,
		PermViewAnalytics, PermExportData,
	},
	model.RoleEditor: {
		PermCreateForm, PermEditForm, PermDeleteForm, PermViewForm,
		PermViewSubmissions, PermDeleteSubmissions,
	},
	model.RoleUser: {
		PermCreateForm, PermEditForm, PermDeleteForm, PermViewForm,
		PermViewSubmissions,
	},
	model.RoleViewer: {
		PermViewForm, PermViewSubmissions,
	},
}

// RolePermissions returns the permission tokens granted by a global role.
// An unknown role yields the empty set.
func RolePermissions(role model.Role) []Permission {
	return rolePermissions[role]
}

// HasPermission reports whether the user's global role grants the token.
func HasPermission(user *model.User, perm Permission) bool {
	if user == nil {
		return false
	}
	for _, p := range rolePermissions[user.Role] {
		if p == perm {
			return true
		}
	}
	return false
}

// HasFormPermission reports whether the user may perform a form-scoped
// action on the given form.
//
// A global admin is always permitted. Otherwise membership decides:
//
//	admin            → member of permissions.admin
//	edit             → member of admin or editor
//	view_submissions → member of admin, editor, or viewer
//
// Any other permission token is denied — there is no fallback.
func HasFormPermission(user *model.User, form *model.Form, perm FormPermission) bool {
	if user == nil || form == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}

	p := form.Permissions
	switch perm {
	case FormPermAdmin:
		return p.Has(model.FormRoleAdmin, user.ID)
	case FormPermEdit:
		return p.Has(model.FormRoleAdmin, user.ID) ||
			p.Has(model.FormRoleEditor, user.ID)
	case FormPermViewSubmissions:
		return p.Has(model.FormRoleAdmin, user.ID) ||
			p.Has(model.FormRoleEditor, user.ID) ||
			p.Has(model.FormRoleViewer, user.ID)
	default:
		return false
	}
}

// VisibleForms returns the forms the user may see: all forms for a global
// admin, otherwise exactly the forms where the user's ID appears in one of
// the three permission lists. The membership case is a single storage-layer
// query, not a scan.
func VisibleForms(ctx context.Context, forms repository.FormRepository, user *model.User) ([]model.Form, error) {
	if user == nil {
		return []model.Form{}, nil
	}
	if user.IsAdmin() {
		return forms.GetAll(ctx)
	}
	return forms.GetFormsForUser(ctx, user.ID)
}
