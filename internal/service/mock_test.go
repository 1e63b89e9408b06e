package service

// Hand-written in-memory mocks for the repository interfaces, in the same
// spirit as the rest of the test suite: no database, no HTTP, just the
// business rules under test.

import (
	"context"
	"time"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/repository"
)

type mockUserRepo struct {
	byID map[string]*model.User
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: map[string]*model.User{}}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.byID {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	if _, ok := m.byID[user.ID]; ok {
		return apperror.Conflict("user", user.ID)
	}
	now := time.Now()
	user.CreatedAt = now
	user.LastLogin = now
	stored := *user
	m.byID[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id, name, picture string) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	u.Name = name
	u.Picture = picture
	u.LastLogin = time.Now()
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetAll(_ context.Context) ([]model.User, error) {
	users := make([]model.User, 0, len(m.byID))
	for _, u := range m.byID {
		users = append(users, *u)
	}
	return users, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.byID, id)
	return nil
}

type mockFormRepo struct {
	byName map[string]*model.Form

	failAppend bool // simulate a storage failure on AppendSubmission
}

var _ repository.FormRepository = (*mockFormRepo)(nil)

func newMockFormRepo() *mockFormRepo {
	return &mockFormRepo{byName: map[string]*model.Form{}}
}

func (m *mockFormRepo) Create(_ context.Context, form *model.Form) error {
	if _, ok := m.byName[form.Name]; ok {
		return apperror.Conflict("form", form.Name)
	}
	now := time.Now()
	form.CreatedAt = now
	form.UpdatedAt = now
	form.Permissions = model.Permissions{Admin: []string{form.CreatedBy}}
	form.Submissions = []model.Submission{}
	stored := *form
	m.byName[form.Name] = &stored
	return nil
}

func (m *mockFormRepo) GetByName(_ context.Context, name string) (*model.Form, error) {
	f, ok := m.byName[name]
	if !ok {
		return nil, apperror.NotFound("form", name)
	}
	result := *f
	return &result, nil
}

func (m *mockFormRepo) GetAll(_ context.Context) ([]model.Form, error) {
	forms := make([]model.Form, 0, len(m.byName))
	for _, f := range m.byName {
		forms = append(forms, *f)
	}
	return forms, nil
}

func (m *mockFormRepo) GetFormsForUser(_ context.Context, userID string) ([]model.Form, error) {
	forms := []model.Form{}
	for _, f := range m.byName {
		if f.Permissions.HasAny(userID) {
			forms = append(forms, *f)
		}
	}
	return forms, nil
}

func (m *mockFormRepo) Delete(_ context.Context, name string) error {
	if _, ok := m.byName[name]; !ok {
		return apperror.NotFound("form", name)
	}
	delete(m.byName, name)
	return nil
}

func (m *mockFormRepo) ReplaceQuestions(_ context.Context, name string, questions []model.Question) error {
	f, ok := m.byName[name]
	if !ok {
		return apperror.NotFound("form", name)
	}
	f.Questions = questions
	f.UpdatedAt = time.Now()
	return nil
}

func (m *mockFormRepo) SetStatus(_ context.Context, name, status string) error {
	f, ok := m.byName[name]
	if !ok {
		return apperror.NotFound("form", name)
	}
	f.Status = status
	f.UpdatedAt = time.Now()
	return nil
}

func (m *mockFormRepo) AppendSubmission(_ context.Context, name string, sub model.Submission) error {
	if m.failAppend {
		return apperror.Upstream("storage")
	}
	f, ok := m.byName[name]
	if !ok {
		return apperror.NotFound("form", name)
	}
	f.Submissions = append(f.Submissions, sub)
	f.UpdatedAt = time.Now()
	return nil
}

func (m *mockFormRepo) DeleteSubmission(_ context.Context, name, submissionID string) error {
	f, ok := m.byName[name]
	if !ok {
		return apperror.NotFound("form", name)
	}
	for i, sub := range f.Submissions {
		if sub.ID == submissionID {
			f.Submissions = append(f.Submissions[:i], f.Submissions[i+1:]...)
			f.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperror.NotFound("submission", submissionID)
}

func (m *mockFormRepo) AddCollaborator(_ context.Context, name, userID string, role model.FormRole) error {
	f, ok := m.byName[name]
	if !ok {
		return apperror.NotFound("form", name)
	}
	if f.Permissions.Has(role, userID) {
		return nil // idempotent
	}
	switch role {
	case model.FormRoleAdmin:
		f.Permissions.Admin = append(f.Permissions.Admin, userID)
	case model.FormRoleEditor:
		f.Permissions.Editor = append(f.Permissions.Editor, userID)
	case model.FormRoleViewer:
		f.Permissions.Viewer = append(f.Permissions.Viewer, userID)
	}
	f.UpdatedAt = time.Now()
	return nil
}

func (m *mockFormRepo) RemoveCollaborator(_ context.Context, name, userID string) error {
	f, ok := m.byName[name]
	if !ok {
		return apperror.NotFound("form", name)
	}
	remove := func(list []string) []string {
		out := list[:0]
		for _, id := range list {
			if id != userID {
				out = append(out, id)
			}
		}
		return out
	}
	f.Permissions.Admin = remove(f.Permissions.Admin)
	f.Permissions.Editor = remove(f.Permissions.Editor)
	f.Permissions.Viewer = remove(f.Permissions.Viewer)
	f.UpdatedAt = time.Now()
	return nil
}

// mockMailer records sends and optionally fails them.
type mockMailer struct {
	sent []string // recipient emails
	fail bool
}

func (m *mockMailer) SendInvite(_ context.Context, to, formName, role, inviterName string) error {
	if m.fail {
		return apperror.Upstream("mail relay")
	}
	m.sent = append(m.sent, to)
	return nil
}
