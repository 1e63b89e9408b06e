package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/model"
)

func createTestForm(t *testing.T, db *DB, name, createdBy string) *model.Form {
	t.Helper()
	form := &model.Form{
		Name:          name,
		CreatedBy:     createdBy,
		CreatedByName: "Creator",
	}
	if err := db.Forms().Create(context.Background(), form); err != nil {
		t.Fatalf("failed to create test form: %v", err)
	}
	return form
}

func testSubmission(responses map[string]any) model.Submission {
	return model.Submission{
		ID:          xid.New().String(),
		SubmittedAt: time.Now(),
		Responses:   responses,
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestFormCreate(t *testing.T) {
	db := newTestDB(t)

	form := createTestForm(t, db, "feedback", "creator1")
	if form.Status != model.StatusDraft {
		t.Errorf("Status = %q, want draft by default", form.Status)
	}

	got, err := db.Forms().GetByName(context.Background(), "feedback")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.CreatedBy != "creator1" {
		t.Errorf("CreatedBy = %q, want creator1", got.CreatedBy)
	}
	// The creator must come back in the admin list without any separate
	// AddCollaborator call — the seed is part of the create.
	if !got.Permissions.Has(model.FormRoleAdmin, "creator1") {
		t.Errorf("Permissions = %+v, creator missing from admin list", got.Permissions)
	}
	if got.Questions == nil || len(got.Questions) != 0 {
		t.Errorf("Questions = %#v, want empty non-nil list", got.Questions)
	}
	if got.Submissions == nil || len(got.Submissions) != 0 {
		t.Errorf("Submissions = %#v, want empty non-nil list", got.Submissions)
	}
}

func TestFormCreate_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "feedback", "creator1")

	dup := &model.Form{Name: "feedback", CreatedBy: "other1"}
	err := db.Forms().Create(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() with duplicate name error = %v, want ErrConflict", err)
	}

	// The losing create must not have touched the original.
	got, _ := db.Forms().GetByName(context.Background(), "feedback")
	if got.CreatedBy != "creator1" {
		t.Errorf("CreatedBy = %q after failed duplicate create, want creator1", got.CreatedBy)
	}
}

// =========================================================================
// QUESTION TESTS
// =========================================================================

func TestReplaceQuestions_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "feedback", "creator1")

	min, max := 1.0, 5.0
	questions := []model.Question{
		{ID: "q_1", Title: "How was it?", Type: "rating", Required: true, MinValue: &min, MaxValue: &max},
		{ID: "q_2", Title: "Pick one", Type: "radio", Options: []string{"a", "b"}},
		{ID: "q_3", Title: "Comments", Type: "textarea"},
	}
	if err := db.Forms().ReplaceQuestions(context.Background(), "feedback", questions); err != nil {
		t.Fatalf("ReplaceQuestions() error = %v", err)
	}

	got, _ := db.Forms().GetByName(context.Background(), "feedback")
	if len(got.Questions) != 3 {
		t.Fatalf("Questions = %d, want 3", len(got.Questions))
	}
	// Order is part of the contract: questions render in saved order.
	if got.Questions[0].ID != "q_1" || got.Questions[1].ID != "q_2" || got.Questions[2].ID != "q_3" {
		t.Errorf("question order = %v", got.Questions)
	}
	if got.Questions[0].MaxValue == nil || *got.Questions[0].MaxValue != 5 || !got.Questions[0].Required {
		t.Errorf("rating question lost fields: %+v", got.Questions[0])
	}
	if len(got.Questions[1].Options) != 2 {
		t.Errorf("radio options = %v, want [a b]", got.Questions[1].Options)
	}

	// A second save replaces wholesale, never merges.
	if err := db.Forms().ReplaceQuestions(context.Background(), "feedback", nil); err != nil {
		t.Fatalf("ReplaceQuestions(nil) error = %v", err)
	}
	got, _ = db.Forms().GetByName(context.Background(), "feedback")
	if len(got.Questions) != 0 {
		t.Errorf("Questions = %d after clearing save, want 0", len(got.Questions))
	}
}

func TestReplaceQuestions_MissingForm(t *testing.T) {
	db := newTestDB(t)

	err := db.Forms().ReplaceQuestions(context.Background(), "ghost", nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ReplaceQuestions(unknown) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// STATUS TESTS
// =========================================================================

func TestSetStatus(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "feedback", "creator1")

	if err := db.Forms().SetStatus(context.Background(), "feedback", model.StatusPublished); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	got, _ := db.Forms().GetByName(context.Background(), "feedback")
	if !got.IsPublished() {
		t.Errorf("Status = %q, want published", got.Status)
	}

	if err := db.Forms().SetStatus(context.Background(), "ghost", model.StatusPublished); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetStatus(unknown) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// COLLABORATOR TESTS
// =========================================================================

func TestAddCollaborator_Idempotent(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "feedback", "creator1")

	for i := 0; i < 2; i++ {
		if err := db.Forms().AddCollaborator(context.Background(), "feedback", "bob1", model.FormRoleEditor); err != nil {
			t.Fatalf("AddCollaborator() call %d error = %v", i+1, err)
		}
	}

	got, _ := db.Forms().GetByName(context.Background(), "feedback")
	if len(got.Permissions.Editor) != 1 {
		t.Errorf("Editor list = %v, want exactly one bob1", got.Permissions.Editor)
	}
}

func TestAddCollaborator_MissingForm(t *testing.T) {
	db := newTestDB(t)

	err := db.Forms().AddCollaborator(context.Background(), "ghost", "bob1", model.FormRoleViewer)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AddCollaborator(unknown form) error = %v, want ErrNotFound", err)
	}
}

// A user can hold more than one role; removal strips all of them in one
// operation.
func TestRemoveCollaborator_StripsAllRoles(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "feedback", "creator1")
	db.Forms().AddCollaborator(context.Background(), "feedback", "bob1", model.FormRoleEditor)
	db.Forms().AddCollaborator(context.Background(), "feedback", "bob1", model.FormRoleViewer)

	if err := db.Forms().RemoveCollaborator(context.Background(), "feedback", "bob1"); err != nil {
		t.Fatalf("RemoveCollaborator() error = %v", err)
	}

	got, _ := db.Forms().GetByName(context.Background(), "feedback")
	if got.Permissions.HasAny("bob1") {
		t.Errorf("bob1 still present after removal: %+v", got.Permissions)
	}
	// The creator's admin grant is a separate row and must survive.
	if !got.Permissions.Has(model.FormRoleAdmin, "creator1") {
		t.Error("creator admin grant lost on unrelated removal")
	}
}

func TestRemoveCollaborator_NonMemberIsNoOp(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "feedback", "creator1")

	if err := db.Forms().RemoveCollaborator(context.Background(), "feedback", "nobody"); err != nil {
		t.Errorf("RemoveCollaborator(non-member) error = %v, want no-op success", err)
	}
	if err := db.Forms().RemoveCollaborator(context.Background(), "ghost", "nobody"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RemoveCollaborator(unknown form) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// VISIBLE-FORMS QUERY TESTS
// =========================================================================

func TestGetFormsForUser(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "mine", "alice1")
	createTestForm(t, db, "shared", "bob1")
	createTestForm(t, db, "other", "carol1")
	db.Forms().AddCollaborator(context.Background(), "shared", "alice1", model.FormRoleViewer)

	forms, err := db.Forms().GetFormsForUser(context.Background(), "alice1")
	if err != nil {
		t.Fatalf("GetFormsForUser() error = %v", err)
	}

	names := map[string]bool{}
	for _, f := range forms {
		names[f.Name] = true
	}
	if len(forms) != 2 || !names["mine"] || !names["shared"] {
		t.Errorf("GetFormsForUser() = %v, want [mine shared]", names)
	}

	// Multiple roles on one form must not produce duplicate rows.
	db.Forms().AddCollaborator(context.Background(), "shared", "alice1", model.FormRoleEditor)
	forms, _ = db.Forms().GetFormsForUser(context.Background(), "alice1")
	if len(forms) != 2 {
		t.Errorf("GetFormsForUser() returned %d forms after double grant, want 2", len(forms))
	}

	forms, _ = db.Forms().GetFormsForUser(context.Background(), "stranger")
	if len(forms) != 0 {
		t.Errorf("GetFormsForUser(stranger) = %d forms, want 0", len(forms))
	}
}

func TestFormGetAll(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "one", "a1")
	createTestForm(t, db, "two", "b1")

	forms, err := db.Forms().GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(forms) != 2 {
		t.Errorf("GetAll() = %d forms, want 2", len(forms))
	}
}

// =========================================================================
// SUBMISSION TESTS
// =========================================================================

func TestAppendSubmission(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "feedback", "creator1")

	sub := testSubmission(map[string]any{"q_1": "great", "q_2": float64(5)})
	if err := db.Forms().AppendSubmission(context.Background(), "feedback", sub); err != nil {
		t.Fatalf("AppendSubmission() error = %v", err)
	}

	got, _ := db.Forms().GetByName(context.Background(), "feedback")
	if len(got.Submissions) != 1 {
		t.Fatalf("Submissions = %d, want 1", len(got.Submissions))
	}
	stored := got.Submissions[0]
	if stored.ID != sub.ID {
		t.Errorf("ID = %q, want %q", stored.ID, sub.ID)
	}
	if stored.Responses["q_1"] != "great" || stored.Responses["q_2"] != float64(5) {
		t.Errorf("Responses = %v", stored.Responses)
	}
}

func TestAppendSubmission_MissingForm(t *testing.T) {
	db := newTestDB(t)

	err := db.Forms().AppendSubmission(context.Background(), "ghost", testSubmission(nil))
	if err == nil {
		t.Fatal("AppendSubmission(unknown form) should fail on the foreign key")
	}
}

func TestDeleteSubmission(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "feedback", "creator1")

	keep := testSubmission(map[string]any{"q_1": "keep"})
	drop := testSubmission(map[string]any{"q_1": "drop"})
	db.Forms().AppendSubmission(context.Background(), "feedback", keep)
	db.Forms().AppendSubmission(context.Background(), "feedback", drop)

	if err := db.Forms().DeleteSubmission(context.Background(), "feedback", drop.ID); err != nil {
		t.Fatalf("DeleteSubmission() error = %v", err)
	}

	got, _ := db.Forms().GetByName(context.Background(), "feedback")
	if len(got.Submissions) != 1 || got.Submissions[0].ID != keep.ID {
		t.Errorf("Submissions = %v, want only the kept one", got.Submissions)
	}

	if err := db.Forms().DeleteSubmission(context.Background(), "feedback", drop.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteSubmission() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

// Deleting a form must cascade to its collaborator grants and submissions,
// and must free the name for reuse.
func TestFormDelete_Cascades(t *testing.T) {
	db := newTestDB(t)
	createTestForm(t, db, "feedback", "creator1")
	db.Forms().AddCollaborator(context.Background(), "feedback", "bob1", model.FormRoleViewer)
	db.Forms().AppendSubmission(context.Background(), "feedback", testSubmission(map[string]any{"q_1": "x"}))

	if err := db.Forms().Delete(context.Background(), "feedback"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.Forms().GetByName(context.Background(), "feedback"); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("form still retrievable after Delete()")
	}
	if forms, _ := db.Forms().GetFormsForUser(context.Background(), "bob1"); len(forms) != 0 {
		t.Errorf("collaborator rows survived the delete: %v", forms)
	}

	// Re-create under the same name: must come back clean, not with the old
	// form's leftovers.
	createTestForm(t, db, "feedback", "dave1")
	got, _ := db.Forms().GetByName(context.Background(), "feedback")
	if len(got.Submissions) != 0 || got.Permissions.HasAny("bob1") {
		t.Errorf("recreated form inherited stale children: %+v", got)
	}
}

func TestFormDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	if err := db.Forms().Delete(context.Background(), "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete(unknown) error = %v, want ErrNotFound", err)
	}
}
