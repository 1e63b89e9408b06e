package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/repository"
)

// FormStore implements repository.FormRepository on top of DB.
type FormStore struct {
	db *DB
}

var _ repository.FormRepository = (*FormStore)(nil)

// Create inserts a new form and seeds the creator into the admin permission
// list in the same transaction, so no form is ever observable without its
// creator holding form admin.
func (s *FormStore) Create(ctx context.Context, form *model.Form) error {
	now := time.Now()
	form.CreatedAt = now
	form.UpdatedAt = now
	if form.Status == "" {
		form.Status = model.StatusDraft
	}
	if form.Questions == nil {
		form.Questions = []model.Question{}
	}

	questionsJSON, err := json.Marshal(form.Questions)
	if err != nil {
		return fmt.Errorf("sqlite: encoding questions: %w", err)
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO forms (name, status, created_by, created_by_name, questions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		form.Name,
		form.Status,
		form.CreatedBy,
		form.CreatedByName,
		string(questionsJSON),
		form.CreatedAt,
		form.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("form", form.Name)
		}
		return fmt.Errorf("sqlite: creating form %s: %w", form.Name, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO form_collaborators (form_name, user_id, role)
		 VALUES (?, ?, 'admin')`,
		form.Name, form.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("sqlite: seeding creator permission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing form create: %w", err)
	}

	form.Permissions = model.Permissions{Admin: []string{form.CreatedBy}}
	form.Submissions = []model.Submission{}
	return nil
}

// GetByName retrieves a form with its permission lists and submissions.
func (s *FormStore) GetByName(ctx context.Context, name string) (*model.Form, error) {
	form, err := s.scanForm(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := s.loadPermissions(ctx, form); err != nil {
		return nil, err
	}
	if err := s.loadSubmissions(ctx, form); err != nil {
		return nil, err
	}

	return form, nil
}

func (s *FormStore) scanForm(ctx context.Context, name string) (*model.Form, error) {
	var f model.Form
	var questionsJSON string

	err := s.db.conn.QueryRowContext(ctx,
		`SELECT name, status, created_by, created_by_name, questions, created_at, updated_at
		 FROM forms WHERE name = ?`,
		name,
	).Scan(
		&f.Name,
		&f.Status,
		&f.CreatedBy,
		&f.CreatedByName,
		&questionsJSON,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("form", name)
		}
		return nil, fmt.Errorf("sqlite: getting form %s: %w", name, err)
	}

	if err := json.Unmarshal([]byte(questionsJSON), &f.Questions); err != nil {
		return nil, fmt.Errorf("sqlite: decoding questions for %s: %w", name, err)
	}
	if f.Questions == nil {
		f.Questions = []model.Question{}
	}

	return &f, nil
}

func (s *FormStore) loadPermissions(ctx context.Context, form *model.Form) error {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT user_id, role FROM form_collaborators
		 WHERE form_name = ? ORDER BY rowid`,
		form.Name,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading permissions for %s: %w", form.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, role string
		if err := rows.Scan(&userID, &role); err != nil {
			return fmt.Errorf("sqlite: scanning permission row: %w", err)
		}
		switch model.FormRole(role) {
		case model.FormRoleAdmin:
			form.Permissions.Admin = append(form.Permissions.Admin, userID)
		case model.FormRoleEditor:
			form.Permissions.Editor = append(form.Permissions.Editor, userID)
		case model.FormRoleViewer:
			form.Permissions.Viewer = append(form.Permissions.Viewer, userID)
		}
	}
	return rows.Err()
}

func (s *FormStore) loadSubmissions(ctx context.Context, form *model.Form) error {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, responses, submitted_at FROM submissions
		 WHERE form_name = ? ORDER BY submitted_at, id`,
		form.Name,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading submissions for %s: %w", form.Name, err)
	}
	defer rows.Close()

	form.Submissions = []model.Submission{}
	for rows.Next() {
		var sub model.Submission
		var responsesJSON string
		if err := rows.Scan(&sub.ID, &responsesJSON, &sub.SubmittedAt); err != nil {
			return fmt.Errorf("sqlite: scanning submission row: %w", err)
		}
		if err := json.Unmarshal([]byte(responsesJSON), &sub.Responses); err != nil {
			return fmt.Errorf("sqlite: decoding submission %s: %w", sub.ID, err)
		}
		form.Submissions = append(form.Submissions, sub)
	}
	return rows.Err()
}

// GetAll retrieves every form, newest first. Used by the global-admin path
// of the visible-forms query.
func (s *FormStore) GetAll(ctx context.Context) ([]model.Form, error) {
	return s.listForms(ctx,
		`SELECT name FROM forms ORDER BY created_at DESC`)
}

// GetFormsForUser returns every form where userID appears in any of the
// three permission lists — one indexed query against form_collaborators, not
// an application-side scan of all forms.
func (s *FormStore) GetFormsForUser(ctx context.Context, userID string) ([]model.Form, error) {
	return s.listForms(ctx,
		`SELECT DISTINCT f.name
		 FROM forms f
		 JOIN form_collaborators c ON c.form_name = f.name
		 WHERE c.user_id = ?
		 ORDER BY f.created_at DESC`,
		userID)
}

func (s *FormStore) listForms(ctx context.Context, query string, args ...any) ([]model.Form, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing forms: %w", err)
	}

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning form name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating forms: %w", err)
	}
	rows.Close()

	forms := make([]model.Form, 0, len(names))
	for _, name := range names {
		form, err := s.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		forms = append(forms, *form)
	}
	return forms, nil
}

// Delete removes a form. Collaborator rows and submissions go with it via
// the ON DELETE CASCADE foreign keys.
func (s *FormStore) Delete(ctx context.Context, name string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM forms WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("sqlite: deleting form %s: %w", name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("form", name)
	}

	return nil
}

// ReplaceQuestions swaps the ordered question list wholesale, the way the
// editor saves: last write wins, no merging.
func (s *FormStore) ReplaceQuestions(ctx context.Context, name string, questions []model.Question) error {
	if questions == nil {
		questions = []model.Question{}
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("sqlite: encoding questions: %w", err)
	}

	return s.updateForm(ctx, name,
		`UPDATE forms SET questions = ?, updated_at = ? WHERE name = ?`,
		string(questionsJSON), time.Now(), name)
}

// SetStatus flips the form's status. Concurrent publish/hide calls race;
// last write wins, matching the original behavior.
func (s *FormStore) SetStatus(ctx context.Context, name, status string) error {
	return s.updateForm(ctx, name,
		`UPDATE forms SET status = ?, updated_at = ? WHERE name = ?`,
		status, time.Now(), name)
}

// AppendSubmission appends one submission as a single INSERT — atomic per
// form, so concurrent submissions never lose each other.
func (s *FormStore) AppendSubmission(ctx context.Context, name string, sub model.Submission) error {
	responses := sub.Responses
	if responses == nil {
		responses = map[string]any{}
	}
	responsesJSON, err := json.Marshal(responses)
	if err != nil {
		return fmt.Errorf("sqlite: encoding responses: %w", err)
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO submissions (id, form_name, responses, submitted_at)
		 VALUES (?, ?, ?, ?)`,
		sub.ID, name, string(responsesJSON), sub.SubmittedAt,
	)
	if err != nil {
		// FK violation here means the form vanished between the handler's
		// lookup and the append.
		return fmt.Errorf("sqlite: appending submission to %s: %w", name, err)
	}

	if err := bumpUpdatedAt(ctx, tx, name); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing submission: %w", err)
	}
	return nil
}

// DeleteSubmission removes one submission by ID.
func (s *FormStore) DeleteSubmission(ctx context.Context, name, submissionID string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM submissions WHERE id = ? AND form_name = ?`,
		submissionID, name,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting submission %s: %w", submissionID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("submission", submissionID)
	}

	if err := bumpUpdatedAt(ctx, tx, name); err != nil {
		return err
	}

	return tx.Commit()
}

// AddCollaborator grants userID the given role on the form. INSERT OR IGNORE
// makes a repeated grant of the same (user, role) pair a no-op success.
func (s *FormStore) AddCollaborator(ctx context.Context, name, userID string, role model.FormRole) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	if err := formExists(ctx, tx, name); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO form_collaborators (form_name, user_id, role)
		 VALUES (?, ?, ?)`,
		name, userID, string(role),
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding collaborator %s to %s: %w", userID, name, err)
	}

	if err := bumpUpdatedAt(ctx, tx, name); err != nil {
		return err
	}

	return tx.Commit()
}

// RemoveCollaborator removes userID from all three role lists in one
// statement. Removing a non-member succeeds silently as long as the form
// exists.
func (s *FormStore) RemoveCollaborator(ctx context.Context, name, userID string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	if err := formExists(ctx, tx, name); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM form_collaborators WHERE form_name = ? AND user_id = ?`,
		name, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing collaborator %s from %s: %w", userID, name, err)
	}

	if err := bumpUpdatedAt(ctx, tx, name); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *FormStore) updateForm(ctx context.Context, name, query string, args ...any) error {
	result, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: updating form %s: %w", name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("form", name)
	}

	return nil
}

func formExists(ctx context.Context, tx *sql.Tx, name string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM forms WHERE name = ?`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return apperror.NotFound("form", name)
	}
	if err != nil {
		return fmt.Errorf("sqlite: checking form %s: %w", name, err)
	}
	return nil
}

func bumpUpdatedAt(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE forms SET updated_at = ? WHERE name = ?`,
		time.Now(), name,
	); err != nil {
		return fmt.Errorf("sqlite: bumping updated_at for %s: %w", name, err)
	}
	return nil
}
