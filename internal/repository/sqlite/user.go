package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/repository"
)

// UserStore implements repository.UserRepository on top of DB.
type UserStore struct {
	db *DB
}

var _ repository.UserRepository = (*UserStore)(nil)

// Create inserts a new user. The caller is responsible for deriving the ID
// from the email; this layer only enforces uniqueness.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.LastLogin = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, picture, role, status, created_at, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Name,
		user.Picture,
		string(user.Role),
		user.Status,
		user.CreatedAt,
		user.LastLogin,
	)
	if err != nil {
		// UNIQUE(email) and the ID primary key are the safety net against a
		// lookup/create race in the login flow — surface it as a conflict,
		// never as a second account.
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: creating user %s: %w", user.Email, err)
	}

	return nil
}

// UpdateProfile overwrites the display metadata and bumps last_login, as
// happens on every identity-provider callback for a known email.
func (s *UserStore) UpdateProfile(ctx context.Context, id, name, picture string) (*model.User, error) {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, picture = ?, last_login = ? WHERE id = ?`,
		name, picture, time.Now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("user", id)
	}

	return s.GetByID(ctx, id)
}

// GetByEmail retrieves a user by their email address.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `email = ?`, email)
}

// GetByID retrieves a user by their internal ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

func (s *UserStore) getUser(ctx context.Context, where string, key string) (*model.User, error) {
	var u model.User
	var role string

	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, email, name, picture, role, status, created_at, last_login
		 FROM users WHERE `+where,
		key,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Picture,
		&role,
		&u.Status,
		&u.CreatedAt,
		&u.LastLogin,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}

	u.Role = model.Role(role)
	return &u, nil
}

// GetAll retrieves every user, newest first.
func (s *UserStore) GetAll(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, email, name, picture, role, status, created_at, last_login
		 FROM users ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		var role string
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.Picture, &role,
			&u.Status, &u.CreatedAt, &u.LastLogin,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		u.Role = model.Role(role)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// Delete removes a user by ID. No reachable endpoint calls this; it exists
// for parity with the user model's lifecycle operations.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	return nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE/PRIMARY KEY
// constraint failure. modernc.org/sqlite doesn't export a typed error for
// these, so we match the message the engine produces.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
