// Package service contains the business logic layer: it validates input,
// enforces permissions, and orchestrates repositories. Handlers stay HTTP-only,
// repositories stay SQL-only.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oryahud/aForm/internal/apperror"
	"github.com/oryahud/aForm/internal/auth"
	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/repository"
)

// AuthService resolves identity-provider profiles into user accounts.
type AuthService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(users repository.UserRepository, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, logger: logger}
}

// DeriveUserID returns the stable internal ID for an email address: a
// truncated SHA-256 of the address. The only property that matters is that
// the same email always maps to the same ID and distinct emails do not
// collide in practice.
func DeriveUserID(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])[:16]
}

// LoginOrRegister turns a successful identity-provider callback into a user
// record.
//
// Known email: overwrite name and picture from the fresh profile and bump
// last_login. Unknown email: create the account with role "user" and status
// "active". Safe to call repeatedly with the same email — the lookup finds
// the existing account, and the email UNIQUE constraint backstops the
// lookup/create race (two first-logins racing produce one account and one
// conflict error rather than duplicates).
func (s *AuthService) LoginOrRegister(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	if profile == nil || profile.Email == "" {
		return nil, apperror.ValidationFailed("email", "identity provider returned no email")
	}

	existing, err := s.users.GetByEmail(ctx, profile.Email)
	if err == nil {
		updated, err := s.users.UpdateProfile(ctx, existing.ID, profile.Name, profile.Picture)
		if err != nil {
			return nil, fmt.Errorf("service/auth: refreshing user %s: %w", existing.ID, err)
		}
		s.logger.Info("user logged in",
			slog.String("userID", updated.ID),
			slog.String("email", updated.Email),
		)
		return updated, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", profile.Email, err)
	}

	user := &model.User{
		ID:      DeriveUserID(profile.Email),
		Email:   profile.Email,
		Name:    profile.Name,
		Picture: profile.Picture,
		Role:    model.RoleUser,
		Status:  "active",
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", profile.Email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// GetUserByEmail looks up an account by email. Used by the invite flow to
// resolve an invitee.
func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.users.GetByEmail(ctx, email)
}
