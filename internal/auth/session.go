// Package auth provides the Google OAuth flow, session tokens, and the
// middleware that resolves the current user on each request.
//
// SESSION MODEL:
// A session is a signed JWT in an HttpOnly cookie, carrying a snapshot of
// the user record (id, email, name, picture, role) in its claims. Requests
// are served from the snapshot with no database lookup.
//
// Deliberate consequence, inherited from the original system: changes to a
// user's global role do not take effect until the session is re-established.
// A user promoted to admin keeps their old permissions until they log in
// again, and a demoted admin keeps admin until their session expires. Do not
// "fix" this by re-reading the user per request without understanding that
// it changes observable security behavior.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oryahud/aForm/internal/model"
)

const (
	// SessionCookie is the name of the session cookie.
	SessionCookie = "session"

	// SessionTTL is how long a session lives. There is no refresh flow;
	// after expiry the user goes back through the login redirect.
	SessionTTL = 24 * time.Hour

	issuer = "aform"
)

// Sessions mints and validates session tokens. It holds the HMAC secret
// used for both operations.
type Sessions struct {
	secret []byte
}

// NewSessions creates a Sessions service with the given secret. The secret
// should be at least 32 bytes of random data in production.
func NewSessions(secret string) (*Sessions, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &Sessions{secret: []byte(secret)}, nil
}

// claims is the JWT payload: the registered claims plus the user snapshot.
type claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Role    string `json:"role"`
}

// Issue creates a signed session token carrying a snapshot of the user.
func (s *Sessions) Issue(user *model.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("auth: cannot issue a session for an empty user")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			Issuer:    issuer,
		},
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
		Role:    string(user.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}
	return signed, nil
}

// Resolve parses and verifies a session token and rebuilds the user
// snapshot it carries. The snapshot reflects the user record as it was when
// the session was issued, not the database's current state.
func (s *Sessions) Resolve(tokenStr string) (*model.User, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: session expired")
		}
		return nil, fmt.Errorf("auth: invalid session token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, errors.New("auth: invalid session claims")
	}

	return &model.User{
		ID:      c.Subject,
		Email:   c.Email,
		Name:    c.Name,
		Picture: c.Picture,
		Role:    model.Role(c.Role),
		Status:  "active",
	}, nil
}
