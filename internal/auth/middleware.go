package auth

import (
	"context"
	"net/http"

	"github.com/oryahud/aForm/internal/model"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the session user.
type contextKey string

const userKey contextKey = "user"

// RequirePage protects HTML page routes: an unauthenticated request is
// redirected to the login page, matching the original's 302 behavior.
func RequirePage(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, sessions)
			if err != nil {
				http.Redirect(w, r, "/login-page", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// RequireAPI protects JSON API routes: an unauthenticated request gets a
// 401 with a JSON body instead of a redirect.
func RequireAPI(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(r, sessions)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthenticated","message":"authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// Optional resolves the session user if one is present but never blocks the
// request. Used on routes that behave differently for logged-in visitors
// (the login page redirects them away).
func Optional(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := resolveUser(r, sessions); err == nil {
				r = r.WithContext(withUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the session user snapshot, or (nil, false) for an
// anonymous request. The snapshot is as stale as the session itself — see
// the package comment.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

func withUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func resolveUser(r *http.Request, sessions *Sessions) (*model.User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, err
	}
	return sessions.Resolve(cookie.Value)
}
