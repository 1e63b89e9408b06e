package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/oryahud/aForm/internal/auth"
	"github.com/oryahud/aForm/internal/model"
	"github.com/oryahud/aForm/internal/service"
)

// AuthHandler manages the Google OAuth login flow and the session cookie.
//
//   - HandleLogin    → redirect the browser to Google's consent page
//   - HandleCallback → verify state, exchange the code, upsert, set cookie
//   - HandleLogout   → clear the cookie
//   - HandleMe       → return the session snapshot as JSON
//   - HandleDevLogin → local bypass, registered only when explicitly enabled
type AuthHandler struct {
	google   *auth.GoogleProvider
	sessions *auth.Sessions
	users    *service.AuthService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	google *auth.GoogleProvider,
	sessions *auth.Sessions,
	users *service.AuthService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		google:   google,
		sessions: sessions,
		users:    users,
		logger:   logger,
	}
}

// HandleLogin starts the OAuth flow. An already-authenticated visitor is
// sent home instead of back through consent.
//
// HTTP: GET /login
//
// The random state value goes into a short-lived HttpOnly cookie; the
// callback checks it to prove the flow started here and not on an
// attacker's page.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusFound)
}

// HandleCallback completes the OAuth flow: state check, code exchange,
// login-or-register, session cookie, redirect to the dashboard.
//
// HTTP: GET /auth/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: consent denied", slog.String("error", errParam))
		http.Redirect(w, r, "/login-page?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	profile, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	user, err := h.users.LoginOrRegister(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.String("email", profile.Email),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	if err := h.issueSession(w, user); err != nil {
		h.logger.Error("auth callback: issuing session failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/my-forms", http.StatusFound)
}

// HandleLogout clears the session cookie. The JWT itself stays valid until
// it expires; logout only makes the browser forget it.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login-page", http.StatusFound)
}

// HandleMe returns the session snapshot — the user as they were at login,
// not the current database row.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

// HandleDevLogin signs in a fixed local development user without going
// through Google. The route is registered only when DEV_LOGIN_ENABLED=true;
// it must never be reachable in production.
//
// HTTP: GET /dev-login
func (h *AuthHandler) HandleDevLogin(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.LoginOrRegister(r.Context(), &auth.Profile{
		Email: "dev@localhost",
		Name:  "Dev User",
	})
	if err != nil {
		h.logger.Error("dev login failed", slog.String("error", err.Error()))
		http.Error(w, "dev login failed", http.StatusInternalServerError)
		return
	}

	if err := h.issueSession(w, user); err != nil {
		h.logger.Error("dev login: issuing session failed", slog.String("error", err.Error()))
		http.Error(w, "dev login failed", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/my-forms", http.StatusFound)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, user *model.User) error {
	token, err := h.sessions.Issue(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
