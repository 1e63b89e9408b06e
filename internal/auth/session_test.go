package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oryahud/aForm/internal/model"
)

func newTestSessions(t *testing.T) *Sessions {
	t.Helper()
	s, err := NewSessions("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	return s
}

func testUser() *model.User {
	return &model.User{
		ID:      "a1b2c3d4",
		Email:   "alice@example.com",
		Name:    "Alice",
		Picture: "https://example.com/alice.png",
		Role:    model.RoleUser,
		Status:  "active",
	}
}

func TestNewSessions_ShortSecret(t *testing.T) {
	if _, err := NewSessions("short"); err == nil {
		t.Fatal("NewSessions() should reject secrets shorter than 16 chars")
	}
}

func TestIssueResolve_RoundTrip(t *testing.T) {
	s := newTestSessions(t)

	token, err := s.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token %q is not a three-part JWT", token)
	}

	got, err := s.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.ID != "a1b2c3d4" || got.Email != "alice@example.com" {
		t.Errorf("Resolve() = %+v, want the issued snapshot", got)
	}
	if got.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleUser)
	}
	if got.Name != "Alice" || got.Picture != "https://example.com/alice.png" {
		t.Errorf("profile fields lost in round trip: %+v", got)
	}
}

func TestIssue_EmptyUser(t *testing.T) {
	s := newTestSessions(t)
	if _, err := s.Issue(nil); err == nil {
		t.Error("Issue(nil) should fail")
	}
	if _, err := s.Issue(&model.User{}); err == nil {
		t.Error("Issue(empty) should fail")
	}
}

func TestResolve_Tampered(t *testing.T) {
	s := newTestSessions(t)
	token, _ := s.Issue(testUser())

	tampered := token[:len(token)-2] + "xx"
	if _, err := s.Resolve(tampered); err == nil {
		t.Error("Resolve() should reject a tampered token")
	}
}

func TestResolve_WrongSecret(t *testing.T) {
	s1 := newTestSessions(t)
	s2, _ := NewSessions("a-completely-different-secret!!")

	token, _ := s1.Issue(testUser())
	if _, err := s2.Resolve(token); err == nil {
		t.Error("Resolve() should reject a token signed with another secret")
	}
}

// The session carries a snapshot: a role change in the database is not
// visible through an existing token. This is intended behavior — sessions
// only pick up role changes when re-established.
func TestResolve_SnapshotIsStale(t *testing.T) {
	s := newTestSessions(t)

	u := testUser()
	token, _ := s.Issue(u)

	// "Promote" the user after the session was issued.
	u.Role = model.RoleAdmin

	got, err := s.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Role != model.RoleUser {
		t.Errorf("Role = %q, want the stale %q snapshot", got.Role, model.RoleUser)
	}
}

func TestRequireAPI_NoCookie(t *testing.T) {
	s := newTestSessions(t)

	handler := RequireAPI(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for anonymous request")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/my-forms", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestRequirePage_RedirectsToLogin(t *testing.T) {
	s := newTestSessions(t)

	handler := RequirePage(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for anonymous request")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/my-forms", nil))

	if rr.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login-page" {
		t.Errorf("Location = %q, want /login-page", loc)
	}
}

func TestRequirePage_ValidSession(t *testing.T) {
	s := newTestSessions(t)
	token, _ := s.Issue(testUser())

	var seen *model.User
	handler := RequirePage(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/my-forms", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if seen == nil || seen.ID != "a1b2c3d4" {
		t.Errorf("handler saw user %+v, want the session user", seen)
	}
}

func TestUserFromContext_Anonymous(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("UserFromContext on a bare context should report no user")
	}
}
