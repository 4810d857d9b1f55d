package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dukerupert/pocketcal/internal/auth"
	"github.com/dukerupert/pocketcal/internal/model"
	"github.com/dukerupert/pocketcal/internal/store"
)

func setupAuthHandler(t *testing.T) (*AuthHandler, *store.UserStore, *store.SessionStore) {
	t.Helper()
	db := setupTestDB(t)
	us := store.NewUserStore(db)
	ss := store.NewSessionStore(db, 0)
	return NewAuthHandler(us, ss, true, discardLogger()), us, ss
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSignupCreatesUserAndSession(t *testing.T) {
	h, us, ss := setupAuthHandler(t)

	req := newRequest(t, "POST", "/api/auth/signup", map[string]string{"username": "alice", "password": "s3cret-pass"}, 0)
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var got model.User
	decodeBody(t, rec, &got)
	if got.Username != "alice" {
		t.Errorf("username = %q, want alice", got.Username)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not expose the password hash")
	}

	c := sessionCookie(t, rec)
	if !c.HttpOnly || !c.Secure {
		t.Errorf("cookie flags HttpOnly=%v Secure=%v, want both", c.HttpOnly, c.Secure)
	}
	if c.MaxAge != 30*24*60*60 {
		t.Errorf("MaxAge = %d, want 30 days", c.MaxAge)
	}
	sess, err := ss.GetByToken(c.Value)
	if err != nil || sess == nil {
		t.Fatalf("session not stored: %v", err)
	}

	u, _ := us.GetByUsername("alice")
	if u == nil || u.PasswordHash == "s3cret-pass" {
		t.Error("password must be stored hashed")
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	h, us, _ := setupAuthHandler(t)
	us.Create("alice", "hash")

	req := newRequest(t, "POST", "/api/auth/signup", map[string]string{"username": "alice", "password": "s3cret-pass"}, 0)
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestSignupRejectsShortPassword(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	req := newRequest(t, "POST", "/api/auth/signup", map[string]string{"username": "alice", "password": "short"}, 0)
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLoginFormPost(t *testing.T) {
	h, us, _ := setupAuthHandler(t)
	hash, _ := auth.HashPassword("s3cret-pass")
	us.Create("bob", hash)

	form := url.Values{"username": {"bob"}, "password": {"s3cret-pass"}}
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	sessionCookie(t, rec)
}

func TestLoginWrongPassword(t *testing.T) {
	h, us, _ := setupAuthHandler(t)
	hash, _ := auth.HashPassword("s3cret-pass")
	us.Create("bob", hash)

	req := newRequest(t, "POST", "/api/auth/login", map[string]string{"username": "bob", "password": "nope-nope"}, 0)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	h, _, _ := setupAuthHandler(t)

	req := newRequest(t, "POST", "/api/auth/login", map[string]string{"username": "ghost", "password": "s3cret-pass"}, 0)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	h, us, ss := setupAuthHandler(t)
	u, _ := us.Create("carol", "hash")
	sess, _ := ss.Create(u.ID)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got, _ := ss.GetByToken(sess.Token); got != nil {
		t.Error("session should be deleted")
	}
	if c := sessionCookie(t, rec); c.MaxAge >= 0 {
		t.Errorf("cookie MaxAge = %d, want negative", c.MaxAge)
	}
}

func TestChangePassword(t *testing.T) {
	h, us, ss := setupAuthHandler(t)
	hash, _ := auth.HashPassword("old-password")
	u, _ := us.Create("dave", hash)
	sess, _ := ss.Create(u.ID)

	body := map[string]string{
		"current_password": "old-password",
		"new_password":     "new-password",
		"confirm_password": "new-password",
	}
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, newRequest(t, "POST", "/api/auth/password", body, u.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	updated, _ := us.GetByID(u.ID)
	if !auth.CheckPassword(updated.PasswordHash, "new-password") {
		t.Error("new password should match")
	}
	if got, _ := ss.GetByToken(sess.Token); got != nil {
		t.Error("existing sessions should be revoked")
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	h, us, _ := setupAuthHandler(t)
	hash, _ := auth.HashPassword("old-password")
	u, _ := us.Create("erin", hash)

	body := map[string]string{
		"current_password": "guess-guess",
		"new_password":     "new-password",
		"confirm_password": "new-password",
	}
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, newRequest(t, "POST", "/api/auth/password", body, u.ID))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestChangePasswordMismatch(t *testing.T) {
	h, us, _ := setupAuthHandler(t)
	hash, _ := auth.HashPassword("old-password")
	u, _ := us.Create("frank", hash)

	body := map[string]string{
		"current_password": "old-password",
		"new_password":     "new-password",
		"confirm_password": "other-password",
	}
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, newRequest(t, "POST", "/api/auth/password", body, u.ID))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestMe(t *testing.T) {
	h, us, _ := setupAuthHandler(t)
	u, _ := us.Create("gina", "hash")

	rec := httptest.NewRecorder()
	h.Me(rec, newRequest(t, "GET", "/api/auth/me", nil, u.ID))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got model.User
	decodeBody(t, rec, &got)
	if got.ID != u.ID {
		t.Errorf("id = %d, want %d", got.ID, u.ID)
	}
}
