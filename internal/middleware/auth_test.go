package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mizutanik/postbox/internal/config"
	"github.com/mizutanik/postbox/internal/session"
)

func testSessionManager(t *testing.T) *session.Manager {
	t.Helper()
	sm, err := session.New(config.SessionConfig{
		HashKey:    []byte("0123456789abcdef0123456789abcdef"),
		CookieName: "test_session",
		MaxAge:     3600,
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return sm
}

func TestRequireAdminRedirectsAnonymous(t *testing.T) {
	sm := testSessionManager(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("inner handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	RequireAdmin(sm)(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie carrying the flash")
	}
}

func TestRequireAdminPassesSignedIn(t *testing.T) {
	sm := testSessionManager(t)

	// Sign in on one response, replay the cookie on the gated request.
	signInRec := httptest.NewRecorder()
	signInReq := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
	if err := sm.SignIn(signInRec, signInReq, "admin"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	for _, c := range signInRec.Result().Cookies() {
		req.AddCookie(c)
	}

	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	RequireAdmin(sm)(inner).ServeHTTP(rec, req)

	if !called {
		t.Fatal("inner handler did not run for signed-in session")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
