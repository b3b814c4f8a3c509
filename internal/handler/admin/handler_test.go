package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mizutanik/postbox/internal/config"
	"github.com/mizutanik/postbox/internal/feed"
	"github.com/mizutanik/postbox/internal/model/message"
	"github.com/mizutanik/postbox/internal/session"
	"github.com/mizutanik/postbox/internal/web"
)

const (
	testUser     = "admin"
	testPassword = "correct horse"
)

type fixture struct {
	router   *chi.Mux
	sessions *session.Manager
	store    *message.MemoryStore
	hub      *feed.Hub
}

func setupAdmin(t *testing.T) *fixture {
	t.Helper()

	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	sm, err := session.New(config.SessionConfig{
		HashKey:    []byte("0123456789abcdef0123456789abcdef"),
		CookieName: "test_session",
		MaxAge:     3600,
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	store := message.NewMemoryStore()
	hub := feed.NewHub()
	t.Cleanup(hub.Close)

	r := chi.NewRouter()
	New(renderer, sm, store, hub, config.AdminConfig{
		Username:     testUser,
		PasswordHash: string(hash),
	}).RegisterRoutes(r)

	return &fixture{router: r, sessions: sm, store: store, hub: hub}
}

// carryCookies copies the response's cookies onto the next request,
// keeping only the last Set-Cookie per name like a browser would.
func carryCookies(t *testing.T, from *httptest.ResponseRecorder, to *http.Request) {
	t.Helper()
	latest := make(map[string]*http.Cookie)
	var order []string
	for _, c := range from.Result().Cookies() {
		if _, ok := latest[c.Name]; !ok {
			order = append(order, c.Name)
		}
		latest[c.Name] = c
	}
	for _, name := range order {
		to.AddCookie(latest[name])
	}
}

func login(t *testing.T, f *fixture, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	values := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginFormRenders(t *testing.T) {
	f := setupAdmin(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Admin login") {
		t.Error("login page missing heading")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := setupAdmin(t)

	rec := login(t, f, testUser, "wrong")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid username or password.") {
		t.Error("missing credential failure flash")
	}
}

func TestLoginWrongUsernameSameShape(t *testing.T) {
	f := setupAdmin(t)

	rec := login(t, f, "someone-else", testPassword)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid username or password.") {
		t.Error("username and password failures should be indistinguishable")
	}
}

func TestLoginMissingFields(t *testing.T) {
	f := setupAdmin(t)

	rec := login(t, f, "", "")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "This field is required.") {
		t.Error("missing required-field message")
	}
}

func TestLoginSuccessOpensInbox(t *testing.T) {
	f := setupAdmin(t)
	if _, err := f.store.Save(context.Background(), message.Message{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Body:  "Hello there",
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := login(t, f, testUser, testPassword)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin" {
		t.Errorf("Location = %q, want /admin", loc)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	carryCookies(t, rec, req)
	inbox := httptest.NewRecorder()
	f.router.ServeHTTP(inbox, req)

	if inbox.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", inbox.Code)
	}
	body := inbox.Body.String()
	if !strings.Contains(body, "Ada Lovelace") {
		t.Error("inbox missing stored message")
	}
	if !strings.Contains(body, `<span id="message-count">1</span>`) {
		t.Error("inbox missing message count")
	}
	if !strings.Contains(body, "Welcome back.") {
		t.Error("inbox missing sign-in flash")
	}
}

func TestInboxRequiresSession(t *testing.T) {
	f := setupAdmin(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}
}

func TestLoginFormRedirectsWhenSignedIn(t *testing.T) {
	f := setupAdmin(t)
	rec := login(t, f, testUser, testPassword)

	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	carryCookies(t, rec, req)
	again := httptest.NewRecorder()
	f.router.ServeHTTP(again, req)

	if again.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", again.Code)
	}
	if loc := again.Header().Get("Location"); loc != "/admin" {
		t.Errorf("Location = %q, want /admin", loc)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	f := setupAdmin(t)
	rec := login(t, f, testUser, testPassword)

	logoutReq := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	carryCookies(t, rec, logoutReq)
	logoutRec := httptest.NewRecorder()
	f.router.ServeHTTP(logoutRec, logoutReq)

	if logoutRec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", logoutRec.Code)
	}
	if loc := logoutRec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	carryCookies(t, logoutRec, req)
	after := httptest.NewRecorder()
	f.router.ServeHTTP(after, req)

	if after.Code != http.StatusFound {
		t.Fatalf("expected 302 after logout, got %d", after.Code)
	}
}

func TestInboxStoreFailure(t *testing.T) {
	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	sm, err := session.New(config.SessionConfig{
		HashKey:    []byte("0123456789abcdef0123456789abcdef"),
		CookieName: "test_session",
		MaxAge:     3600,
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	hub := feed.NewHub()
	t.Cleanup(hub.Close)

	r := chi.NewRouter()
	New(renderer, sm, brokenStore{}, hub, config.AdminConfig{Username: testUser, PasswordHash: "x"}).RegisterRoutes(r)

	signIn := httptest.NewRecorder()
	if err := sm.SignIn(signIn, httptest.NewRequest(http.MethodPost, "/admin/login", nil), testUser); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	carryCookies(t, signIn, req)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Inbox unavailable") {
		t.Error("missing error page heading")
	}
}

type brokenStore struct{}

func (brokenStore) Save(ctx context.Context, m message.Message) (message.Message, error) {
	return message.Message{}, context.DeadlineExceeded
}

func (brokenStore) List(ctx context.Context, limit int) ([]message.Message, error) {
	return nil, context.DeadlineExceeded
}

func (brokenStore) Count(ctx context.Context) (int, error) {
	return 0, context.DeadlineExceeded
}
