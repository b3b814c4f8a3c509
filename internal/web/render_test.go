package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mizutanik/postbox/internal/session"
)

func TestNewRendererParsesAllPages(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	for _, page := range []string{"index", "home", "about", "user", "contact", "thanks", "login", "inbox", "error"} {
		if _, ok := r.pages[page]; !ok {
			t.Errorf("page %q not parsed", page)
		}
	}
	if _, ok := r.pages["base"]; ok {
		t.Error("base layout should not be registered as a page")
	}
	if _, ok := r.pages["_form"]; ok {
		t.Error("partials should not be registered as pages")
	}
}

func TestRenderWritesPage(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, "home", PageData{Title: "Home"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<title>Home · Postbox</title>") {
		t.Error("body missing page title")
	}
	if !strings.Contains(body, "Hello, Home!") {
		t.Error("body missing home page content")
	}
}

func TestRenderIncludesFlashes(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, "home", PageData{
		Title:   "Home",
		Flashes: []session.Flash{{Level: session.FlashSuccess, Text: "It worked."}},
	})

	body := rec.Body.String()
	if !strings.Contains(body, `class="flash flash-success"`) {
		t.Error("body missing flash level class")
	}
	if !strings.Contains(body, "It worked.") {
		t.Error("body missing flash text")
	}
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, "no-such-page", PageData{})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestRenderEscapesContent(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	rec := httptest.NewRecorder()
	r.Render(rec, http.StatusOK, "user", PageData{
		Title:   "User",
		Content: map[string]string{"Name": "<script>alert(1)</script>"},
	})

	body := rec.Body.String()
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("user-supplied name rendered unescaped")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("expected escaped name in body")
	}
}

func TestStaticHandlerServesStylesheet(t *testing.T) {
	h, err := StaticHandler()
	if err != nil {
		t.Fatalf("StaticHandler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/style.css", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), ".flash-success") {
		t.Error("stylesheet body missing expected rule")
	}
}
