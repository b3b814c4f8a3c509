// Package web renders the site's HTML pages from an embedded template set
// and serves the embedded static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/mizutanik/postbox/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

const baseTemplate = "base.html"

// PageData is the envelope every template receives. Content carries the
// page-specific data.
type PageData struct {
	Title     string
	Flashes   []session.Flash
	CSRFField template.HTML
	User      string
	Content   any
}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the base layout and shared partials against every
// page template. Parse failures surface at startup, not per request.
// Files whose name starts with "_" are partials, not pages.
func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	shared := []string{"templates/" + baseTemplate}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "_") {
			shared = append(shared, "templates/"+entry.Name())
		}
	}

	pages := make(map[string]*template.Template)
	for _, entry := range entries {
		name := entry.Name()
		if name == baseTemplate || strings.HasPrefix(name, "_") {
			continue
		}

		t, err := template.ParseFS(templatesFS, append(shared, "templates/"+name)...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[strings.TrimSuffix(name, ".html")] = t
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return &Renderer{pages: pages}, nil
}

// Render writes the page with the given status. The template executes into
// a buffer first so an execution error never produces a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) {
	t, ok := r.pages[page]
	if !ok {
		log.Printf("[web] unknown page template: %s", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, baseTemplate, data); err != nil {
		log.Printf("[web] render %s: %v", page, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[web] write %s: %v", page, err)
	}
}

// StaticHandler serves the embedded static assets.
func StaticHandler() (http.Handler, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	return http.FileServer(http.FS(sub)), nil
}
