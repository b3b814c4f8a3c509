// Package pages serves the static public pages of the site.
package pages

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mizutanik/postbox/internal/session"
	"github.com/mizutanik/postbox/internal/web"
)

// Handler renders the public pages.
type Handler struct {
	renderer *web.Renderer
	sessions *session.Manager
}

func New(renderer *web.Renderer, sessions *session.Manager) *Handler {
	return &Handler{
		renderer: renderer,
		sessions: sessions,
	}
}

// RegisterRoutes mounts the public page routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/home", h.handleHome)
	r.Get("/about", h.handleAbout)
	r.Get("/user/{name}", h.handleUser)
	r.Get("/thank_you", h.handleThankYou)
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "home", web.NewPageData(w, r, h.sessions, "Home", nil))
}

func (h *Handler) handleAbout(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "about", web.NewPageData(w, r, h.sessions, "About", nil))
}

type userContent struct {
	Name string
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.renderer.Render(w, http.StatusOK, "user", web.NewPageData(w, r, h.sessions, name, userContent{Name: name}))
}

// handleThankYou is the landing page of the submit redirect. The queued
// success flash renders here; without one the page still makes sense.
func (h *Handler) handleThankYou(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "thanks", web.NewPageData(w, r, h.sessions, "Thank you", nil))
}
