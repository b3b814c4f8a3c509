// Package admin serves the session-protected inbox of stored
// submissions and the admin login flow.
package admin

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/mizutanik/postbox/internal/config"
	"github.com/mizutanik/postbox/internal/feed"
	"github.com/mizutanik/postbox/internal/forms"
	"github.com/mizutanik/postbox/internal/middleware"
	"github.com/mizutanik/postbox/internal/model/message"
	"github.com/mizutanik/postbox/internal/session"
	"github.com/mizutanik/postbox/internal/web"
)

// maxLoginBytes caps the login POST body.
const maxLoginBytes = 4 << 10

// Handler owns the admin area. It is only mounted when admin
// credentials are configured.
type Handler struct {
	renderer *web.Renderer
	sessions *session.Manager
	store    message.Store
	hub      *feed.Hub
	cfg      config.AdminConfig
	upgrader websocket.Upgrader
}

func New(renderer *web.Renderer, sessions *session.Manager, store message.Store, hub *feed.Hub, cfg config.AdminConfig) *Handler {
	return &Handler{
		renderer: renderer,
		sessions: sessions,
		store:    store,
		hub:      hub,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the login pages and the guarded admin group.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/admin/login", h.handleLoginForm)
	r.Post("/admin/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(h.sessions))
		r.Get("/admin", h.handleInbox)
		r.Post("/admin/logout", h.handleLogout)
		r.Get("/admin/feed", h.handleFeed)
	})
}

type loginContent struct {
	Form   forms.LoginForm
	Errors forms.Errors
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.CurrentUser(r); ok {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	data := web.NewPageData(w, r, h.sessions, "Admin login", loginContent{})
	h.renderer.Render(w, http.StatusOK, "login", data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Malformed form body.", http.StatusBadRequest)
		return
	}

	form, err := forms.ParseLoginForm(r.PostForm)
	if err != nil {
		log.Printf("[admin] decode login form: %v", err)
		http.Error(w, "Malformed form body.", http.StatusBadRequest)
		return
	}

	fieldErrs, err := forms.Validate(form)
	if err != nil {
		log.Printf("[admin] validate login form: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !fieldErrs.Valid() {
		content := loginContent{Form: forms.LoginForm{Username: form.Username}, Errors: fieldErrs}
		data := web.NewPageData(w, r, h.sessions, "Admin login", content)
		h.renderer.Render(w, http.StatusUnprocessableEntity, "login", data)
		return
	}

	// Both checks always run so a wrong username costs the same as a
	// wrong password.
	usernameOK := subtle.ConstantTimeCompare([]byte(form.Username), []byte(h.cfg.Username)) == 1
	passwordErr := bcrypt.CompareHashAndPassword([]byte(h.cfg.PasswordHash), []byte(form.Password))
	if !usernameOK || passwordErr != nil {
		h.sessions.AddFlash(w, r, session.FlashError, "Invalid username or password.")
		content := loginContent{Form: forms.LoginForm{Username: form.Username}}
		data := web.NewPageData(w, r, h.sessions, "Admin login", content)
		h.renderer.Render(w, http.StatusUnauthorized, "login", data)
		return
	}

	if err := h.sessions.SignIn(w, r, form.Username); err != nil {
		log.Printf("[admin] sign in: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.sessions.AddFlash(w, r, session.FlashSuccess, "Welcome back.")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

type inboxContent struct {
	Messages []message.Message
	Count    int
}

func (h *Handler) handleInbox(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.store.List(r.Context(), 0)
	if err != nil {
		log.Printf("[admin] list messages: %v", err)
		h.renderError(w, r, "Inbox unavailable", "The stored messages could not be loaded. Try again shortly.")
		return
	}
	count, err := h.store.Count(r.Context())
	if err != nil {
		log.Printf("[admin] count messages: %v", err)
		count = len(msgs)
	}

	data := web.NewPageData(w, r, h.sessions, "Inbox", inboxContent{Messages: msgs, Count: count})
	h.renderer.Render(w, http.StatusOK, "inbox", data)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		log.Printf("[admin] sign out: %v", err)
	}
	h.sessions.AddFlash(w, r, session.FlashInfo, "You have been signed out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, heading, detail string) {
	data := web.NewPageData(w, r, h.sessions, heading, web.ErrorContent{Heading: heading, Detail: detail})
	h.renderer.Render(w, http.StatusInternalServerError, "error", data)
}
