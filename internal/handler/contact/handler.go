// Package contact implements the contact form: render, validate,
// store, flash, redirect.
package contact

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mizutanik/postbox/internal/feed"
	"github.com/mizutanik/postbox/internal/forms"
	"github.com/mizutanik/postbox/internal/model/message"
	"github.com/mizutanik/postbox/internal/session"
	"github.com/mizutanik/postbox/internal/web"
)

// maxFormBytes caps the POST body well above the largest valid form.
const maxFormBytes = 64 << 10

// Pages that can host the form. The index doubles as the landing page.
const (
	indexPage   = "index"
	contactPage = "contact"
)

// Handler owns the contact form flow.
type Handler struct {
	renderer *web.Renderer
	sessions *session.Manager
	store    message.Store
	hub      *feed.Hub
}

func New(renderer *web.Renderer, sessions *session.Manager, store message.Store, hub *feed.Hub) *Handler {
	return &Handler{
		renderer: renderer,
		sessions: sessions,
		store:    store,
		hub:      hub,
	}
}

// RegisterRoutes mounts the form on the index and on /submit. Both
// accept GET and POST; the form posts back to the page it came from.
// A non-nil limit middleware wraps only the POST routes, so reading
// the form is never throttled.
func (h *Handler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Get("/", h.handleIndex)
	r.Get("/submit", h.handleForm)

	posts := r
	if limit != nil {
		posts = r.With(limit)
	}
	posts.Post("/", h.handleIndexSubmit)
	posts.Post("/submit", h.handleFormSubmit)
}

// formContent is the Content payload for every page hosting the form.
type formContent struct {
	Form   forms.ContactForm
	Errors forms.Errors
	Action string
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := web.NewPageData(w, r, h.sessions, "Postbox", formContent{Action: "/"})
	h.renderer.Render(w, http.StatusOK, indexPage, data)
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	data := web.NewPageData(w, r, h.sessions, "Contact", formContent{Action: "/submit"})
	h.renderer.Render(w, http.StatusOK, contactPage, data)
}

func (h *Handler) handleIndexSubmit(w http.ResponseWriter, r *http.Request) {
	h.processSubmit(w, r, indexPage, "Postbox", "/")
}

func (h *Handler) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	h.processSubmit(w, r, contactPage, "Contact", "/submit")
}

// processSubmit runs the shared POST flow. Validation failures re-render
// the originating page with field errors and the submitted values; a
// saved message queues a success flash and redirects to /thank_you with
// 303 See Other, so refreshing the thank-you page never replays the POST.
func (h *Handler) processSubmit(w http.ResponseWriter, r *http.Request, page, title, action string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request body too large.", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Malformed form body.", http.StatusBadRequest)
		return
	}

	form, err := forms.ParseContactForm(r.PostForm)
	if err != nil {
		log.Printf("[contact] decode form: %v", err)
		http.Error(w, "Malformed form body.", http.StatusBadRequest)
		return
	}

	fieldErrs, err := forms.Validate(form)
	if err != nil {
		log.Printf("[contact] validate form: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !fieldErrs.Valid() {
		content := formContent{Form: form, Errors: fieldErrs, Action: action}
		data := web.NewPageData(w, r, h.sessions, title, content)
		h.renderer.Render(w, http.StatusUnprocessableEntity, page, data)
		return
	}

	saved, err := h.store.Save(r.Context(), message.Message{
		Name:  form.Name,
		Email: form.Email,
		Body:  form.Body,
	})
	if err != nil {
		log.Printf("[contact] save message: %v", err)
		h.sessions.AddFlash(w, r, session.FlashError, "Something went wrong saving your message. Please try again.")
		content := formContent{Form: form, Action: action}
		data := web.NewPageData(w, r, h.sessions, title, content)
		h.renderer.Render(w, http.StatusInternalServerError, page, data)
		return
	}

	h.hub.Broadcast(saved)

	if err := h.sessions.AddFlash(w, r, session.FlashSuccess, "Thanks! Your message has been sent."); err != nil {
		log.Printf("[contact] queue flash: %v", err)
	}
	http.Redirect(w, r, "/thank_you", http.StatusSeeOther)
}
