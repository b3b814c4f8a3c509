package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/mizutanik/postbox/internal/config"
	"github.com/mizutanik/postbox/internal/feed"
	"github.com/mizutanik/postbox/internal/handler/admin"
	"github.com/mizutanik/postbox/internal/handler/contact"
	"github.com/mizutanik/postbox/internal/handler/pages"
	middlewarePkg "github.com/mizutanik/postbox/internal/middleware"
	"github.com/mizutanik/postbox/internal/model/message"
	"github.com/mizutanik/postbox/internal/session"
	"github.com/mizutanik/postbox/internal/web"
	"github.com/mizutanik/postbox/pkg/utils"
)

// NewRouter wires HTTP routes to the site's stores and services.
func NewRouter(cfg *config.Config, renderer *web.Renderer, sessions *session.Manager, store message.Store, hub *feed.Hub, limiter *middlewarePkg.RateLimiter) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.Server.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(csrf.Protect(cfg.CSRF.Key,
		csrf.Secure(cfg.CSRF.Secure),
		csrf.Path("/"),
		csrf.ErrorHandler(csrfFailureHandler(renderer, sessions)),
	))

	var limit func(http.Handler) http.Handler
	if limiter != nil {
		limit = limiter.Limit
	}

	pages.New(renderer, sessions).RegisterRoutes(r)
	contact.New(renderer, sessions, store, hub).RegisterRoutes(r, limit)

	if cfg.Admin.Enabled() {
		admin.New(renderer, sessions, store, hub, cfg.Admin).RegisterRoutes(r)
	} else {
		log.Printf("[router] admin credentials not configured, inbox disabled")
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"service":   "postbox",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	static, err := web.StaticHandler()
	if err != nil {
		return nil, err
	}
	r.Handle("/static/*", http.StripPrefix("/static/", static))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		data := web.NewPageData(w, req, sessions, "Not found", web.ErrorContent{
			Heading: "Page not found",
			Detail:  "There is nothing at this address.",
		})
		renderer.Render(w, http.StatusNotFound, "error", data)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		data := web.NewPageData(w, req, sessions, "Method not allowed", web.ErrorContent{
			Heading: "Method not allowed",
			Detail:  "That page does not accept this kind of request.",
		})
		renderer.Render(w, http.StatusMethodNotAllowed, "error", data)
	})

	return r, nil
}

// csrfFailureHandler renders the 403 page for requests whose CSRF token
// is missing or stale.
func csrfFailureHandler(renderer *web.Renderer, sessions *session.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[router] csrf rejection on %s %s: %v", r.Method, r.URL.Path, csrf.FailureReason(r))
		data := web.NewPageData(w, r, sessions, "Request blocked", web.ErrorContent{
			Heading: "Request blocked",
			Detail:  "The form's security token was missing or expired. Go back, reload the page, and try again.",
		})
		renderer.Render(w, http.StatusForbidden, "error", data)
	})
}
