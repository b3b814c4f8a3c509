package middleware

import (
	"net/http"

	"github.com/mizutanik/postbox/internal/session"
)

// RequireAdmin sends visitors without an admin session to the login
// page. The queued flash explains why they landed there.
func RequireAdmin(sm *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := sm.CurrentUser(r); !ok {
				sm.AddFlash(w, r, session.FlashInfo, "Please sign in to view the inbox.")
				http.Redirect(w, r, "/admin/login", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
