package web

import (
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/mizutanik/postbox/internal/session"
)

// ErrorContent fills the error page.
type ErrorContent struct {
	Heading string
	Detail  string
}

// NewPageData assembles the template envelope for a request. This is the
// single point where pending flashes are drained, so a flash renders on
// the first page after it was queued and never again.
func NewPageData(w http.ResponseWriter, r *http.Request, sm *session.Manager, title string, content any) PageData {
	user, _ := sm.CurrentUser(r)
	return PageData{
		Title:     title,
		Flashes:   sm.Flashes(w, r),
		CSRFField: csrf.TemplateField(r),
		User:      user,
		Content:   content,
	}
}
