// Package session wraps the cookie session store behind the two concerns
// the site actually has: one-time flash messages and the admin sign-in flag.
package session

import (
	"encoding/gob"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/mizutanik/postbox/internal/config"
)

// Flash levels rendered as CSS classes by the templates.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-time notification shown on the next rendered page.
type Flash struct {
	Level string
	Text  string
}

const userKey = "user"

func init() {
	gob.Register(Flash{})
}

// Manager owns the named cookie session used across the site.
type Manager struct {
	store *sessions.CookieStore
	name  string
}

// New builds the cookie store from the session configuration.
func New(cfg config.SessionConfig) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, errors.New("session: hash key is required")
	}

	var store *sessions.CookieStore
	if len(cfg.BlockKey) > 0 {
		store = sessions.NewCookieStore(cfg.HashKey, cfg.BlockKey)
	} else {
		store = sessions.NewCookieStore(cfg.HashKey)
	}

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	name := cfg.CookieName
	if name == "" {
		name = "postbox_session"
	}

	return &Manager{store: store, name: name}, nil
}

// get returns the request's session. A corrupted or foreign cookie decodes
// to a fresh session rather than an error.
func (m *Manager) get(r *http.Request) *sessions.Session {
	sess, _ := m.store.Get(r, m.name)
	return sess
}

// AddFlash queues a one-time message for the next rendered page.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, level, text string) error {
	sess := m.get(r)
	sess.AddFlash(Flash{Level: level, Text: text})
	return sess.Save(r, w)
}

// Flashes drains and returns the queued messages. Draining is persisted
// immediately so each flash renders exactly once.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	sess := m.get(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}

	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}

	if err := sess.Save(r, w); err != nil {
		// The messages still render; they may reappear once.
		return out
	}
	return out
}

// SignIn records the authenticated admin on the session.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, username string) error {
	sess := m.get(r)
	sess.Values[userKey] = username
	return sess.Save(r, w)
}

// SignOut removes the admin flag but keeps the session alive so the
// sign-out flash can still be delivered.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess := m.get(r)
	delete(sess.Values, userKey)
	return sess.Save(r, w)
}

// CurrentUser returns the signed-in admin, if any.
func (m *Manager) CurrentUser(r *http.Request) (string, bool) {
	sess := m.get(r)
	username, ok := sess.Values[userKey].(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}
