// Package login manages the research-token session.
package login

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/epitopelab/bindscope/internal/session"
	"github.com/epitopelab/bindscope/internal/ui/templates"
)

// Handlers serves the session page.
type Handlers struct {
	sessions session.Provider
	log      *slog.Logger
}

// NewHandlers creates the login feature handlers.
func NewHandlers(sessions session.Provider, log *slog.Logger) *Handlers {
	return &Handlers{sessions: sessions, log: log}
}

type pageData struct {
	Token string
}

// Page shows the current session, or the sign-in form.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	token, _ := h.sessions.Token(r)
	templates.Page(w, "login-page", pageData{Token: token})
}

// Login stores the submitted token in the session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	token := strings.TrimSpace(r.PostForm.Get("token"))
	if token == "" {
		http.Error(w, "token is required", http.StatusUnprocessableEntity)
		return
	}
	if err := h.sessions.SetToken(w, r, token); err != nil {
		h.log.Error("failed to save session", "error", err)
		http.Error(w, "could not start session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/searches", http.StatusSeeOther)
}

// Logout drops the session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.log.Error("failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SetupRoutes registers the session routes.
func SetupRoutes(router chi.Router, sessions session.Provider, log *slog.Logger) {
	handlers := NewHandlers(sessions, log)
	router.Get("/login", handlers.Page)
	router.Post("/login", handlers.Login)
	router.Post("/logout", handlers.Logout)
}
