// Package searches provides session-gated CRUD for saved search
// configurations.
package searches

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/epitopelab/bindscope/internal/session"
	"github.com/epitopelab/bindscope/internal/state"
	"github.com/epitopelab/bindscope/internal/ui/templates"
)

// Handlers serves the saved-searches feature.
type Handlers struct {
	store    state.Store
	sessions session.Provider
	log      *slog.Logger
}

// NewHandlers creates the searches feature handlers.
func NewHandlers(store state.Store, sessions session.Provider, log *slog.Logger) *Handlers {
	return &Handlers{store: store, sessions: sessions, log: log}
}

type pageData struct {
	LoggedIn bool
	Error    string
	Searches []*state.SavedSearch
}

// Page lists saved searches, or the sign-in hint when no session exists.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	data := pageData{}
	token, _ := h.sessions.Token(r)
	data.LoggedIn = token != ""

	if data.LoggedIn {
		searches, err := h.store.ListSearches()
		if err != nil {
			h.log.Error("failed to list searches", "error", err)
			data.Error = "Could not load saved searches."
		}
		data.Searches = searches
	}
	templates.Page(w, "searches-page", data)
}

// requireSession rejects requests without a session token.
func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) bool {
	token, _ := h.sessions.Token(r)
	if token == "" {
		http.Error(w, "sign in required", http.StatusUnauthorized)
		return false
	}
	return true
}

// Create saves a new search from the form.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lenMin, _ := strconv.Atoi(r.PostForm.Get("length_min"))
	lenMax, _ := strconv.Atoi(r.PostForm.Get("length_max"))
	search := &state.SavedSearch{
		Name:         strings.TrimSpace(r.PostForm.Get("name")),
		ToolGroup:    r.PostForm.Get("tool_group"),
		Method:       r.PostForm.Get("method"),
		Alleles:      strings.TrimSpace(r.PostForm.Get("alleles")),
		LengthMin:    lenMin,
		LengthMax:    lenMax,
		SequenceText: r.PostForm.Get("sequence_text"),
	}
	if search.Name == "" {
		http.Error(w, "name is required", http.StatusUnprocessableEntity)
		return
	}

	// Saving under an existing name replaces that search.
	if err := h.upsert(search); err != nil {
		h.log.Error("failed to save search", "error", err)
		http.Error(w, "could not save search", http.StatusInternalServerError)
		return
	}
	h.log.Info("search saved", "id", search.ID, "name", search.Name)
	http.Redirect(w, r, "/searches", http.StatusSeeOther)
}

func (h *Handlers) upsert(search *state.SavedSearch) error {
	existing, err := h.store.ListSearches()
	if err != nil {
		return err
	}
	for _, s := range existing {
		if s.Name == search.Name {
			search.ID = s.ID
			return h.store.UpdateSearch(search)
		}
	}
	return h.store.CreateSearch(search)
}

// Delete removes a saved search.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteSearch(id); err != nil && !errors.Is(err, state.ErrNotFound) {
		h.log.Error("failed to delete search", "id", id, "error", err)
		http.Error(w, "could not delete search", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/searches", http.StatusSeeOther)
}

// Load redirects to the prediction form prefilled from a saved search.
func (h *Handlers) Load(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	http.Redirect(w, r, "/?search="+id, http.StatusSeeOther)
}
