// Package session manages the browser session cookie and the research
// token stored in it.
package session

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	cookieName = "bindscope"
	tokenKey   = "token"
)

// Provider reads and clears the caller's session token. Handlers depend on
// this interface so tests can substitute a fixed token.
type Provider interface {
	// Token returns the session token, or "" when not logged in.
	Token(r *http.Request) (string, error)
	// SetToken stores a token in the session.
	SetToken(w http.ResponseWriter, r *http.Request, token string) error
	// Clear drops the session.
	Clear(w http.ResponseWriter, r *http.Request) error
}

// CookieProvider implements Provider on a signed cookie store.
type CookieProvider struct {
	store sessions.Store
}

// NewCookieStore builds the signed cookie store used by the server.
func NewCookieStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(86400 * 30)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// NewCookieProvider wraps a session store as a Provider.
func NewCookieProvider(store sessions.Store) *CookieProvider {
	return &CookieProvider{store: store}
}

func (p *CookieProvider) Token(r *http.Request) (string, error) {
	sess, err := p.store.Get(r, cookieName)
	if err != nil {
		// A corrupt cookie reads as logged out.
		return "", nil
	}
	token, _ := sess.Values[tokenKey].(string)
	return token, nil
}

func (p *CookieProvider) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := p.store.Get(r, cookieName)
	sess.Values[tokenKey] = token
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (p *CookieProvider) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := p.store.Get(r, cookieName)
	sess.Options.MaxAge = -1
	delete(sess.Values, tokenKey)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
