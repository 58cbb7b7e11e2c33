// Package auth sketches the GitHub OAuth2 login flow used to connect a
// reviewer's account for PR-review attribution, mirroring routes/auth.py.
// It never gates pipeline access; it is a login convenience only.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// Config holds the GitHub OAuth app credentials and the frontend
// redirect target.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	FrontendURL  string
}

// Handlers serves the /auth/github/login and /auth/github/callback
// routes.
type Handlers struct {
	oauthCfg *oauth2.Config
	frontend string
	logger   *zap.Logger
}

// NewHandlers constructs the OAuth2 config from cfg. Scopes mirror the
// original's "repo,user".
func NewHandlers(cfg Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"repo", "user"},
			Endpoint:     github.Endpoint,
		},
		frontend: cfg.FrontendURL,
		logger:   logger,
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Login redirects the browser to GitHub's authorize endpoint with a
// random CSRF state token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.oauthCfg.ClientID == "" {
		http.Error(w, "GitHub client id not configured", http.StatusInternalServerError)
		return
	}
	state, err := randomState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: state, HttpOnly: true, Path: "/"})
	http.Redirect(w, r, h.oauthCfg.AuthCodeURL(state), http.StatusFound)
}

// Callback exchanges the authorization code for an access token and
// redirects to the frontend carrying it, matching the original's
// redirect-with-token handoff.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")

	cookie, err := r.Cookie("oauth_state")
	if err != nil || cookie.Value != state {
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	token, err := h.oauthCfg.Exchange(context.Background(), code)
	if err != nil {
		h.logger.Warn("github oauth exchange failed", zap.Error(err))
		http.Error(w, "failed to retrieve access token", http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("%s?token=%s", h.frontend, token.AccessToken), http.StatusFound)
}
