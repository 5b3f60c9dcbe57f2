/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/oauth2"
)

const stateCookieName = "pixeltunes_state"

// TokenExchanger trades an authorization code for a token.
type TokenExchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

func serveLogin(cfg *Config, oauth TokenExchanger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		_ = getOrSetSessionID(cfg, w, r)

		state := uuid.NewString()

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     cfg.prefix + "/",
			MaxAge:   int((10 * time.Minute).Seconds()),
			HttpOnly: true,
			Secure:   cfg.scheme() == "https",
			SameSite: http.SameSiteLaxMode,
		})

		noCache(w)

		logf(cfg, "AUTH: Redirecting %s to authorization", realIP(r))

		http.Redirect(w, r, oauth.AuthCodeURL(state), http.StatusFound)
	}
}

func serveCallback(cfg *Config, oauth TokenExchanger, sessions *Sessions) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		securityHeaders(cfg, w)
		noCache(w)

		fail := func(status int, err error) {
			logf(cfg, "AUTH: Callback from %s failed: %v", realIP(r), err)

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(status)

			_, _ = io.WriteString(w, newPage(cfg, "Sign-in Failed", "Sign-in failed. Click to try again."))
		}

		id := sessionID(r)
		if id == "" {
			fail(http.StatusBadRequest, ErrNoSession)

			return
		}

		q := r.URL.Query()

		if e := q.Get("error"); e != "" {
			fail(http.StatusForbidden, fmt.Errorf("authorization denied: %s", e))

			return
		}

		state, err := r.Cookie(stateCookieName)
		if err != nil || state.Value == "" || state.Value != q.Get("state") {
			fail(http.StatusBadRequest, ErrBadState)

			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:   stateCookieName,
			Path:   cfg.prefix + "/",
			MaxAge: -1,
		})

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		tok, err := oauth.Exchange(ctx, q.Get("code"))
		if err != nil {
			fail(http.StatusBadGateway, fmt.Errorf("token exchange: %w", err))

			return
		}

		sessions.getHub(id).authenticate(tok.AccessToken)

		logf(cfg, "AUTH: Session %s signed in from %s", id, realIP(r))

		http.Redirect(w, r, cfg.prefix+"/", http.StatusFound)
	}
}

func serveLogout(cfg *Config, sessions *Sessions) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if id := sessionID(r); id != "" {
			sessions.end(id)
		}

		http.SetCookie(w, &http.Cookie{
			Name:   sessionCookieName,
			Path:   cfg.prefix + "/",
			MaxAge: -1,
		})

		noCache(w)

		http.Redirect(w, r, cfg.prefix+"/", http.StatusFound)
	}
}
