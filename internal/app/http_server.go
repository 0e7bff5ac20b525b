// Package app wires the control transports, the device adapters and the HTTP surface together.
package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/frudas24/mirroragent/internal/session"
	"github.com/frudas24/mirroragent/internal/transport"
)

// Handler returns the HTTP routes. Websocket control handlers run with ctx.
func (a *App) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", a.handleState)
	mux.Handle("/ws/control", transport.NewWSServer(ctx, a.session, a.HandleControl, a.authorized, a.logger))
	if a.comp.Signaling != nil {
		mux.Handle("/ws/signal", a.comp.Signaling)
	}
	mux.HandleFunc("/favicon.ico", handleFavicon)
	return mux
}

// handleState returns the current session snapshot.
func (a *App) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !a.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.session.Snapshot())
}

// authorized checks the request token against the session.
func (a *App) authorized(r *http.Request) bool {
	return Authorizer(a.session)(r)
}

// Authorizer returns a request check accepting a bearer token or a token query parameter.
func Authorizer(sess *session.Session) func(*http.Request) bool {
	return func(r *http.Request) bool {
		return sess.Authorize(requestToken(r))
	}
}

// requestToken extracts the client token from the request.
func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

// handleFavicon avoids noisy 404s for the default browser request.
func handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
