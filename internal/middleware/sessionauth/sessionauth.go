// Package sessionauth guards HTTP handlers behind a valid session. It
// decodes the credential cookie, enforces the idle window, re-issues the
// touched cookies and places the session into the request context.
package sessionauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/lazari03/pyetdoktorin-sessions/internal/serviceerr"
	"github.com/lazari03/pyetdoktorin-sessions/internal/session"
)

type contextKey int

const sessionContextKey contextKey = iota

const (
	ReasonExpired         = "expired"
	ReasonUnauthenticated = "unauthenticated"
)

// SessionFromContext returns the session placed by Middleware.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(session.Session)
	return s, ok
}

// Middleware rejects requests without a live session. An expired session
// answers with clearing cookies so the client sheds its stale state; a
// missing or undecodable credential is indistinguishable from no session at
// all. On success the session is touched and, when the throttle allows,
// refreshed before the next handler runs.
func Middleware(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			cookie, err := r.Cookie(manager.CredentialCookieName())
			if err != nil {
				Deny(w, ReasonUnauthenticated)
				return
			}

			s, cookies, err := manager.ValidateAndTouch(ctx, cookie.Value)
			switch {
			case errors.Is(err, serviceerr.ErrSessionExpired):
				manager.Invalidate().Apply(w)
				Deny(w, ReasonExpired)

				return
			case err != nil:
				slogctx.Warn(ctx, "Rejecting an undecodable session credential", "error", err)
				Deny(w, ReasonUnauthenticated)

				return
			}

			if decision, err := manager.Refresh(ctx, s); err == nil && decision.Granted {
				cookies = decision.Cookies
			}

			cookies.Apply(w)

			ctx = context.WithValue(ctx, sessionContextKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Deny writes the 401 answer shared by every guarded route.
func Deny(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"reason": reason})
}
