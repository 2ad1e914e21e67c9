package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/lazari03/pyetdoktorin-sessions/internal/audit"
	"github.com/lazari03/pyetdoktorin-sessions/internal/middleware/sessionauth"
	"github.com/lazari03/pyetdoktorin-sessions/internal/serviceerr"
	"github.com/lazari03/pyetdoktorin-sessions/internal/session"
)

// sessionHandler serves the public session lifecycle routes.
type sessionHandler struct {
	manager  *session.Manager
	recorder audit.Recorder
}

type sessionInfoResponse struct {
	SubjectID      string    `json:"subject_id"`
	Role           string    `json:"role"`
	IssuedAt       time.Time `json:"issued_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// establish exchanges a bearer identity assertion for the session cookie
// set. Any previously presented credential is ignored: a login always mints
// a fresh session.
func (h *sessionHandler) establish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assertion, ok := bearerToken(r)
	if !ok {
		sessionauth.Deny(w, sessionauth.ReasonUnauthenticated)
		return
	}

	cookies, err := h.manager.Establish(ctx, assertion)
	if err != nil {
		if !errors.Is(err, serviceerr.ErrInvalidAssertion) {
			slogctx.Error(ctx, "Failed to establish a session", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

			return
		}

		sessionauth.Deny(w, sessionauth.ReasonUnauthenticated)

		return
	}

	cookies.Apply(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"result": "established"})
}

// current reports the session placed into the context by the sessionauth
// middleware.
func (h *sessionHandler) current(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionauth.SessionFromContext(r.Context())
	if !ok {
		sessionauth.Deny(w, sessionauth.ReasonUnauthenticated)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sessionInfoResponse{
		SubjectID:      s.SubjectID,
		Role:           string(s.Role),
		IssuedAt:       s.IssuedAt,
		LastActivityAt: s.LastActivityAt,
	})
}

// logout clears the cookie set. It succeeds no matter what the request
// carries; clearing an already cleared session is a no-op.
func (h *sessionHandler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The subject is recorded when the credential still decodes; an expired
	// or mangled credential logs out anonymously.
	subjectID := ""
	if cookie, err := r.Cookie(h.manager.CredentialCookieName()); err == nil {
		if s, _, err := h.manager.ValidateAndTouch(ctx, cookie.Value); err == nil {
			subjectID = s.SubjectID
		}
	}

	h.manager.Invalidate().Apply(w)

	if h.recorder != nil {
		event := audit.Event{
			ID:        uuid.NewString(),
			Kind:      audit.EventLogout,
			SubjectID: subjectID,
			At:        time.Now().UTC(),
		}
		if err := h.recorder.Record(ctx, event); err != nil {
			slogctx.Error(ctx, "Failed to record audit event", "kind", event.Kind, "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "

	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	return header[len(prefix):], true
}
