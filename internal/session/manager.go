package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	slogctx "github.com/veqryn/slog-context"

	"github.com/lazari03/pyetdoktorin-sessions/internal/audit"
	"github.com/lazari03/pyetdoktorin-sessions/internal/config"
	"github.com/lazari03/pyetdoktorin-sessions/internal/identity"
	"github.com/lazari03/pyetdoktorin-sessions/internal/serviceerr"
)

// CookieSet is the wire representation of a session: the trusted credential
// plus the role and last-activity hint cookies. Only the credential is ever
// consulted for authorization; the other two exist for cheap client-side
// checks.
type CookieSet struct {
	Credential *http.Cookie
	Role       *http.Cookie
	Activity   *http.Cookie
}

// Apply attaches every cookie of the set to the response.
func (cs CookieSet) Apply(w http.ResponseWriter) {
	for _, c := range []*http.Cookie{cs.Credential, cs.Role, cs.Activity} {
		if c != nil {
			http.SetCookie(w, c)
		}
	}
}

// RefreshDecision is the outcome of a refresh attempt. A throttled attempt
// is a no-op, not an error: the existing credential stays valid until its
// own expiry.
type RefreshDecision struct {
	Granted bool
	Cookies CookieSet
}

// Manager orchestrates the verifier, the codec and the lifecycle policies.
// It performs no I/O of its own outside of Establish; each request carries
// its full session state, so concurrent requests from the same principal
// need no coordination.
type Manager struct {
	verifier identity.Verifier
	codec    *Codec
	guard    ReplayGuard
	audit    audit.Recorder

	sessionTTL      time.Duration
	idleTimeout     time.Duration
	refreshInterval time.Duration

	credentialCookieTemplate config.CookieTemplate
	roleCookieTemplate       config.CookieTemplate
	activityCookieTemplate   config.CookieTemplate

	now func() time.Time
}

func NewManager(
	cfg *config.Session,
	verifier identity.Verifier,
	guard ReplayGuard,
	recorder audit.Recorder,
) (*Manager, error) {
	signingKey, err := commoncfg.LoadValueFromSourceRef(cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("loading signing key from source ref: %w", err)
	}

	codec, err := NewCodec([]byte(signingKey))
	if err != nil {
		return nil, fmt.Errorf("creating credential codec: %w", err)
	}

	return &Manager{
		verifier:                 verifier,
		codec:                    codec,
		guard:                    guard,
		audit:                    recorder,
		sessionTTL:               cfg.TTL,
		idleTimeout:              cfg.IdleTimeout,
		refreshInterval:          cfg.RefreshInterval,
		credentialCookieTemplate: cfg.CredentialCookieTemplate,
		roleCookieTemplate:       cfg.RoleCookieTemplate,
		activityCookieTemplate:   cfg.ActivityCookieTemplate,
		now:                      time.Now,
	}, nil
}

// CredentialCookieName tells callers which request cookie carries the
// trusted credential.
func (m *Manager) CredentialCookieName() string {
	return m.credentialCookieTemplate.Name
}

// Establish exchanges an identity assertion for a fresh session. A fresh
// session is minted even when a previous credential accompanies the request,
// so a login can never be fixated onto an attacker-chosen session.
func (m *Manager) Establish(ctx context.Context, assertion string) (CookieSet, error) {
	if assertion == "" {
		return CookieSet{}, serviceerr.ErrInvalidAssertion
	}

	subject, err := m.verifier.Verify(ctx, assertion)
	if err != nil {
		m.record(ctx, audit.EventLoginFailed, "", "verifier rejected assertion")
		return CookieSet{}, errors.Join(serviceerr.ErrInvalidAssertion, err)
	}

	role, ok := ParseRole(subject.Role)
	if !ok {
		m.record(ctx, audit.EventLoginFailed, subject.ID, "unknown role "+subject.Role)
		return CookieSet{}, serviceerr.ErrInvalidAssertion
	}

	if m.guard != nil {
		first, err := m.guard.FirstUse(ctx, assertionDigest(assertion), m.sessionTTL)
		switch {
		case err != nil:
			// A guard outage fails open: login availability outranks replay
			// strictness here.
			slogctx.Warn(ctx, "Replay guard unavailable, accepting assertion unchecked", "error", err)
		case !first:
			m.record(ctx, audit.EventLoginFailed, subject.ID, "assertion replayed")
			return CookieSet{}, serviceerr.ErrInvalidAssertion
		}
	}

	now := m.now().UTC().Truncate(time.Second)
	s := Session{
		SubjectID:      subject.ID,
		Role:           role,
		IssuedAt:       now,
		LastActivityAt: now,
		LastRefreshAt:  now,
	}

	cookies, err := m.issue(s)
	if err != nil {
		return CookieSet{}, err
	}

	m.record(ctx, audit.EventSessionEstablished, subject.ID, string(role))
	slogctx.Info(ctx, "Established a session", "subject_id", subject.ID, "role", role)

	return cookies, nil
}

// ValidateAndTouch decodes the credential, enforces the idle window and
// advances the session's activity marker. The returned CookieSet re-issues
// the touched state; the caller attaches it to the response.
func (m *Manager) ValidateAndTouch(ctx context.Context, rawCredential string) (Session, CookieSet, error) {
	s, err := m.codec.Decode(rawCredential)
	if err != nil {
		return Session{}, CookieSet{}, err
	}

	now := m.now().UTC().Truncate(time.Second)
	if IsExpired(s.LastActivityAt, now, m.idleTimeout) {
		m.record(ctx, audit.EventSessionExpired, s.SubjectID, "")
		return Session{}, CookieSet{}, serviceerr.ErrSessionExpired
	}

	s.LastActivityAt = now

	cookies, err := m.issue(s)
	if err != nil {
		return Session{}, CookieSet{}, err
	}

	return s, cookies, nil
}

// Refresh re-issues the credential with an advanced refresh marker, unless
// the previous granted refresh is too recent. Concurrent refreshes for the
// same principal are safe: each produces a valid, later-or-equal-dated
// session, whichever cookie the client keeps last wins.
func (m *Manager) Refresh(ctx context.Context, s Session) (RefreshDecision, error) {
	now := m.now().UTC().Truncate(time.Second)
	if ShouldThrottle(s.LastRefreshAt, now, m.refreshInterval) {
		return RefreshDecision{}, nil
	}

	s.LastRefreshAt = now
	s.LastActivityAt = now
	// IssuedAt stays untouched: refresh extends a session, it never resets
	// its origin.

	cookies, err := m.issue(s)
	if err != nil {
		return RefreshDecision{}, err
	}

	m.record(ctx, audit.EventRefreshGranted, s.SubjectID, "")

	return RefreshDecision{Granted: true, Cookies: cookies}, nil
}

// Invalidate returns clearing instructions for all three cookies. It is
// idempotent, succeeds with or without an active session, and never
// contacts the verifier: logout is purely local to the session transport.
func (m *Manager) Invalidate() CookieSet {
	return CookieSet{
		Credential: m.credentialCookieTemplate.ToClearingCookie(),
		Role:       m.roleCookieTemplate.ToClearingCookie(),
		Activity:   m.activityCookieTemplate.ToClearingCookie(),
	}
}

func (m *Manager) issue(s Session) (CookieSet, error) {
	raw, err := m.codec.Encode(s)
	if err != nil {
		return CookieSet{}, fmt.Errorf("encoding session credential: %w", err)
	}

	credential := m.credentialCookieTemplate.ToCookie(raw)
	credential.MaxAge = int(m.sessionTTL / time.Second)

	role := m.roleCookieTemplate.ToCookie(string(s.Role))
	role.MaxAge = int(m.sessionTTL / time.Second)

	activity := m.activityCookieTemplate.ToCookie(strconv.FormatInt(s.LastActivityAt.Unix(), 10))
	activity.MaxAge = int(m.idleTimeout / time.Second)

	return CookieSet{Credential: credential, Role: role, Activity: activity}, nil
}

func (m *Manager) record(ctx context.Context, kind audit.EventKind, subjectID, detail string) {
	if m.audit == nil {
		return
	}

	event := audit.Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		SubjectID: subjectID,
		Detail:    detail,
		At:        m.now().UTC(),
	}
	if err := m.audit.Record(ctx, event); err != nil {
		slogctx.Error(ctx, "Failed to record audit event", "kind", kind, "error", err)
	}
}

func assertionDigest(assertion string) string {
	sum := sha256.Sum256([]byte(assertion))
	return hex.EncodeToString(sum[:])
}
