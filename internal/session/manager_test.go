package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazari03/pyetdoktorin-sessions/internal/audit"
	"github.com/lazari03/pyetdoktorin-sessions/internal/audit/auditmock"
	"github.com/lazari03/pyetdoktorin-sessions/internal/config"
	"github.com/lazari03/pyetdoktorin-sessions/internal/identity"
	"github.com/lazari03/pyetdoktorin-sessions/internal/identity/identitymock"
	"github.com/lazari03/pyetdoktorin-sessions/internal/serviceerr"
	"github.com/lazari03/pyetdoktorin-sessions/internal/session"
	"github.com/lazari03/pyetdoktorin-sessions/internal/session/sessionmock"
)

const (
	testAssertion = "assertion-u1"
	testSubjectID = "u1"
)

func testManagerConfig() *config.Session {
	return &config.Session{
		TTL:             12 * time.Hour,
		IdleTimeout:     30 * time.Minute,
		RefreshInterval: 60 * time.Second,
		SigningKey: commoncfg.SourceRef{
			Source: "embedded",
			Value:  testSigningKey,
		},
		CredentialCookieTemplate: config.CookieTemplate{
			Name:     "__Host-Http-Session",
			Path:     "/",
			Secure:   true,
			HTTPOnly: true,
			SameSite: config.CookieSameSiteLax,
		},
		RoleCookieTemplate: config.CookieTemplate{
			Name:     "role",
			Path:     "/",
			Secure:   true,
			SameSite: config.CookieSameSiteLax,
		},
		ActivityCookieTemplate: config.CookieTemplate{
			Name:     "last-activity",
			Path:     "/",
			Secure:   true,
			SameSite: config.CookieSameSiteLax,
		},
	}
}

func newTestManager(t *testing.T, at time.Time, opts ...identitymock.VerifierOption) (*session.Manager, *auditmock.Recorder) {
	t.Helper()

	if opts == nil {
		opts = []identitymock.VerifierOption{
			identitymock.WithSubject(testAssertion, identity.Subject{ID: testSubjectID, Role: "doctor"}),
		}
	}

	recorder := auditmock.NewRecorder()
	m, err := session.NewManager(testManagerConfig(), identitymock.NewVerifier(opts...), sessionmock.NewGuard(), recorder)
	require.NoError(t, err)
	m.SetClock(func() time.Time { return at })

	return m, recorder
}

func decodeCredential(t *testing.T, raw string) session.Session {
	t.Helper()

	codec, err := session.NewCodec([]byte(testSigningKey))
	require.NoError(t, err)

	s, err := codec.Decode(raw)
	require.NoError(t, err)

	return s
}

func TestManager_Establish(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		verifier  []identitymock.VerifierOption
		assertion string
		errAssert assert.ErrorAssertionFunc
	}{
		{
			name: "Success",
			verifier: []identitymock.VerifierOption{
				identitymock.WithSubject(testAssertion, identity.Subject{ID: testSubjectID, Role: "doctor"}),
			},
			assertion: testAssertion,
			errAssert: assert.NoError,
		},
		{
			name:      "Empty assertion",
			assertion: "",
			errAssert: assert.Error,
		},
		{
			name: "Verifier rejects",
			verifier: []identitymock.VerifierOption{
				identitymock.WithVerifyError(errors.New("assertion expired")),
			},
			assertion: testAssertion,
			errAssert: assert.Error,
		},
		{
			name: "Role outside the closed set",
			verifier: []identitymock.VerifierOption{
				identitymock.WithSubject(testAssertion, identity.Subject{ID: testSubjectID, Role: "superuser"}),
			},
			assertion: testAssertion,
			errAssert: assert.Error,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t, t0, tt.verifier...)

			cookies, err := m.Establish(t.Context(), tt.assertion)

			if !tt.errAssert(t, err) || err != nil {
				assert.ErrorIs(t, err, serviceerr.ErrInvalidAssertion)
				// A failed establishment issues nothing that outlives the
				// response.
				for _, c := range []any{cookies.Credential, cookies.Role, cookies.Activity} {
					assert.Nil(t, c)
				}

				return
			}

			s := decodeCredential(t, cookies.Credential.Value)
			assert.Equal(t, testSubjectID, s.SubjectID)
			assert.Equal(t, session.RoleDoctor, s.Role)
			assert.Equal(t, t0, s.IssuedAt)
			assert.Equal(t, t0, s.LastActivityAt)
			assert.Equal(t, t0, s.LastRefreshAt)

			assert.Equal(t, int(12*time.Hour/time.Second), cookies.Credential.MaxAge)
			assert.Equal(t, "doctor", cookies.Role.Value)
			assert.Equal(t, int(12*time.Hour/time.Second), cookies.Role.MaxAge)
			assert.Equal(t, "1748768400", cookies.Activity.Value)
			assert.Equal(t, int(30*time.Minute/time.Second), cookies.Activity.MaxAge)
		})
	}
}

func TestManager_EstablishRejectsReplayedAssertion(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m, recorder := newTestManager(t, t0)

	_, err := m.Establish(t.Context(), testAssertion)
	require.NoError(t, err)

	_, err = m.Establish(t.Context(), testAssertion)
	assert.ErrorIs(t, err, serviceerr.ErrInvalidAssertion)

	kinds := eventKinds(recorder)
	assert.Contains(t, kinds, audit.EventLoginFailed)
}

func TestManager_EstablishSurvivesGuardOutage(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	recorder := auditmock.NewRecorder()
	verifier := identitymock.NewVerifier(
		identitymock.WithSubject(testAssertion, identity.Subject{ID: testSubjectID, Role: "patient"}),
	)
	guard := sessionmock.NewGuard(sessionmock.WithFirstUseError(errors.New("valkey unreachable")))

	m, err := session.NewManager(testManagerConfig(), verifier, guard, recorder)
	require.NoError(t, err)
	m.SetClock(func() time.Time { return t0 })

	cookies, err := m.Establish(t.Context(), testAssertion)
	require.NoError(t, err)
	assert.NotNil(t, cookies.Credential)
}

func TestManager_ValidateAndTouch(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m, _ := newTestManager(t, t0)

	established, err := m.Establish(t.Context(), testAssertion)
	require.NoError(t, err)

	tests := []struct {
		name      string
		at        time.Time
		raw       string
		wantErr   error
		wantTouch time.Time
	}{
		{
			name:      "Immediately after establishment",
			at:        t0,
			raw:       established.Credential.Value,
			wantTouch: t0,
		},
		{
			name:      "Inside the idle window",
			at:        t0.Add(29 * time.Minute),
			raw:       established.Credential.Value,
			wantTouch: t0.Add(29 * time.Minute),
		},
		{
			name:    "Past the idle window",
			at:      t0.Add(31 * time.Minute),
			raw:     established.Credential.Value,
			wantErr: serviceerr.ErrSessionExpired,
		},
		{
			name:    "Missing credential",
			at:      t0,
			raw:     "",
			wantErr: serviceerr.ErrDecode,
		},
		{
			name:    "Garbage credential",
			at:      t0,
			raw:     "garbage",
			wantErr: serviceerr.ErrDecode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.SetClock(func() time.Time { return tt.at })

			s, cookies, err := m.ValidateAndTouch(t.Context(), tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, testSubjectID, s.SubjectID)
			assert.Equal(t, session.RoleDoctor, s.Role)
			assert.Equal(t, t0, s.IssuedAt)
			assert.Equal(t, tt.wantTouch, s.LastActivityAt)

			// The re-issued credential carries the advanced activity marker.
			reissued := decodeCredential(t, cookies.Credential.Value)
			assert.Equal(t, tt.wantTouch, reissued.LastActivityAt)
			assert.Equal(t, t0, reissued.LastRefreshAt)
		})
	}
}

func TestManager_Refresh(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m, _ := newTestManager(t, t0)

	established, err := m.Establish(t.Context(), testAssertion)
	require.NoError(t, err)
	s := decodeCredential(t, established.Credential.Value)

	// Too soon after establishment: throttled, no new credential.
	m.SetClock(func() time.Time { return t0.Add(30 * time.Second) })
	decision, err := m.Refresh(t.Context(), s)
	require.NoError(t, err)
	assert.False(t, decision.Granted)
	assert.Nil(t, decision.Cookies.Credential)

	// Past the interval: granted, origin preserved.
	t1 := t0.Add(61 * time.Second)
	m.SetClock(func() time.Time { return t1 })
	decision, err = m.Refresh(t.Context(), s)
	require.NoError(t, err)
	require.True(t, decision.Granted)

	refreshed := decodeCredential(t, decision.Cookies.Credential.Value)
	assert.Equal(t, t0, refreshed.IssuedAt)
	assert.Equal(t, t1, refreshed.LastRefreshAt)
	assert.Equal(t, t1, refreshed.LastActivityAt)

	// The granted refresh re-arms the throttle.
	m.SetClock(func() time.Time { return t1.Add(30 * time.Second) })
	decision, err = m.Refresh(t.Context(), refreshed)
	require.NoError(t, err)
	assert.False(t, decision.Granted)
}

func TestManager_InvalidateIsIdempotent(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m, _ := newTestManager(t, t0)

	first := m.Invalidate()
	second := m.Invalidate()
	assert.Equal(t, first, second)

	for name, c := range map[string]*int{
		"credential": &first.Credential.MaxAge,
		"role":       &first.Role.MaxAge,
		"activity":   &first.Activity.MaxAge,
	} {
		assert.Equalf(t, -1, *c, "%s cookie must be expired", name)
	}

	// A cleared credential can never decode back into a session.
	codec, err := session.NewCodec([]byte(testSigningKey))
	require.NoError(t, err)
	_, err = codec.Decode(first.Credential.Value)
	assert.ErrorIs(t, err, serviceerr.ErrDecode)
}

func TestManager_EndToEnd(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m, recorder := newTestManager(t, t0)

	established, err := m.Establish(t.Context(), testAssertion)
	require.NoError(t, err)

	s, _, err := m.ValidateAndTouch(t.Context(), established.Credential.Value)
	require.NoError(t, err)
	assert.Equal(t, "u1", s.SubjectID)
	assert.Equal(t, session.RoleDoctor, s.Role)

	cleared := m.Invalidate()
	_, _, err = m.ValidateAndTouch(t.Context(), cleared.Credential.Value)
	assert.ErrorIs(t, err, serviceerr.ErrDecode)

	assert.Contains(t, eventKinds(recorder), audit.EventSessionEstablished)
}

func eventKinds(recorder *auditmock.Recorder) []audit.EventKind {
	events := recorder.Events()
	kinds := make([]audit.EventKind, 0, len(events))
	for _, event := range events {
		kinds = append(kinds, event.Kind)
	}

	return kinds
}
