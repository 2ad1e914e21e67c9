// Package audit keeps an append-only trail of session lifecycle events.
// Recording is best effort: a failed write is logged, never surfaced to the
// request that produced the event.
package audit

import (
	"context"
	"time"
)

type EventKind string

const (
	EventSessionEstablished EventKind = "session_established"
	EventSessionExpired     EventKind = "session_expired"
	EventRefreshGranted     EventKind = "refresh_granted"
	EventLoginFailed        EventKind = "login_failed"
	EventLogout             EventKind = "logout"
)

type Event struct {
	ID        string
	Kind      EventKind
	SubjectID string
	Detail    string
	At        time.Time
}

type Recorder interface {
	Record(ctx context.Context, event Event) error
}
