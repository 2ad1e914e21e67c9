// Package serviceerr defines the per-request outcomes of the session
// lifecycle. None of these is fatal to the process.
package serviceerr

import "errors"

// ErrInvalidAssertion covers verifier rejections, verifier timeouts and
// replayed assertions alike; no cookies are issued when it is returned.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

// ErrDecode marks a missing, malformed or tampered session credential.
// Callers treat it the same as "no session".
var ErrDecode = errors.New("invalid session credential")

// ErrSessionExpired marks an idle-timeout expiry. It is kept distinct from
// ErrDecode so the client can be told to re-authenticate rather than shown a
// generic failure.
var ErrSessionExpired = errors.New("session expired")
