// Package identity treats the external identity provider as an opaque
// oracle: it consumes a short-lived bearer assertion and answers with the
// verified subject behind it, or refuses.
package identity

import "context"

// Subject is the verified identity carried by an assertion. The role is the
// raw claim value; the session layer maps it onto its closed role set.
type Subject struct {
	ID   string
	Role string
}

type Verifier interface {
	Verify(ctx context.Context, assertion string) (Subject, error)
}
