package identitymock

import (
	"context"
	"errors"

	"github.com/lazari03/pyetdoktorin-sessions/internal/identity"
)

type VerifierOption func(*Verifier)

// Verifier answers from a fixed assertion-to-subject table.
type Verifier struct {
	subjects  map[string]identity.Subject
	verifyErr error
}

func WithSubject(assertion string, subject identity.Subject) VerifierOption {
	return func(v *Verifier) { v.subjects[assertion] = subject }
}

func WithVerifyError(err error) VerifierOption {
	return func(v *Verifier) { v.verifyErr = err }
}

var _ = identity.Verifier(&Verifier{})

func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{
		subjects: make(map[string]identity.Subject),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	return v
}

func (v *Verifier) Verify(_ context.Context, assertion string) (identity.Subject, error) {
	if v.verifyErr != nil {
		return identity.Subject{}, v.verifyErr
	}
	if subject, ok := v.subjects[assertion]; ok {
		return subject, nil
	}

	return identity.Subject{}, errors.New("unknown assertion")
}
