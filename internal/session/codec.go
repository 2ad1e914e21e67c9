package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/lazari03/pyetdoktorin-sessions/internal/serviceerr"
)

// credentialVersion tags the encoding so that decode can reject unknown
// layouts deterministically instead of guessing.
const credentialVersion = 1

const minKeyLength = 32

// claims is the wire form of a Session inside the signed credential.
// Timestamps are unix seconds; the credential round-trips at second
// precision.
type claims struct {
	Version        int    `json:"v"`
	Subject        string `json:"sub"`
	Role           string `json:"role"`
	IssuedAt       int64  `json:"iat"`
	LastActivityAt int64  `json:"lat"`
	LastRefreshAt  int64  `json:"lrt"`
}

// Codec turns Sessions into compact signed credentials and back. The value
// crosses the untrusted client boundary on every request, so decode trusts
// nothing it cannot verify against the signing key.
type Codec struct {
	signer jose.Signer
	key    []byte
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) < minKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes", minKeyLength)
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: key}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	return &Codec{signer: signer, key: key}, nil
}

func (c *Codec) Encode(s Session) (string, error) {
	payload, err := json.Marshal(claims{
		Version:        credentialVersion,
		Subject:        s.SubjectID,
		Role:           string(s.Role),
		IssuedAt:       s.IssuedAt.Unix(),
		LastActivityAt: s.LastActivityAt.Unix(),
		LastRefreshAt:  s.LastRefreshAt.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("marshalling credential claims: %w", err)
	}

	signature, err := c.signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("signing credential: %w", err)
	}

	raw, err := signature.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("serialising credential: %w", err)
	}

	return raw, nil
}

// Decode verifies the signature and the claim invariants before handing a
// Session back. A corrupted or foreign value yields ErrDecode, never a
// partially populated Session.
func (c *Codec) Decode(raw string) (Session, error) {
	if raw == "" {
		return Session{}, serviceerr.ErrDecode
	}

	signature, err := jose.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Session{}, errors.Join(serviceerr.ErrDecode, err)
	}

	payload, err := signature.Verify(c.key)
	if err != nil {
		return Session{}, errors.Join(serviceerr.ErrDecode, err)
	}

	var cl claims
	if err := json.Unmarshal(payload, &cl); err != nil {
		return Session{}, errors.Join(serviceerr.ErrDecode, err)
	}

	if cl.Version != credentialVersion {
		return Session{}, serviceerr.ErrDecode
	}

	role, ok := ParseRole(cl.Role)
	if !ok || cl.Subject == "" || cl.IssuedAt <= 0 {
		return Session{}, serviceerr.ErrDecode
	}

	if cl.LastActivityAt < cl.IssuedAt || cl.LastRefreshAt < cl.IssuedAt {
		return Session{}, serviceerr.ErrDecode
	}

	return Session{
		SubjectID:      cl.Subject,
		Role:           role,
		IssuedAt:       time.Unix(cl.IssuedAt, 0).UTC(),
		LastActivityAt: time.Unix(cl.LastActivityAt, 0).UTC(),
		LastRefreshAt:  time.Unix(cl.LastRefreshAt, 0).UTC(),
	}, nil
}
