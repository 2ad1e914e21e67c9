package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	gocache "github.com/patrickmn/go-cache"

	"github.com/lazari03/pyetdoktorin-sessions/internal/config"
)

const jwksCacheKey = "jwks"

var supportedAlgs = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.EdDSA,
}

// JWTVerifier verifies signed-JWT assertions against the issuer's published
// key set. Every failure mode, including a slow issuer, surfaces as a plain
// verification error to the caller.
type JWTVerifier struct {
	issuerURL string
	audience  string
	roleClaim string
	timeout   time.Duration
	client    *http.Client
	cache     *gocache.Cache
}

func NewJWTVerifier(cfg *config.Verifier, httpClient *http.Client) *JWTVerifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &JWTVerifier{
		issuerURL: strings.TrimSuffix(cfg.IssuerURL, "/"),
		audience:  cfg.Audience,
		roleClaim: cfg.RoleClaim,
		timeout:   cfg.Timeout,
		client:    httpClient,
		cache:     gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, assertion string) (Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	token, err := jwt.ParseSigned(assertion, supportedAlgs)
	if err != nil {
		return Subject{}, fmt.Errorf("parsing assertion: %w", err)
	}

	keySet, err := v.keySet(ctx)
	if err != nil {
		return Subject{}, fmt.Errorf("getting issuer key set: %w", err)
	}

	var standardClaims jwt.Claims
	extraClaims := map[string]any{}
	if err := token.Claims(keySet, &standardClaims, &extraClaims); err != nil {
		return Subject{}, fmt.Errorf("getting assertion claims: %w", err)
	}

	expected := jwt.Expected{
		Issuer: v.issuerURL,
		Time:   time.Now(),
	}
	if v.audience != "" {
		expected.AnyAudience = jwt.Audience{v.audience}
	}
	if err := standardClaims.Validate(expected); err != nil {
		return Subject{}, fmt.Errorf("validating assertion claims: %w", err)
	}

	role, _ := extraClaims[v.roleClaim].(string)
	if standardClaims.Subject == "" || role == "" {
		return Subject{}, errors.New("assertion is missing the subject or role claim")
	}

	return Subject{ID: standardClaims.Subject, Role: role}, nil
}

// keySet returns the issuer's JWKS, fetching it at most once per cache
// window.
func (v *JWTVerifier) keySet(ctx context.Context) (*jose.JSONWebKeySet, error) {
	cached, ok := v.cache.Get(jwksCacheKey)
	if ok {
		//nolint:forcetypeassert
		return cached.(*jose.JSONWebKeySet), nil
	}

	uri := v.issuerURL + "/.well-known/jwks.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("creating a new HTTP request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing an http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint answered with status: %d", resp.StatusCode)
	}

	var keySet jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&keySet); err != nil {
		return nil, fmt.Errorf("decoding keyset response: %w", err)
	}

	v.cache.Set(jwksCacheKey, &keySet, 0)

	return &keySet, nil
}
