package sessionvalkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/lazari03/pyetdoktorin-sessions/internal/session"
)

const objectTypeAssertion = "assertion"

// Guard marks consumed identity assertions in ValKey so that a replayed
// assertion is refused by every service instance, not just the one that saw
// it first.
type Guard struct {
	valkey valkey.Client
	prefix string
}

var _ = session.ReplayGuard(&Guard{})

func NewGuard(valkeyClient valkey.Client, prefix string) *Guard {
	prefix = strings.TrimSuffix(prefix, ":")
	return &Guard{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

// FirstUse marks the digest as consumed and reports whether this call was
// the first to do so. SET NX keeps the check and the mark atomic.
func (g *Guard) FirstUse(ctx context.Context, digest string, ttl time.Duration) (bool, error) {
	key := g.key(objectTypeAssertion, digest)
	cmd := g.valkey.B().Set().Key(key).Value("1").Nx().Ex(ttl).Build()

	if err := g.valkey.Do(ctx, cmd).Error(); err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			// SET NX answers nil when the key already exists.
			return false, nil
		}

		return false, fmt.Errorf("executing set command: %w", err)
	}

	return true, nil
}

func (g *Guard) key(objectType, objectID string) string {
	return fmt.Sprintf("%s:%s:%s", g.prefix, objectType, objectID)
}
