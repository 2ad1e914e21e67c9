package session

import (
	"context"
	"time"
)

// ReplayGuard marks identity assertions as consumed so the same assertion
// cannot establish a second session. Implementations must be atomic across
// service instances.
type ReplayGuard interface {
	// FirstUse records the digest and reports whether this call was the
	// first to present it within the ttl window.
	FirstUse(ctx context.Context, digest string, ttl time.Duration) (bool, error)
}
