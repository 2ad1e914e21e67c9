package sessionmock

import (
	"context"
	"sync"
	"time"

	"github.com/lazari03/pyetdoktorin-sessions/internal/session"
)

type GuardOption func(*Guard)

// Guard remembers consumed digests in memory.
type Guard struct {
	mu       sync.Mutex
	consumed map[string]struct{}

	firstUseErr error
}

func WithConsumed(digest string) GuardOption {
	return func(g *Guard) { g.consumed[digest] = struct{}{} }
}

func WithFirstUseError(err error) GuardOption {
	return func(g *Guard) { g.firstUseErr = err }
}

var _ = session.ReplayGuard(&Guard{})

func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{
		consumed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

func (g *Guard) FirstUse(_ context.Context, digest string, _ time.Duration) (bool, error) {
	if g.firstUseErr != nil {
		return false, g.firstUseErr
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.consumed[digest]; ok {
		return false, nil
	}
	g.consumed[digest] = struct{}{}

	return true, nil
}
