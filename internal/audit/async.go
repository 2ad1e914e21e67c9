package audit

import (
	"context"
	"time"

	slogctx "github.com/veqryn/slog-context"
)

const recordTimeout = 5 * time.Second

// AsyncRecorder decouples request handling from the audit database: Record
// enqueues and returns immediately, a single background worker writes. When
// the buffer is full the event is dropped rather than blocking the request.
type AsyncRecorder struct {
	next   Recorder
	events chan Event
	done   chan struct{}
}

func NewAsyncRecorder(ctx context.Context, next Recorder) *AsyncRecorder {
	r := &AsyncRecorder{
		next:   next,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}

	go r.run(ctx)

	return r
}

func (r *AsyncRecorder) Record(ctx context.Context, event Event) error {
	select {
	case r.events <- event:
	default:
		slogctx.Warn(ctx, "Audit buffer full, dropping event", "kind", event.Kind)
	}

	return nil
}

// Close stops accepting events and drains whatever is already queued.
func (r *AsyncRecorder) Close() {
	close(r.events)
	<-r.done
}

func (r *AsyncRecorder) run(ctx context.Context) {
	defer close(r.done)

	for event := range r.events {
		// Writes use a fresh deadline so a cancelled request cannot abort an
		// event already accepted for recording.
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		if err := r.next.Record(writeCtx, event); err != nil {
			slogctx.Error(writeCtx, "Failed to record audit event", "kind", event.Kind, "error", err)
		}
		cancel()
	}
}
