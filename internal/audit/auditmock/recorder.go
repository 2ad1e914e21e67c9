package auditmock

import (
	"context"
	"sync"

	"github.com/lazari03/pyetdoktorin-sessions/internal/audit"
)

type RecorderOption func(*Recorder)

// Recorder collects events in memory for assertions in tests.
type Recorder struct {
	mu        sync.Mutex
	events    []audit.Event
	recordErr error
}

func WithRecordError(err error) RecorderOption {
	return func(r *Recorder) { r.recordErr = err }
}

var _ = audit.Recorder(&Recorder{})

func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

func (r *Recorder) Record(_ context.Context, event audit.Event) error {
	if r.recordErr != nil {
		return r.recordErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)

	return nil
}

func (r *Recorder) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]audit.Event(nil), r.events...)
}
