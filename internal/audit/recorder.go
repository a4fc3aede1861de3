// Package audit records API activity off the request path.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"estate/internal/observability"

	"github.com/google/uuid"
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("audit recorder closed")

// Entry is one API operation to be stored as an activity.
type Entry struct {
	UserID   uuid.UUID
	Path     string
	Duration time.Duration
}

// PersistFunc stores one entry.
type PersistFunc func(ctx context.Context, e Entry) error

// Options tunes a Recorder. Zero values select the defaults.
type Options struct {
	BufferSize     int
	Workers        int
	PersistTimeout time.Duration
}

// Recorder queues entries in a bounded buffer drained by a fixed set of
// workers. Recording never blocks: when the buffer is full the entry is
// dropped and counted.
type Recorder struct {
	persist PersistFunc
	timeout time.Duration
	queue   chan Entry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts the workers. Call Close to drain and stop them.
func NewRecorder(persist PersistFunc, opts Options) *Recorder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}

	r := &Recorder{
		persist: persist,
		timeout: opts.PersistTimeout,
		queue:   make(chan Entry, opts.BufferSize),
	}
	for i := 0; i < opts.Workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	return r
}

// Record enqueues e and reports whether it was accepted.
func (r *Recorder) Record(e Entry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		observability.AuditEntries.WithLabelValues("dropped").Inc()
		return false
	}

	select {
	case r.queue <- e:
		observability.AuditQueueDepth.Inc()
		return true
	default:
		observability.AuditEntries.WithLabelValues("dropped").Inc()
		return false
	}
}

// Close stops accepting entries and waits for the queued ones to be
// persisted, or for ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) work() {
	defer r.wg.Done()
	for e := range r.queue {
		observability.AuditQueueDepth.Dec()
		r.store(e)
	}
}

func (r *Recorder) store(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	// A panicking persist must not take the worker down with it.
	defer func() {
		if p := recover(); p != nil {
			observability.AuditEntries.WithLabelValues("failed").Inc()
			observability.LogAsyncOperationError(ctx, "audit.persist", fmt.Errorf("panic: %v", p), map[string]any{
				"user_id": e.UserID,
				"path":    e.Path,
			})
		}
	}()

	if err := r.persist(ctx, e); err != nil {
		observability.AuditEntries.WithLabelValues("failed").Inc()
		observability.LogAsyncOperationError(ctx, "audit.persist", err, map[string]any{
			"user_id": e.UserID,
			"path":    e.Path,
		})
		return
	}
	observability.AuditEntries.WithLabelValues("persisted").Inc()
}
