// Package sink persists finalized channel groups. The pipeline only depends
// on the Sink interface; storage technology stays behind it.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/channelpick/channel-pick/internal/group"
	"github.com/channelpick/channel-pick/internal/metrics"
)

// Sink accepts finalized channel groups with at-least-once semantics.
// WriteBatch may be called repeatedly with overlapping groups; writes must
// upsert, not append.
type Sink interface {
	UpsertChannel(ctx context.Context, g group.Group) error
	WriteBatch(ctx context.Context, groups []group.Group) error
}

// WriteError wraps a sink failure that exhausted its retry budget. It is the
// only error that halts a run.
type WriteError struct {
	Attempts int
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink write failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Retrying wraps a Sink with bounded exponential-backoff retries. Each
// failed attempt doubles the wait, starting at Backoff.
type Retrying struct {
	Sink     Sink
	Attempts int
	Backoff  time.Duration
}

// WithRetry returns s wrapped with the given retry budget. attempts < 1 and
// backoff <= 0 get safe defaults.
func WithRetry(s Sink, attempts int, backoff time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Retrying{Sink: s, Attempts: attempts, Backoff: backoff}
}

func (r *Retrying) UpsertChannel(ctx context.Context, g group.Group) error {
	return r.retry(ctx, func() error { return r.Sink.UpsertChannel(ctx, g) })
}

func (r *Retrying) WriteBatch(ctx context.Context, groups []group.Group) error {
	return r.retry(ctx, func() error { return r.Sink.WriteBatch(ctx, groups) })
}

func (r *Retrying) retry(ctx context.Context, op func() error) error {
	var lastErr error
	wait := r.Backoff
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == r.Attempts {
			break
		}
		metrics.SinkRetries.Inc()
		select {
		case <-ctx.Done():
			return &WriteError{Attempts: attempt, Err: ctx.Err()}
		case <-time.After(wait):
		}
		wait *= 2
	}
	return &WriteError{Attempts: r.Attempts, Err: lastErr}
}
