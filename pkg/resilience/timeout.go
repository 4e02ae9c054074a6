package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout bounds one unit of work, typically a single index job pulled
// off the queue, with a derived context. When fn overruns, the caller gets
// context.DeadlineExceeded wrapped with the operation name; fn itself keeps
// running until it observes its cancelled context, so fn must not touch
// caller state after returning.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}
