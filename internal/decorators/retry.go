package decorators

import (
	"context"
	"time"

	"aiagents/internal/core"
)

// RetryPolicy controls the Retry decorator.
type RetryPolicy struct {
	// MaxAttempts is the total number of invocations (values below 1 mean 1)
	MaxAttempts int
	// Delay is the fixed wait between attempts (negative means 0)
	Delay time.Duration
}

// DefaultRetryPolicy returns 3 attempts with a 1s delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

type retried[T any] struct {
	inner  Operation[T]
	policy RetryPolicy
	opts   options
}

// Retry invokes the operation up to policy.MaxAttempts times, sleeping
// policy.Delay between failed attempts. After the last attempt the last
// observed error is returned. The delay is not cut short by ctx.
func Retry[T any](policy RetryPolicy, opts ...Option) Decorator[T] {
	o := buildOptions(opts)
	p := policy.normalized()
	return func(op Operation[T]) Operation[T] {
		return &retried[T]{inner: op, policy: p, opts: o}
	}
}

func (r *retried[T]) Name() string { return r.inner.Name() }

// Unwrap returns the wrapped operation.
func (r *retried[T]) Unwrap() Operation[T] { return r.inner }

func (r *retried[T]) Invoke(ctx context.Context, call Call) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		result, err := r.inner.Invoke(ctx, call)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if r.opts.hooks != nil {
			r.opts.hooks.ObserveRetry(r.Name(), attempt, err)
		}
		r.opts.logger.WarnContext(ctx, "attempt failed",
			append(core.LogAttrs(ctx),
				"operation", r.Name(),
				"attempt", attempt,
				"max_attempts", r.policy.MaxAttempts,
				"error", err)...)

		if attempt < r.policy.MaxAttempts && r.policy.Delay > 0 {
			r.opts.sleep(r.policy.Delay)
		}
	}

	r.opts.logger.ErrorContext(ctx, "operation failed after all attempts",
		append(core.LogAttrs(ctx), "operation", r.Name(), "attempts", r.policy.MaxAttempts)...)
	return zero, lastErr
}
