package decorators

import (
	"context"

	"aiagents/internal/core"
)

type timed[T any] struct {
	inner Operation[T]
	opts  options
}

// Timer measures the wall-clock duration of every call. Successful calls are
// logged at info level, failed calls at error level; the error is returned
// unchanged.
func Timer[T any](opts ...Option) Decorator[T] {
	o := buildOptions(opts)
	return func(op Operation[T]) Operation[T] {
		return &timed[T]{inner: op, opts: o}
	}
}

func (t *timed[T]) Name() string { return t.inner.Name() }

// Unwrap returns the wrapped operation.
func (t *timed[T]) Unwrap() Operation[T] { return t.inner }

func (t *timed[T]) Invoke(ctx context.Context, call Call) (T, error) {
	start := t.opts.now()
	result, err := t.inner.Invoke(ctx, call)
	elapsed := t.opts.now().Sub(start)

	if t.opts.hooks != nil {
		t.opts.hooks.ObserveDuration(t.Name(), elapsed, err)
	}

	attrs := append(core.LogAttrs(ctx), "operation", t.Name(), "duration", elapsed)
	if err != nil {
		t.opts.logger.ErrorContext(ctx, "operation failed", append(attrs, "error", err)...)
		return result, err
	}
	t.opts.logger.InfoContext(ctx, "operation completed", attrs...)
	return result, nil
}
