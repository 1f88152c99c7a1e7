package decorators

import (
	"context"
	"time"

	"aiagents/internal/core"
)

type logged[T any] struct {
	inner       Operation[T]
	includeArgs bool
	opts        options
}

// CallLogger logs the start and completion of every call with a timestamp.
// With includeArgs the raw arguments are logged too; keep it false for
// operations that receive credentials.
func CallLogger[T any](includeArgs bool, opts ...Option) Decorator[T] {
	o := buildOptions(opts)
	return func(op Operation[T]) Operation[T] {
		return &logged[T]{inner: op, includeArgs: includeArgs, opts: o}
	}
}

func (l *logged[T]) Name() string { return l.inner.Name() }

// Unwrap returns the wrapped operation.
func (l *logged[T]) Unwrap() Operation[T] { return l.inner }

func (l *logged[T]) Invoke(ctx context.Context, call Call) (T, error) {
	attrs := append(core.LogAttrs(ctx),
		"operation", l.Name(),
		"timestamp", l.opts.now().Format(time.DateTime))

	if l.includeArgs {
		l.opts.logger.InfoContext(ctx, "calling operation",
			append(attrs, "args", call.Args, "kwargs", call.Kwargs)...)
	} else {
		l.opts.logger.InfoContext(ctx, "calling operation", attrs...)
	}

	result, err := l.inner.Invoke(ctx, call)
	if err != nil {
		l.opts.logger.ErrorContext(ctx, "operation returned error", append(attrs, "error", err)...)
		return result, err
	}

	l.opts.logger.InfoContext(ctx, "operation finished", attrs...)
	return result, nil
}
