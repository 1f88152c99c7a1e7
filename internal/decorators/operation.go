// Package decorators provides composable behavioral wrappers (timing, retry,
// caching, API-key format checks and call logging) around named operations.
//
// Every decorator takes an Operation and returns an Operation with the same
// contract, so wrappers stack by construction:
//
//	op := decorators.Chain(base,
//		decorators.CallLogger[T](false),
//		decorators.Retry[T](decorators.RetryPolicy{MaxAttempts: 3, Delay: time.Second}),
//		decorators.Timer[T](),
//	)
//
// The first decorator passed to Chain is the outermost one.
package decorators

import (
	"context"
	"sort"
)

// Call carries the arguments of a single invocation: positional arguments in
// order and keyword arguments by name.
type Call struct {
	Args   []any
	Kwargs map[string]any
}

// Args builds a Call from positional arguments.
func Args(args ...any) Call {
	return Call{Args: args}
}

// With returns a copy of c with the keyword argument name set to value.
func (c Call) With(name string, value any) Call {
	kwargs := make(map[string]any, len(c.Kwargs)+1)
	for k, v := range c.Kwargs {
		kwargs[k] = v
	}
	kwargs[name] = value
	return Call{Args: c.Args, Kwargs: kwargs}
}

// Arg returns the positional argument at index i.
func (c Call) Arg(i int) (any, bool) {
	if i < 0 || i >= len(c.Args) {
		return nil, false
	}
	return c.Args[i], true
}

// Kwarg returns the keyword argument called name.
func (c Call) Kwarg(name string) (any, bool) {
	v, ok := c.Kwargs[name]
	return v, ok
}

// KwargNames returns the keyword argument names in sorted order.
func (c Call) KwargNames() []string {
	names := make([]string, 0, len(c.Kwargs))
	for name := range c.Kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operation is a named unit of work.
type Operation[T any] interface {
	Name() string
	Invoke(ctx context.Context, call Call) (T, error)
}

// Func adapts a function to the Operation interface.
type Func[T any] struct {
	name string
	fn   func(ctx context.Context, call Call) (T, error)
}

// New wraps fn as an Operation called name.
func New[T any](name string, fn func(ctx context.Context, call Call) (T, error)) *Func[T] {
	return &Func[T]{name: name, fn: fn}
}

// Name returns the operation name.
func (f *Func[T]) Name() string { return f.name }

// Invoke calls the wrapped function.
func (f *Func[T]) Invoke(ctx context.Context, call Call) (T, error) {
	return f.fn(ctx, call)
}

// Decorator wraps an Operation with additional behavior.
type Decorator[T any] func(Operation[T]) Operation[T]

// Chain applies decorators to op so that decorators[0] is the outermost.
func Chain[T any](op Operation[T], decorators ...Decorator[T]) Operation[T] {
	for i := len(decorators) - 1; i >= 0; i-- {
		op = decorators[i](op)
	}
	return op
}
