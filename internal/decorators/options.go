package decorators

import (
	"log/slog"
	"time"
)

// Hooks receives measurements from the decorators. Implementations must be
// safe for concurrent use.
type Hooks interface {
	ObserveDuration(operation string, d time.Duration, err error)
	ObserveRetry(operation string, attempt int, err error)
	ObserveCacheLookup(operation string, hit bool)
}

// Option configures a decorator.
type Option func(*options)

type options struct {
	logger *slog.Logger
	hooks  Hooks
	now    func() time.Time
	sleep  func(time.Duration)
}

// WithLogger sets the logger used by the decorator. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHooks sets the metrics hooks notified by the decorator.
func WithHooks(hooks Hooks) Option {
	return func(o *options) { o.hooks = hooks }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSleep replaces time.Sleep for the retry delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) { o.sleep = sleep }
}

func buildOptions(opts []Option) options {
	o := options{
		now:   time.Now,
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
