package decorators

import (
	"context"
	"errors"
	"unicode/utf8"

	"aiagents/internal/core"
)

// MinAPIKeyLength is the shortest key accepted by KeyValidator.
const MinAPIKeyLength = 20

// APIKeyArg is the keyword argument KeyValidator looks for first.
const APIKeyArg = "api_key"

var (
	// ErrAPIKeyMissing is returned when no string key is present in the call.
	ErrAPIKeyMissing = errors.New("api key is required")
	// ErrAPIKeyTooShort is returned when the key is shorter than MinAPIKeyLength.
	ErrAPIKeyTooShort = errors.New("api key is too short")
)

// ExtractAPIKey returns the key from the api_key keyword argument or, when
// that is absent or empty, from the first positional argument.
func ExtractAPIKey(call Call) (string, error) {
	v, ok := call.Kwarg(APIKeyArg)
	if s, isString := v.(string); !ok || v == nil || (isString && s == "") {
		v, _ = call.Arg(0)
	}
	key, ok := v.(string)
	if !ok || key == "" {
		return "", ErrAPIKeyMissing
	}
	if utf8.RuneCountInString(key) < MinAPIKeyLength {
		return "", ErrAPIKeyTooShort
	}
	return key, nil
}

type keyValidated[T any] struct {
	inner Operation[T]
	opts  options
}

// KeyValidator rejects calls whose API key is missing, not a string or
// shorter than MinAPIKeyLength before the operation runs. It only checks the
// format of the key.
func KeyValidator[T any](opts ...Option) Decorator[T] {
	o := buildOptions(opts)
	return func(op Operation[T]) Operation[T] {
		return &keyValidated[T]{inner: op, opts: o}
	}
}

func (k *keyValidated[T]) Name() string { return k.inner.Name() }

// Unwrap returns the wrapped operation.
func (k *keyValidated[T]) Unwrap() Operation[T] { return k.inner }

func (k *keyValidated[T]) Invoke(ctx context.Context, call Call) (T, error) {
	if _, err := ExtractAPIKey(call); err != nil {
		var zero T
		k.opts.logger.WarnContext(ctx, "api key rejected",
			append(core.LogAttrs(ctx), "operation", k.Name(), "reason", err)...)
		return zero, err
	}
	k.opts.logger.DebugContext(ctx, "api key format accepted",
		append(core.LogAttrs(ctx), "operation", k.Name())...)
	return k.inner.Invoke(ctx, call)
}
