package decorators

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"aiagents/internal/core"
)

// maxKeyDepth bounds the recursion of CanonicalKey so that cyclic pointer
// graphs fail instead of looping.
const maxKeyDepth = 32

// CanonicalKey encodes call so that the same logical call always produces the
// same string: positional arguments in order, keyword arguments sorted by name.
// Every value is written together with its dynamic type, so int(1) and
// float64(1) or two structs differing only in unexported fields never share a
// key. Functions, channels and unsafe pointers cannot be keyed.
func CanonicalKey(call Call) (string, error) {
	var b strings.Builder
	b.WriteString("args(")
	for i, arg := range call.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeKeyValue(&b, reflect.ValueOf(arg), 0); err != nil {
			return "", fmt.Errorf("encode cache key: argument %d: %w", i, err)
		}
	}
	b.WriteString(");kwargs(")
	for i, name := range call.KwargNames() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(name))
		b.WriteByte('=')
		if err := writeKeyValue(&b, reflect.ValueOf(call.Kwargs[name]), 0); err != nil {
			return "", fmt.Errorf("encode cache key: keyword %q: %w", name, err)
		}
	}
	b.WriteByte(')')
	return b.String(), nil
}

func writeKeyValue(b *strings.Builder, v reflect.Value, depth int) error {
	if depth > maxKeyDepth {
		return errors.New("value nested too deeply")
	}
	if !v.IsValid() {
		b.WriteString("nil")
		return nil
	}

	b.WriteString(v.Type().String())
	switch v.Kind() {
	case reflect.Bool:
		b.WriteByte('(')
		b.WriteString(strconv.FormatBool(v.Bool()))
		b.WriteByte(')')
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteByte('(')
		b.WriteString(strconv.FormatInt(v.Int(), 10))
		b.WriteByte(')')
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteByte('(')
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
		b.WriteByte(')')
	case reflect.Float32, reflect.Float64:
		b.WriteByte('(')
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
		b.WriteByte(')')
	case reflect.Complex64, reflect.Complex128:
		b.WriteByte('(')
		b.WriteString(strconv.FormatComplex(v.Complex(), 'g', -1, 128))
		b.WriteByte(')')
	case reflect.String:
		b.WriteByte('(')
		b.WriteString(strconv.Quote(v.String()))
		b.WriteByte(')')
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			b.WriteString("(nil)")
			return nil
		}
		b.WriteByte('(')
		if err := writeKeyValue(b, v.Elem(), depth+1); err != nil {
			return err
		}
		b.WriteByte(')')
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			b.WriteString("(nil)")
			return nil
		}
		b.WriteByte('{')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeKeyValue(b, v.Index(i), depth+1); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("(nil)")
			return nil
		}
		pairs := make([]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			var pair strings.Builder
			if err := writeKeyValue(&pair, iter.Key(), depth+1); err != nil {
				return err
			}
			pair.WriteByte(':')
			if err := writeKeyValue(&pair, iter.Value(), depth+1); err != nil {
				return err
			}
			pairs = append(pairs, pair.String())
		}
		sort.Strings(pairs)
		b.WriteByte('{')
		b.WriteString(strings.Join(pairs, ","))
		b.WriteByte('}')
	case reflect.Struct:
		t := v.Type()
		b.WriteByte('{')
		for i := 0; i < v.NumField(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(t.Field(i).Name)
			b.WriteByte(':')
			if err := writeKeyValue(b, v.Field(i), depth+1); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	}
	return nil
}

type cacheEntry[T any] struct {
	canonical string
	value     T
	storedAt  time.Time
}

// CacheStats reports lookup counters for a cached operation.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

type cached[T any] struct {
	inner Operation[T]
	ttl   time.Duration
	opts  options

	mu      sync.Mutex
	entries map[uint64]cacheEntry[T]

	hits   atomic.Int64
	misses atomic.Int64
}

// Cache memoizes successful results per canonical call for ttl. Each wrapped
// operation gets its own table. Stale entries are ignored at read time and
// overwritten on the next miss; nothing is evicted. Errors are never cached.
func Cache[T any](ttl time.Duration, opts ...Option) Decorator[T] {
	o := buildOptions(opts)
	return func(op Operation[T]) Operation[T] {
		return &cached[T]{
			inner:   op,
			ttl:     ttl,
			opts:    o,
			entries: make(map[uint64]cacheEntry[T]),
		}
	}
}

func (c *cached[T]) Name() string { return c.inner.Name() }

func (c *cached[T]) Invoke(ctx context.Context, call Call) (T, error) {
	canonical, err := CanonicalKey(call)
	if err != nil {
		c.opts.logger.WarnContext(ctx, "cache bypassed",
			append(core.LogAttrs(ctx), "operation", c.Name(), "error", err)...)
		return c.inner.Invoke(ctx, call)
	}
	key := xxhash.Sum64String(canonical)
	now := c.opts.now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && entry.canonical == canonical && now.Sub(entry.storedAt) < c.ttl {
		c.hits.Add(1)
		c.observe(true)
		c.opts.logger.DebugContext(ctx, "cache hit",
			append(core.LogAttrs(ctx), "operation", c.Name())...)
		return entry.value, nil
	}

	c.misses.Add(1)
	c.observe(false)

	result, err := c.inner.Invoke(ctx, call)
	if err != nil {
		return result, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry[T]{canonical: canonical, value: result, storedAt: now}
	c.mu.Unlock()

	c.opts.logger.DebugContext(ctx, "result cached",
		append(core.LogAttrs(ctx), "operation", c.Name(), "ttl", c.ttl)...)
	return result, nil
}

// Stats returns the lookup counters and the number of stored entries,
// including stale ones.
func (c *cached[T]) Stats() CacheStats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return CacheStats{Entries: n, Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *cached[T]) observe(hit bool) {
	if c.opts.hooks != nil {
		c.opts.hooks.ObserveCacheLookup(c.Name(), hit)
	}
}

// StatsReporter is implemented by operations that expose cache counters.
type StatsReporter interface {
	Stats() CacheStats
}

// CacheStatsOf returns the counters of the outermost cache found by
// unwrapping op through the decorators of this package.
func CacheStatsOf[T any](op Operation[T]) (CacheStats, bool) {
	for op != nil {
		if r, ok := op.(StatsReporter); ok {
			return r.Stats(), true
		}
		u, ok := op.(interface{ Unwrap() Operation[T] })
		if !ok {
			return CacheStats{}, false
		}
		op = u.Unwrap()
	}
	return CacheStats{}, false
}
