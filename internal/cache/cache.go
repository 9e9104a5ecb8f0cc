// Package cache memoizes upstream responses for a bounded time so repeated
// dashboard interactions do not refetch unchanged data.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/gridlive/internal/metrics"
	"github.com/vmihailenco/msgpack/v5"
)

// Store is a byte-oriented key/value store with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key joins key parts with ':' after escaping the separator inside parts.
func Key(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = strings.ReplaceAll(p, ":", "%3A")
	}
	return strings.Join(escaped, ":")
}

// Memoize returns the cached value under key, or calls fn and stores its
// result for ttl. Errors from fn are returned and never cached. A store that
// fails or holds an undecodable entry degrades to calling fn.
func Memoize[T any](ctx context.Context, store Store, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if store == nil {
		return fn(ctx)
	}

	if data, ok, err := store.Get(ctx, key); err == nil && ok {
		var cached T
		if err := msgpack.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		_ = store.Delete(ctx, key)
	}

	v, err := fn(ctx)
	if err != nil {
		return v, err
	}

	data, err := msgpack.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	_ = store.Set(ctx, key, data, ttl)
	return v, nil
}

// Nop never holds anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(context.Context, string) error                     { return nil }

type instrumented struct {
	Store
	m *metrics.Metrics
}

// Instrument counts hits and misses of store on m.
func Instrument(store Store, m *metrics.Metrics) Store {
	return &instrumented{Store: store, m: m}
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := s.Store.Get(ctx, key)
	if ok && err == nil {
		s.m.CacheHit()
	} else {
		s.m.CacheMiss()
	}
	return data, ok, err
}
