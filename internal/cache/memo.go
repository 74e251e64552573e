package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Memo is a cache-aside helper. Every cache call is bounded by a timeout and
// any cache failure degrades to the loader; the cache is never required for
// a correct answer.
type Memo struct {
	cache   Cache
	ttl     time.Duration
	timeout time.Duration
}

// NewMemo returns a Memo over c. A nil c disables caching.
func NewMemo(c Cache, ttl, timeout time.Duration) *Memo {
	return &Memo{cache: c, ttl: ttl, timeout: timeout}
}

func (m *Memo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// generationTTL keeps counters alive at least as long as the entries they guard.
func (m *Memo) generationTTL() time.Duration {
	if m.ttl < time.Minute {
		return time.Minute
	}
	return m.ttl
}

// GetOrLoad returns the value cached under key, or calls load and caches its
// result registered in the given indexes. Errors from load are returned as-is
// and never cached.
func GetOrLoad[T any](ctx context.Context, m *Memo, key string, indexes []string, load func(context.Context) (T, error)) (T, error) {
	if m == nil || m.cache == nil {
		return load(ctx)
	}

	cctx, cancel := m.bound(ctx)
	raw, found, err := m.cache.Get(cctx, key)
	cancel()

	if err != nil {
		slog.WarnContext(ctx, "cache read failed, falling back to store", "key", key, "error", err)
	} else if found {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		slog.WarnContext(ctx, "cache entry undecodable, reloading", "key", key)
	}

	fences := append([]string{key}, indexes...)
	before := m.generations(ctx, fences)

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	b, err := json.Marshal(v)
	if err != nil {
		slog.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return v, nil
	}

	cctx, cancel = m.bound(ctx)
	err = m.cache.SetIndexed(cctx, key, b, m.ttl, indexes...)
	cancel()
	if err != nil {
		slog.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		return v, nil
	}

	// An invalidation that ran while load was in flight may have been
	// overtaken by the write above. Drop the entry if any generation moved.
	if after := m.generations(ctx, fences); !equalGenerations(before, after) {
		cctx, cancel = m.bound(ctx)
		defer cancel()
		if err := m.cache.Delete(cctx, key); err != nil {
			slog.WarnContext(ctx, "cache delete of raced entry failed", "key", key, "error", err)
		}
	}
	return v, nil
}

// generations reads the invalidation counters of keys. A failed read yields
// nil, which never equals a successful read.
func (m *Memo) generations(ctx context.Context, keys []string) []string {
	cctx, cancel := m.bound(ctx)
	defer cancel()
	out := make([]string, len(keys))
	for i, k := range keys {
		raw, _, err := m.cache.Get(cctx, GenerationKey(k))
		if err != nil {
			return nil
		}
		out[i] = string(raw)
	}
	return out
}

func equalGenerations(a, b []string) bool {
	if a == nil || b == nil || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Invalidate bumps the generation of every key and index in d, then removes
// them. Failures are logged; stale entries then age out with the TTL.
func (m *Memo) Invalidate(ctx context.Context, d Dependents) error {
	if m == nil || m.cache == nil {
		return nil
	}
	cctx, cancel := m.bound(ctx)
	defer cancel()
	for _, k := range append(append([]string(nil), d.Keys...), d.Indexes...) {
		if _, err := m.cache.IncrWithExpiry(cctx, GenerationKey(k), m.generationTTL()); err != nil {
			slog.WarnContext(ctx, "cache generation bump failed", "key", k, "error", err)
		}
	}
	if err := m.cache.Invalidate(cctx, d.Keys, d.Indexes); err != nil {
		slog.WarnContext(ctx, "cache invalidation failed", "keys", d.Keys, "indexes", d.Indexes, "error", err)
		return err
	}
	return nil
}
