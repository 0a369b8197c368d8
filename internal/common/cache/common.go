package cache

import (
	"context"
	"time"
)

// NullValue marks the cached absence of data so a missing row does not
// hammer the database on every lookup.
const NullValue = "$NULL$"

// GetOrLoad implements the cache-aside pattern with null caching.
// Cache failures degrade to the loader, they never fail the read.
func GetOrLoad[T any](
	ctx context.Context,
	c Cache,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) (string, error),
	unmarshal func(string) (T, error),
	load func(context.Context) (T, error),
) (T, error) {
	var zero T

	if cached, err := c.Get(ctx, key); err == nil && cached != "" {
		if cached == NullValue {
			return zero, nil
		}
		if value, err := unmarshal(cached); err == nil {
			return value, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return zero, err
	}

	if isEmpty(value) {
		_ = c.Set(ctx, key, NullValue, emptyTTL)
		return value, nil
	}
	if encoded, err := marshal(value); err == nil {
		_ = c.Set(ctx, key, encoded, ttl)
	}
	return value, nil
}
