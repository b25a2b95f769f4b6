package cache

// loader.go implements GetOrLoad's load-coalescing: many goroutines racing
// to refresh the same OIDC provider metadata document or JWKS after a miss
// collapse into a single back-end round trip via
// golang.org/x/sync/singleflight, exactly the "thundering herd" scenario
// singleflight exists for.
//
// © 2025 oauth2-cache authors. MIT License.

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// loaderGroup coalesces concurrent loads for the same key into one call.
type loaderGroup struct {
	group singleflight.Group
}

// LoadFunc produces the value to cache on a miss.
type LoadFunc func(ctx context.Context) ([]byte, error)

func (g *loaderGroup) do(ctx context.Context, key string, fn LoadFunc) ([]byte, error) {
	v, err, _ := g.group.Do(key, func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// GetOrLoad returns the cached value for key if present and valid; on a miss
// it calls load exactly once even under concurrent callers for the same key,
// stores the result with ttl, and returns it. A load error is returned to
// every waiting caller and nothing is stored.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load LoadFunc) ([]byte, error) {
	if v, ok, err := c.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}

	return c.loader.do(ctx, c.cfg.name+"\x00"+key, func(ctx context.Context) ([]byte, error) {
		// re-check: another goroutine may have populated the cache while we
		// were waiting to become the singleflight leader.
		if v, ok, err := c.Get(ctx, key); err == nil && ok {
			return v, nil
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, v, ttl); err != nil {
			return nil, err
		}
		return v, nil
	})
}
