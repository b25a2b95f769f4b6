// Package memcachestore implements the "memcache" back-end over
// github.com/bradfitz/gomemcache/memcache, the de facto standard Go
// memcached client (see DESIGN.md for the full justification).
//
// © 2025 oauth2-cache authors. MIT License.
package memcachestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	cache "github.com/zmartzone/oauth2-cache/pkg"
)

func init() {
	cache.RegisterBackend(cache.Descriptor{
		Name:           "memcache",
		DefaultEncrypt: true,
		New:            newBackend,
	})
}

// Backend implements cache.Backend for type=memcache. Memcached already
// evicts and expires entries server-side, so this back-end is a thin
// protocol adapter: deliberately keeps no client-side state.
type Backend struct {
	client *memcache.Client
}

func newBackend(opts cache.Options) (cache.Backend, error) {
	raw := "127.0.0.1:11211"
	if opts.Has("servers") {
		raw = opts.Get("servers")
	}
	servers := strings.Split(raw, ",")
	for i := range servers {
		servers[i] = strings.TrimSpace(servers[i])
	}
	if len(servers) == 0 || servers[0] == "" {
		return nil, cache.NewBackendError(cache.KindInvalidConfig, "memcache back-end requires at least one server", nil)
	}

	client := memcache.New(servers...)
	if to := opts.GetDurationMillis("timeout_ms", 2*time.Second); to > 0 {
		client.Timeout = to
	}
	return &Backend{client: client}, nil
}

// PostConfig is a no-op: memcache.New only records the server list, and the
// client dials connections on demand.
func (b *Backend) PostConfig(ctx context.Context) error { return nil }

// ChildInit is a no-op: the gomemcache client reconnects lazily per request.
func (b *Backend) ChildInit(ctx context.Context) error { return nil }

// Close releases nothing explicitly; gomemcache manages its own pooled
// connections and has no Close method.
func (b *Backend) Close() error { return nil }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, err := b.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cache.NewBackendError(cache.KindNetwork, "memcache get", err)
	}
	return item.Value, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		err := b.client.Delete(key)
		if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			return cache.NewBackendError(cache.KindNetwork, "memcache delete", err)
		}
		return nil
	}

	item := &memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(ttl.Seconds()),
	}
	if err := b.client.Set(item); err != nil {
		return cache.NewBackendError(cache.KindNetwork, "memcache set", err)
	}
	return nil
}
