// Package redisstore implements the "redis" back-end over
// github.com/redis/go-redis/v9: a SHA-256-keyed, TTL-bearing go-redis/v9
// client reached through a small Get/Set/Delete surface, treating redis.Nil
// as a cache miss rather than an error, and storing the opaque []byte
// payload every back-end in this module shares instead of JSON-marshalled
// domain objects.
//
// © 2025 oauth2-cache authors. MIT License.
package redisstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	cache "github.com/zmartzone/oauth2-cache/pkg"
)

func init() {
	cache.RegisterBackend(cache.Descriptor{
		Name:           "redis",
		DefaultEncrypt: true,
		New:            newBackend,
	})
}

// Backend implements cache.Backend for type=redis.
type Backend struct {
	client *redis.Client
}

func newBackend(opts cache.Options) (cache.Backend, error) {
	raw := "127.0.0.1:6379"
	if opts.Has("servers") {
		raw = opts.Get("servers")
	}
	servers := strings.Split(raw, ",")
	if len(servers) == 0 || strings.TrimSpace(servers[0]) == "" {
		return nil, cache.NewBackendError(cache.KindInvalidConfig, "redis back-end requires at least one server", nil)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         servers[0],
		Password:     opts.Get("password"),
		DB:           opts.GetInt("db", 0),
		DialTimeout:  opts.GetDurationMillis("timeout_ms", 2*time.Second),
		ReadTimeout:  opts.GetDurationMillis("timeout_ms", 2*time.Second),
		WriteTimeout: opts.GetDurationMillis("timeout_ms", 2*time.Second),
	})

	return &Backend{client: client}, nil
}

// PostConfig pings the server once so misconfiguration (bad address,
// auth failure) surfaces at Init time instead of on the first request.
func (b *Backend) PostConfig(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return cache.NewBackendError(cache.KindNetwork, "connecting to redis", err)
	}
	return nil
}

// ChildInit is a no-op: go-redis connections are lazily (re)established.
func (b *Backend) ChildInit(ctx context.Context) error { return nil }

func (b *Backend) Close() error {
	return b.client.Close()
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cache.NewBackendError(cache.KindNetwork, "redis get", err)
	}
	return v, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if value == nil || ttl <= 0 {
		if err := b.client.Del(ctx, key).Err(); err != nil {
			return cache.NewBackendError(cache.KindNetwork, "redis delete", err)
		}
		return nil
	}
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return cache.NewBackendError(cache.KindNetwork, "redis set", err)
	}
	return nil
}
