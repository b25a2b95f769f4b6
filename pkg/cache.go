// Package cache is the façade: it owns key hashing and envelope encryption
// (internal/envelope), dispatches Get/Set to whichever back-end was
// registered under the configured type, and records metrics around every
// call (it logs only at construction and on decrypt failure). Back-ends never see plaintext keys or unsealed values they
// weren't asked to store - the façade is the only place that touches the
// envelope.
//
// Eviction is the chosen back-end's job (shm does literal LRU,
// file/memcache/redis expire server-side); the façade's own job is limited
// to the envelope and dispatch, not sharding or any particular eviction
// policy.
//
// © 2025 oauth2-cache authors. MIT License.
package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zmartzone/oauth2-cache/internal/envelope"
)

// Cache is a configured, ready-to-use handle onto one back-end instance.
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	cfg     *config
	desc    Descriptor
	backend Backend
	env     *envelope.Envelope
	loader  *loaderGroup
}

// Init parses rawOptions, looks up backendType in the registry, constructs
// and PostConfig's the back-end, and builds the envelope above it. An empty
// backendType defaults to "shm".
func Init(backendType string, rawOptions string, opts ...Option) (*Cache, error) {
	if backendType == "" {
		backendType = "shm"
	}

	desc, ok := lookupBackend(backendType)
	if !ok {
		return nil, newError(KindUnknownBackend, fmt.Sprintf("no back-end registered for type %q", backendType), nil)
	}

	parsed, err := ParseOptions(rawOptions)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	applyCommonOptions(cfg, parsed, desc)
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.encrypt && cfg.passphrase == "" {
		cfg.encrypt = false
		cfg.logger.Warn("encryption requested but no passphrase configured, falling back to unencrypted",
			zap.String("name", cfg.name),
			zap.String("backend", backendType),
			zap.Error(envelope.ErrNoPassphrase),
		)
	}

	env, err := envelope.New(cfg.keyHashAlgo, cfg.encrypt, cfg.passphrase)
	if err != nil {
		return nil, newError(KindInvalidConfig, "constructing envelope", err)
	}

	backend, err := desc.New(parsed)
	if err != nil {
		return nil, newError(KindInvalidConfig, fmt.Sprintf("constructing %q back-end", backendType), err)
	}

	c := &Cache{
		cfg:     cfg,
		desc:    desc,
		backend: backend,
		env:     env,
		loader:  &loaderGroup{},
	}

	if err := backend.PostConfig(context.Background()); err != nil {
		return nil, err
	}

	cfg.logger.Info("cache initialised",
		zap.String("name", cfg.name),
		zap.String("backend", backendType),
		zap.Bool("encrypted", env.Encrypted()),
	)
	return c, nil
}

// PostConfig re-runs back-end post-configuration. Exposed for callers that
// manage their own config-reload cycle, mirroring a config/post_config/
// child_init lifecycle split.
func (c *Cache) PostConfig(ctx context.Context) error {
	return c.backend.PostConfig(ctx)
}

// ChildInit re-attaches back-end resources after a fork/re-exec.
func (c *Cache) ChildInit(ctx context.Context) error {
	return c.backend.ChildInit(ctx)
}

// Name returns this handle's configured name ("name" option,
// defaulting to "default").
func (c *Cache) Name() string { return c.cfg.name }

// Get returns the cached value for key. A failed decrypt/authentication is
// treated as a miss, never surfaced as an error or a corrupted hit.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	hashed := c.env.HashKey(key)

	raw, ok, err := c.backend.Get(ctx, hashed)
	if err != nil {
		c.cfg.metrics.incError(c.cfg.name, c.desc.Name)
		return nil, false, err
	}
	if !ok {
		c.cfg.metrics.incMiss(c.cfg.name, c.desc.Name)
		return nil, false, nil
	}

	plaintext, err := c.env.Open(raw)
	if err != nil {
		c.cfg.logger.Warn("cache entry failed authentication, treating as miss",
			zap.String("name", c.cfg.name), zap.String("backend", c.desc.Name))
		c.cfg.metrics.incMiss(c.cfg.name, c.desc.Name)
		return nil, false, nil
	}

	c.cfg.metrics.incHit(c.cfg.name, c.desc.Name)
	return plaintext, true, nil
}

// Set stores value for ttl. value==nil or ttl<=0 deletes the key; deletes
// are idempotent and never error solely because the key was already absent.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	hashed := c.env.HashKey(key)

	var sealed []byte
	if value != nil && ttl > 0 {
		var err error
		sealed, err = c.env.Seal(value)
		if err != nil {
			c.cfg.metrics.incError(c.cfg.name, c.desc.Name)
			return newError(KindCryptoFailure, "sealing cache value", err)
		}
	}

	if err := c.backend.Set(ctx, hashed, sealed, ttl); err != nil {
		c.cfg.metrics.incError(c.cfg.name, c.desc.Name)
		return err
	}
	c.cfg.metrics.incSet(c.cfg.name, c.desc.Name)

	if counter, ok := c.backend.(entryCounter); ok {
		c.cfg.metrics.setEntries(c.cfg.name, c.desc.Name, float64(counter.Len()))
	}
	return nil
}

// entryCounter is implemented by back-ends that can report their current
// live entry count (shmstore.Backend, whose slot array has a fixed size).
// Back-ends without a meaningful notion of "live entries" in this process
// (file/memcache/redis all expire server-side or on disk) simply don't
// implement it, and setEntries is never called for them.
type entryCounter interface {
	Len() int
}

// Close releases the underlying back-end. Prefer Release (pool.go) for
// handles obtained through Obtain, so reference counting stays correct.
func (c *Cache) Close() error {
	return c.backend.Close()
}
