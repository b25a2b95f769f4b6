package cache

// pool.go implements a reference-counted named-cache pool: multiple
// independent call sites (e.g. a provider-metadata cache and a
// token-introspection cache configured identically) can share one back-end
// instance by name, and the back-end is only closed once the last caller
// releases it.
//
// © 2025 oauth2-cache authors. MIT License.

import "sync"

type pooledCache struct {
	cache *Cache
	refs  int
}

var (
	poolMu sync.Mutex
	pool   = map[string]*pooledCache{}
)

// Obtain returns the named cache, creating it via Init(backendType,
// rawOptions, opts...) on first use. Every call increments the reference
// count; pair each Obtain with exactly one Release. Subsequent Obtain calls
// for a name already in the pool return the existing handle and ignore
// backendType/rawOptions/opts - the first caller to obtain a name
// establishes its configuration.
func Obtain(name, backendType, rawOptions string, opts ...Option) (*Cache, error) {
	name = normalizeName(name)

	poolMu.Lock()
	defer poolMu.Unlock()

	if p, ok := pool[name]; ok {
		p.refs++
		return p.cache, nil
	}

	c, err := Init(backendType, rawOptions, append(opts, withName(name))...)
	if err != nil {
		return nil, err
	}
	pool[name] = &pooledCache{cache: c, refs: 1}
	return c, nil
}

// Release decrements name's reference count and closes its back-end once
// the count reaches zero. Releasing a name not currently in the pool is a
// no-op, matching the idempotent-release style of the rest of this package.
func Release(name string) error {
	name = normalizeName(name)

	poolMu.Lock()
	defer poolMu.Unlock()

	p, ok := pool[name]
	if !ok {
		return nil
	}
	p.refs--
	if p.refs > 0 {
		return nil
	}
	delete(pool, name)
	return p.cache.Close()
}

// Clone returns c itself after incrementing its pool reference count, so the
// caller holds its own Release obligation against the same back-end
// instance. If c was never obtained through Obtain (no entry in the pool
// under its own name), Clone is a no-op: a bare *Cache is already a shared
// pointer and Close releases it directly.
func (c *Cache) Clone() *Cache {
	poolMu.Lock()
	defer poolMu.Unlock()

	if p, ok := pool[c.cfg.name]; ok && p.cache == c {
		p.refs++
	}
	return c
}

// RefCount reports the current reference count for name, or 0 if the name
// is not in the pool. Exposed for tests and diagnostics.
func RefCount(name string) int {
	name = normalizeName(name)

	poolMu.Lock()
	defer poolMu.Unlock()
	if p, ok := pool[name]; ok {
		return p.refs
	}
	return 0
}

// normalizeName maps the empty name to "default", matching
// applyCommonOptions's own defaulting (pkg/config.go) so an empty name and
// "default" are always the same pool entry.
func normalizeName(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

// withName forces cfg.name, overriding any "name" option embedded in
// rawOptions, so a pooled cache's name always matches its pool key.
func withName(name string) Option {
	return func(c *config) { c.name = normalizeName(name) }
}
