package cache

// backend.go declares the Backend "vtable" contract every concrete KV
// implementation (shm/file/memcache/redis) must satisfy, plus the Descriptor
// record that the registry (registry.go) keeps one of per back-end kind.
//
// Descriptor is an immutable record per back-end kind holding a name, a
// default-encrypt flag, and the operations every back-end must provide
// (init, post_config, child_init, get, set - free is modelled as io.Closer
// so back-ends compose with other Go resource-management idioms).
//
// © 2025 oauth2-cache authors. MIT License.

import (
	"context"
	"io"
	"time"
)

// Backend is the contract every cache back-end implements. The façade (F)
// is the only caller; back-ends never see the envelope, encryption key, or
// refcount - those live one layer up in Cache.
type Backend interface {
	// PostConfig finalises resources (allocating a segment, opening a
	// connection pool, ...). Called exactly once before first use.
	PostConfig(ctx context.Context) error

	// ChildInit re-attaches resources after a fork/re-exec. Back-ends with
	// no OS-level resource to reattach may no-op.
	ChildInit(ctx context.Context) error

	// Get returns (value, true, nil) on hit, (nil, false, nil) on miss
	// (including expiry), and (nil, false, err) only on a hard failure
	// (I/O, network, lock). Never returns true with a nil value.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value for ttl. ttl<=0 or value==nil deletes the key and
	// MUST succeed even if the key is already absent (idempotent delete).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	io.Closer
}

// Constructor builds a Backend from parsed Options. Returning a non-nil
// error here is how a back-end rejects invalid configuration at Init time.
type Constructor func(opts Options) (Backend, error)

// Descriptor is the immutable per-back-end-kind record self-registered by
// each back-end package's init().
type Descriptor struct {
	// Name is the back-end keyword used in the "type" configuration field,
	// e.g. "shm", "file", "memcache", "redis".
	Name string

	// DefaultEncrypt is the encryption default for this back-end kind
	// absent an explicit "encrypt" option. : shm/file default to
	// encrypted, remote back-ends default to encrypted too unless
	// overridden - i.e. every built-in back-end defaults true.
	DefaultEncrypt bool

	// New constructs a fresh Backend instance from options. PostConfig has
	// not been called yet when New returns.
	New Constructor
}
