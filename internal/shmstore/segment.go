// Package shmstore implements the "shm" back-end: a fixed-capacity,
// in-process key/value store with LRU eviction and per-slot locking.
// Rather than an experimental arena allocator generic over any value type,
// it pre-allocates two contiguous []byte segments (one for keys, one for
// values) sized maxEntries*maxKeySize/maxValSize at PostConfig time and
// slices them per slot. There are no intra-segment pointers - slots are
// addressed purely by index - so a segment could in principle be mapped at
// different addresses in different processes.
//
// © 2025 oauth2-cache authors. MIT License.
package shmstore

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/zmartzone/oauth2-cache/pkg"
)

func init() {
	cache.RegisterBackend(cache.Descriptor{
		Name:           "shm",
		DefaultEncrypt: true,
		New:            newBackend,
	})
}

// slot is one fixed-size cell of the segment: an occupied flag, key/value
// windows into the segment's backing arenas, an absolute expiry timestamp
// and a last-access timestamp for LRU, each guarded by its own mutex.
// occupied/expiry/lastAccess are additionally mirrored in atomics so the
// segment-level scan (finding an empty slot or an LRU victim) never needs to
// take a slot's mutex just to skip it.
type slot struct {
	mu sync.RWMutex

	occupied   atomic.Bool
	expiry     atomic.Int64 // unix seconds, 0 == no slot written yet
	lastAccess atomic.Int64 // unix nanos

	key   []byte // sub-slice of the key arena, len <= maxKeySize
	value []byte // sub-slice of the value arena, len <= maxValSize
}

// Backend implements cache.Backend for type=shm.
type Backend struct {
	maxKeySize int
	maxValSize int
	maxEntries int

	segMu sync.Mutex // guards slot allocation/eviction decisions only
	slots []slot
	keyArena   []byte
	valArena   []byte

	now func() time.Time // overridable for tests
}

func newBackend(opts cache.Options) (cache.Backend, error) {
	b := &Backend{
		maxKeySize: opts.GetInt("max_key_size", 64),
		maxValSize: opts.GetInt("max_val_size", 1024),
		maxEntries: opts.GetInt("max_entries", 1000),
		now:        time.Now,
	}
	if b.maxKeySize <= 0 || b.maxValSize <= 0 || b.maxEntries <= 0 {
		return nil, cacheErr(cache.KindInvalidConfig, "max_key_size, max_val_size and max_entries must all be positive", nil)
	}
	return b, nil
}

// PostConfig allocates the segment: the slot array plus the two contiguous
// backing arenas for keys and values. Called exactly once before first use.
func (b *Backend) PostConfig(ctx context.Context) error {
	b.slots = make([]slot, b.maxEntries)
	b.keyArena = make([]byte, b.maxEntries*b.maxKeySize)
	b.valArena = make([]byte, b.maxEntries*b.maxValSize)
	return nil
}

// ChildInit is a no-op: this back-end owns no OS-level resource that a
// fork/re-exec would invalidate (unlike the APR shared-memory segment the
// original C implementation re-attaches here).
func (b *Backend) ChildInit(ctx context.Context) error { return nil }

// Close releases the segment.
func (b *Backend) Close() error {
	b.segMu.Lock()
	defer b.segMu.Unlock()
	b.slots = nil
	b.keyArena = nil
	b.valArena = nil
	return nil
}

// Get implements : scan slots, take a short read lock on each
// occupied one, return on key match (clearing it first if expired).
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	kb := []byte(key)

	for i := range b.slots {
		s := &b.slots[i]
		if !s.occupied.Load() {
			continue
		}

		s.mu.RLock()
		matched := s.occupied.Load() && bytes.Equal(s.key, kb)
		if !matched {
			s.mu.RUnlock()
			continue
		}
		expiry := s.expiry.Load()
		if expiry <= b.now().Unix() {
			s.mu.RUnlock()
			b.clearSlot(s, kb)
			return nil, false, nil
		}

		val := make([]byte, len(s.value))
		copy(val, s.value)
		s.mu.RUnlock()

		s.lastAccess.Store(b.now().UnixNano())
		return val, true, nil
	}

	return nil, false, nil
}

// clearSlot upgrades to a write lock and clears s, but only if it still
// holds key - another goroutine may have already reused the slot between
// our read-unlock and this call.
func (b *Backend) clearSlot(s *slot, key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.occupied.Load() && bytes.Equal(s.key, key) {
		s.occupied.Store(false)
	}
}

// Set implements : delete on value==nil||ttl<=0 (idempotent),
// overwrite on existing key, else claim an empty slot or evict the LRU
// victim (expired-preferred, then lowest index as a deterministic
// tie-break).
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	kb := []byte(key)

	if value == nil || ttl <= 0 {
		b.delete(kb)
		return nil
	}
	if len(kb) > b.maxKeySize {
		return cacheErr(cache.KindSizeLimitExceeded, "key exceeds max_key_size", nil)
	}
	if len(value) > b.maxValSize {
		return cacheErr(cache.KindSizeLimitExceeded, "value exceeds max_val_size", nil)
	}

	now := b.now()
	expiry := now.Add(ttl).Unix()

	b.segMu.Lock()
	idx, ok := b.findByKey(kb)
	if !ok {
		idx, ok = b.findEmpty()
	}
	if !ok {
		idx = b.pickVictim(now)
	}
	s := &b.slots[idx]

	s.mu.Lock()
	keyWin := b.keyArena[idx*b.maxKeySize : idx*b.maxKeySize+b.maxKeySize]
	valWin := b.valArena[idx*b.maxValSize : idx*b.maxValSize+b.maxValSize]
	copy(keyWin, kb)
	copy(valWin, value)
	s.key = keyWin[:len(kb)]
	s.value = valWin[:len(value)]
	s.expiry.Store(expiry)
	s.lastAccess.Store(now.UnixNano())
	s.occupied.Store(true)
	s.mu.Unlock()
	b.segMu.Unlock()

	return nil
}

// delete locates the slot holding key (if any) and frees it. Always
// succeeds, even if the key was never present.
func (b *Backend) delete(key []byte) {
	b.segMu.Lock()
	idx, ok := b.findByKey(key)
	b.segMu.Unlock()
	if !ok {
		return
	}
	s := &b.slots[idx]
	s.mu.Lock()
	if bytes.Equal(s.key, key) {
		s.occupied.Store(false)
	}
	s.mu.Unlock()
}

// findByKey must be called with segMu held. It takes each candidate slot's
// read lock only long enough to compare keys.
func (b *Backend) findByKey(key []byte) (int, bool) {
	for i := range b.slots {
		s := &b.slots[i]
		if !s.occupied.Load() {
			continue
		}
		s.mu.RLock()
		match := s.occupied.Load() && bytes.Equal(s.key, key)
		s.mu.RUnlock()
		if match {
			return i, true
		}
	}
	return 0, false
}

// findEmpty must be called with segMu held.
func (b *Backend) findEmpty() (int, bool) {
	for i := range b.slots {
		if !b.slots[i].occupied.Load() {
			return i, true
		}
	}
	return 0, false
}

// pickVictim selects the LRU eviction target: smallest lastAccess, ties
// broken in favour of an already-expired slot, further ties broken by the
// lowest slot index.
func (b *Backend) pickVictim(now time.Time) int {
	best := 0
	bestLA := b.slots[0].lastAccess.Load()
	bestExpired := b.slots[0].expiry.Load() <= now.Unix()

	for i := 1; i < len(b.slots); i++ {
		la := b.slots[i].lastAccess.Load()
		expired := b.slots[i].expiry.Load() <= now.Unix()

		switch {
		case la < bestLA:
			best, bestLA, bestExpired = i, la, expired
		case la == bestLA && expired && !bestExpired:
			best, bestLA, bestExpired = i, la, expired
		}
	}
	return best
}

// Len returns the number of currently occupied slots - used by the façade's
// entries gauge, not part of the Backend contract.
func (b *Backend) Len() int {
	n := 0
	for i := range b.slots {
		if b.slots[i].occupied.Load() {
			n++
		}
	}
	return n
}

func cacheErr(kind cache.ErrorKind, msg string, cause error) error {
	return cache.NewBackendError(kind, msg, cause)
}
