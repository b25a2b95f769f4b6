// Package filestore implements the "file" back-end: one file per key under a
// configured directory, swept periodically for expired entries.
// github.com/gofrs/flock provides the advisory, cross-process file lock that
// coordinates the sweep between cooperating processes sharing the same
// directory. Get and Set take no lock; Set relies on an atomic rename.
//
// © 2025 oauth2-cache authors. MIT License.
package filestore

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	cache "github.com/zmartzone/oauth2-cache/pkg"
)

func init() {
	cache.RegisterBackend(cache.Descriptor{
		Name:           "file",
		DefaultEncrypt: true,
		New:            newBackend,
	})
}

const headerSize = 8 // big-endian unix expiry seconds

// Backend implements cache.Backend for type=file. Each key maps to exactly
// one file named "<prefix>-<sanitised-key>" under dir; the file's first 8
// bytes are a big-endian expiry timestamp, the remainder is the opaque
// payload the façade handed us (already sealed by the envelope).
type Backend struct {
	dir    string
	prefix string

	cleanInterval time.Duration

	sweepMu  sync.Mutex // serialises this process's own sweep goroutine
	lockPath string

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	now func() time.Time
}

func newBackend(opts cache.Options) (cache.Backend, error) {
	dir := opts.GetDefault("dir", os.TempDir())
	prefix := opts.GetDefault("prefix", "oauth2")
	if strings.ContainsAny(prefix, "/\\") {
		return nil, cache.NewBackendError(cache.KindInvalidConfig, "prefix must not contain path separators", nil)
	}

	return &Backend{
		dir:           dir,
		prefix:        prefix,
		cleanInterval: opts.GetDuration("clean_interval", 60*time.Second),
		lockPath:      filepath.Join(dir, "."+prefix+".sweep.lock"),
		stopCh:        make(chan struct{}),
		now:           time.Now,
	}, nil
}

// PostConfig creates dir if needed and starts the background sweep loop.
func (b *Backend) PostConfig(ctx context.Context) error {
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return cache.NewBackendError(cache.KindIO, "creating cache directory", err)
	}
	if b.cleanInterval > 0 {
		b.wg.Add(1)
		go b.sweepLoop()
	}
	return nil
}

// ChildInit re-opens nothing: file handles are opened per-call, so a
// fork/re-exec needs no reattachment here.
func (b *Backend) ChildInit(ctx context.Context) error { return nil }

// Close stops the sweep loop.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
	return nil
}

func (b *Backend) path(key string) string {
	return filepath.Join(b.dir, b.prefix+"-"+sanitise(key))
}

// sanitise replaces path-separator characters so a hashed or raw key can
// never escape dir. Hashed keys (the common case) are already hex and
// need no sanitising; this only matters when key_hash_algo=none.
func sanitise(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "__")
	return r.Replace(key)
}

// Get reads the file for key, returning a miss if it is absent or expired.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, cache.NewBackendError(cache.KindIO, "reading cache file", err)
	}
	if len(data) < headerSize {
		return nil, false, cache.NewBackendError(cache.KindCorruption, "truncated cache file header", nil)
	}

	expiry := int64(binary.BigEndian.Uint64(data[:headerSize]))
	if expiry <= b.now().Unix() {
		_ = os.Remove(b.path(key))
		return nil, false, nil
	}

	payload := make([]byte, len(data)-headerSize)
	copy(payload, data[headerSize:])
	return payload, true, nil
}

// Set writes (or deletes) the file for key. Writes are atomic: content is
// written to a temp file in dir and renamed into place, so a concurrent
// reader never observes a partial file.
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	target := b.path(key)

	if value == nil || ttl <= 0 {
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return cache.NewBackendError(cache.KindIO, "removing cache file", err)
		}
		return nil
	}

	var buf bytes.Buffer
	var header [headerSize]byte
	binary.BigEndian.PutUint64(header[:], uint64(b.now().Add(ttl).Unix()))
	buf.Write(header[:])
	buf.Write(value)

	tmp, err := os.CreateTemp(b.dir, "."+b.prefix+"-tmp-*")
	if err != nil {
		return cache.NewBackendError(cache.KindIO, "creating temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return cache.NewBackendError(cache.KindIO, "writing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return cache.NewBackendError(cache.KindIO, "closing temp file", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return cache.NewBackendError(cache.KindIO, "renaming temp file into place", err)
	}
	return nil
}

// sweepLoop periodically removes expired files. An flock-protected sentinel
// file ensures that when several processes share dir, only one of them
// performs a given interval's sweep ("periodic cleanup, at most
// one sweep per clean_interval across cooperating processes").
func (b *Backend) sweepLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.sweepOnce()
		}
	}
}

func (b *Backend) sweepOnce() {
	b.sweepMu.Lock()
	defer b.sweepMu.Unlock()

	fl := flock.New(b.lockPath)
	locked, err := fl.TryLock()
	if err != nil || !locked {
		return // another process is already sweeping this interval
	}
	defer fl.Unlock()

	// The lock file also records when the last sweep ran, so processes whose
	// tickers fire at different moments still sweep at most once per interval.
	now := b.now().Unix()
	if last, err := os.ReadFile(b.lockPath); err == nil && len(last) == headerSize &&
		now-int64(binary.BigEndian.Uint64(last)) < int64(b.cleanInterval/time.Second) {
		return
	}
	var stamp [headerSize]byte
	binary.BigEndian.PutUint64(stamp[:], uint64(now))
	_ = os.WriteFile(b.lockPath, stamp[:], 0o600)

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return
	}

	pfx := b.prefix + "-"
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasPrefix(ent.Name(), pfx) {
			continue
		}
		full := filepath.Join(b.dir, ent.Name())
		data, err := os.ReadFile(full)
		if err != nil || len(data) < headerSize {
			continue
		}
		expiry := int64(binary.BigEndian.Uint64(data[:headerSize]))
		if expiry <= now {
			_ = os.Remove(full)
		}
	}
}

// statPath reports whether dir/prefix-key exists, for diagnostics.
func (b *Backend) statPath(key string) (os.FileInfo, error) {
	return os.Stat(b.path(key))
}
