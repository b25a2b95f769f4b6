package memcachestore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cache "github.com/zmartzone/oauth2-cache/pkg"
)

func TestNewBackendRejectsEmptyServers(t *testing.T) {
	opts, err := cache.ParseOptions("servers=")
	require.NoError(t, err)
	_, err = newBackend(opts)
	require.Error(t, err)

	kind, ok := cache.KindOf(err)
	require.True(t, ok)
	require.Equal(t, cache.KindInvalidConfig, kind)
}

func TestNewBackendDefaultsToLocalhost(t *testing.T) {
	opts, err := cache.ParseOptions("")
	require.NoError(t, err)
	b, err := newBackend(opts)
	require.NoError(t, err)
	require.NotNil(t, b)
}

// TestBackendRoundTrip only runs against a real memcached instance, reached
// via OAUTH2_CACHE_TEST_MEMCACHE_SERVERS (e.g. "127.0.0.1:11211"). It is
// skipped by default since this package's Get/Set are thin protocol
// adapters with no client-side logic worth exercising against a fake.
func TestBackendRoundTrip(t *testing.T) {
	servers := os.Getenv("OAUTH2_CACHE_TEST_MEMCACHE_SERVERS")
	if servers == "" {
		t.Skip("set OAUTH2_CACHE_TEST_MEMCACHE_SERVERS to run against a live memcached")
	}

	opts, err := cache.ParseOptions("servers=" + servers)
	require.NoError(t, err)
	b, err := newBackend(opts)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "piet", []byte("klaas"), time.Minute))

	v, ok, err := b.Get(ctx, "piet")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("klaas"), v)

	require.NoError(t, b.Set(ctx, "piet", nil, 0))
	_, ok, err = b.Get(ctx, "piet")
	require.NoError(t, err)
	require.False(t, ok)
}
