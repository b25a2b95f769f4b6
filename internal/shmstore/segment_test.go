package shmstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cache "github.com/zmartzone/oauth2-cache/pkg"
)

func newTestBackend(t *testing.T, raw string) *Backend {
	t.Helper()
	opts, err := cache.ParseOptions(raw)
	require.NoError(t, err)

	b, err := newBackend(opts)
	require.NoError(t, err)

	impl := b.(*Backend)
	require.NoError(t, impl.PostConfig(context.Background()))
	return impl
}

func TestSegmentSetGetRoundTrip(t *testing.T) {
	b := newTestBackend(t, "max_entries=4")
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "piet", []byte("klaas"), time.Minute))

	v, ok, err := b.Get(ctx, "piet")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("klaas"), v)
}

func TestSegmentMissForUnknownKey(t *testing.T) {
	b := newTestBackend(t, "max_entries=4")
	_, ok, err := b.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSegmentExpiry(t *testing.T) {
	b := newTestBackend(t, "max_entries=4")
	fake := time.Now()
	b.now = func() time.Time { return fake }

	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "piet", []byte("klaas"), time.Second))

	fake = fake.Add(2 * time.Second)
	_, ok, err := b.Get(ctx, "piet")
	require.NoError(t, err)
	require.False(t, ok, "entry should have expired")
}

func TestSegmentOverwriteSameKeyDoesNotConsumeExtraSlot(t *testing.T) {
	b := newTestBackend(t, "max_entries=2")
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("v1"), time.Minute))
	require.NoError(t, b.Set(ctx, "k", []byte("v2"), time.Minute))

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), v)
	require.Equal(t, 1, b.Len())
}

func TestSegmentDeleteIsIdempotent(t *testing.T) {
	b := newTestBackend(t, "max_entries=2")
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, b.Set(ctx, "k", nil, 0))
	require.NoError(t, b.Set(ctx, "k", nil, 0), "deleting an absent key must still succeed")

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSegmentEvictsLRUWhenFull(t *testing.T) {
	b := newTestBackend(t, "max_entries=2")
	ctx := context.Background()
	fake := time.Now()
	b.now = func() time.Time { return fake }

	require.NoError(t, b.Set(ctx, "a", []byte("1"), time.Hour))
	fake = fake.Add(time.Second)
	require.NoError(t, b.Set(ctx, "b", []byte("2"), time.Hour))

	// touch "b" so "a" becomes the least-recently-used entry.
	fake = fake.Add(time.Second)
	_, _, err := b.Get(ctx, "b")
	require.NoError(t, err)

	fake = fake.Add(time.Second)
	require.NoError(t, b.Set(ctx, "c", []byte("3"), time.Hour))

	_, ok, err := b.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok, "least recently used entry should have been evicted")

	_, ok, err = b.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Get(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSegmentRejectsOversizedValue(t *testing.T) {
	b := newTestBackend(t, "max_entries=2&max_val_size=4")
	err := b.Set(context.Background(), "k", []byte("too-long"), time.Minute)
	require.Error(t, err)

	kind, ok := cache.KindOf(err)
	require.True(t, ok)
	require.Equal(t, cache.KindSizeLimitExceeded, kind)
}

func TestSegmentConcurrentAccess(t *testing.T) {
	b := newTestBackend(t, "max_entries=16")
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			key := fmt.Sprintf("key-%d", i)
			for j := 0; j < 50; j++ {
				require.NoError(t, b.Set(ctx, key, []byte("v"), time.Minute))
				b.Get(ctx, key)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
