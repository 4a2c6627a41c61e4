package fetch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uscchron/chronicle/internal/logging"
)

type fakeBlobStore struct {
	data map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{data: make(map[string][]byte)}
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok := f.data[key]
	return data, ok, nil
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte) error {
	f.data[key] = data
	return nil
}

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{Level: logging.InfoLevel, Format: logging.TextFormat})
}

func TestLocalCacheMissWithNoRemote(t *testing.T) {
	cache, err := NewLocalCache(t.TempDir(), nil, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	_, ok, err := cache.Get(context.Background(), "titles/15.xml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalCachePutThenGet(t *testing.T) {
	cache, err := NewLocalCache(t.TempDir(), nil, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Put(context.Background(), "titles/15.xml", []byte("title data")))

	data, ok, err := cache.Get(context.Background(), "titles/15.xml")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "title data", string(data))
}

func TestLocalCacheFallsThroughToRemoteAndPopulates(t *testing.T) {
	remote := newFakeBlobStore()
	remote.data["laws/118-1.xml"] = []byte("remote law text")

	cache, err := NewLocalCache(t.TempDir(), remote, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	data, ok, err := cache.Get(context.Background(), "laws/118-1.xml")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "remote law text", string(data))

	delete(remote.data, "laws/118-1.xml")
	data, ok, err = cache.Get(context.Background(), "laws/118-1.xml")
	require.NoError(t, err)
	require.True(t, ok, "the remote fetch populated the cache's own dir")
	assert.Equal(t, "remote law text", string(data))

	localOnly, err := NewLocalCache(t.TempDir(), nil, testLogger())
	require.NoError(t, err)
	defer localOnly.Close()
	_, ok, err = localOnly.Get(context.Background(), "laws/118-1.xml")
	require.NoError(t, err)
	assert.False(t, ok, "remote population happens in the cache's own dir, not an unrelated one")
}

func TestLocalCachePutWritesThroughToRemote(t *testing.T) {
	remote := newFakeBlobStore()
	cache, err := NewLocalCache(t.TempDir(), remote, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Put(context.Background(), "titles/26.xml", []byte("title 26")))
	assert.Equal(t, []byte("title 26"), remote.data["titles/26.xml"])
}
