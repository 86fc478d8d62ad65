package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlobStoreRoundTrip(t *testing.T) {
	s := NewMemoryBlobStore()
	ok, err := s.Contains("abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put("abc", []byte("hello")))
	ok, err = s.Contains("abc")
	require.NoError(t, err)
	assert.True(t, ok)

	data, ok, err := s.Get("abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), data)
}

func TestLogBlobStorePersistsAndRecovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blobs.log")

	s, err := NewLogBlobStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("id1", []byte("one")))
	require.NoError(t, s.Put("id2", []byte("two")))
	// Writing the same id twice is a no-op, not a duplicate append.
	require.NoError(t, s.Put("id1", []byte("one")))
	require.NoError(t, s.Close())

	reopened, err := NewLogBlobStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, ok, err := reopened.Get("id1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), data)

	data, ok, err = reopened.Get("id2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), data)

	ok, err = reopened.Contains("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSBlobStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSBlobStore(dir)
	require.NoError(t, err)

	id := "abcdef1234567890"
	require.NoError(t, s.Put(id, []byte("payload")))
	ok, err := s.Contains(id)
	require.NoError(t, err)
	assert.True(t, ok)

	data, ok, err := s.Get(id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), data)
}
