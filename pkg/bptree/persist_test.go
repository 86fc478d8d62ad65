package bptree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freyjatree/pkg/storage"
)

func TestCommitAndLoadRoundTrip(t *testing.T) {
	store := storage.NewMemoryBlobStore()
	tr := New[int, string](intCmp, WithFanout[int, string](4), WithStore[int, string](store))
	for i := 0; i < 40; i++ {
		_, err := tr.Set(i, "v", true)
		require.NoError(t, err)
	}
	rootID, err := tr.Commit()
	require.NoError(t, err)
	require.NotEmpty(t, rootID)

	loaded, err := Load[int, string](rootID, intCmp, store, WithFanout[int, string](4))
	require.NoError(t, err)
	require.NoError(t, loaded.CheckValid())

	for i := 0; i < 40; i++ {
		v, ok, err := loaded.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "v", v)
	}

	sz, err := loaded.Size()
	require.NoError(t, err)
	assert.Equal(t, 40, sz)
}

func TestCommitIsIdempotent(t *testing.T) {
	store := storage.NewMemoryBlobStore()
	tr := New[int, string](intCmp, WithStore[int, string](store))
	_, err := tr.Set(1, "a", true)
	require.NoError(t, err)
	id1, err := tr.Commit()
	require.NoError(t, err)
	id2, err := tr.Commit()
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestRangeScanOnLoadedTree(t *testing.T) {
	store := storage.NewMemoryBlobStore()
	tr := New[int, string](intCmp, WithFanout[int, string](4), WithStore[int, string](store))
	for i := 0; i < 100; i++ {
		_, err := tr.Set(i, "v", true)
		require.NoError(t, err)
	}
	rootID, err := tr.Commit()
	require.NoError(t, err)

	loaded, err := Load[int, string](rootID, intCmp, store, WithFanout[int, string](4))
	require.NoError(t, err)

	pairs, err := loaded.GetRange(ptr(5), ptr(8), true, true)
	require.NoError(t, err)
	assert.Len(t, pairs, 4)
}
