package backend

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMmapStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache")

	store, existed, err := OpenMmapStore(path, 1<<20)
	require.NoError(t, err, "Failed to create mmap store")
	defer store.Close()

	assert.False(t, existed)
	assert.Equal(t, int64(1<<20), store.Size())
}

func TestMmapStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache")

	store, _, err := OpenMmapStore(path, 1<<20)
	require.NoError(t, err)
	defer store.Close()

	data := []byte("Hello, World!")
	off := int64(0)

	n, err := store.WriteAt(data, off)
	require.NoError(t, err, "Failed to write data")
	assert.Equal(t, len(data), n)

	readData := make([]byte, len(data))
	n, err = store.ReadAt(readData, off)
	require.NoError(t, err, "Failed to read data")
	assert.Equal(t, len(data), n)
	assert.Equal(t, string(data), string(readData), "Read data mismatch")

	require.NoError(t, store.Sync())
}

func TestMmapStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache")

	store, _, err := OpenMmapStore(path, 1<<20)
	require.NoError(t, err)

	data := []byte("mapped and flushed")
	_, err = store.WriteAt(data, 4096)
	require.NoError(t, err)

	require.NoError(t, store.Close())

	reopened, existed, err := OpenMmapStore(path, 1<<20)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, existed)

	readData := make([]byte, len(data))
	_, err = reopened.ReadAt(readData, 4096)
	require.NoError(t, err)
	assert.Equal(t, data, readData)
}
