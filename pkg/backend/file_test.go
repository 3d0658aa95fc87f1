package backend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFileStoreFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core")
	size := int64(1 << 20)

	store, existed, err := OpenFileStore(path, size)
	require.NoError(t, err, "Failed to provision fresh store")
	defer store.Close()

	assert.False(t, existed, "Fresh file reported as pre-existing")
	assert.Equal(t, size, store.Size())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, size, info.Size(), "Backing file not extended to capacity")
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core")

	store, _, err := OpenFileStore(path, 1<<20)
	require.NoError(t, err)
	defer store.Close()

	data := []byte("Hello, World!")
	off := int64(4096)

	n, err := store.WriteAt(data, off)
	require.NoError(t, err, "Failed to write data")
	assert.Equal(t, len(data), n)

	readData := make([]byte, len(data))
	n, err = store.ReadAt(readData, off)
	require.NoError(t, err, "Failed to read data")
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, readData, "Read data mismatch")
}

func TestFileStoreReopenPreservesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache")
	size := int64(1 << 20)

	store, _, err := OpenFileStore(path, size)
	require.NoError(t, err)

	data := []byte("survives reopen")
	_, err = store.WriteAt(data, 0)
	require.NoError(t, err)

	require.NoError(t, store.Sync())
	require.NoError(t, store.Close())

	store, existed, err := OpenFileStore(path, size)
	require.NoError(t, err)
	defer store.Close()

	assert.True(t, existed, "Existing file not detected")

	readData := make([]byte, len(data))
	_, err = store.ReadAt(readData, 0)
	require.NoError(t, err)
	assert.Equal(t, data, readData, "Content lost across reopen")
}

func TestFileStoreUnwrittenReadsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core")

	store, _, err := OpenFileStore(path, 1<<20)
	require.NoError(t, err)
	defer store.Close()

	readData := make([]byte, 512)
	_, err = store.ReadAt(readData, 8192)
	require.NoError(t, err)

	for i, b := range readData {
		require.Zerof(t, b, "unwritten byte %d is not zero", i)
	}
}

func TestFileStoreAllocatedSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core")
	size := int64(1 << 20)

	store, _, err := OpenFileStore(path, size)
	require.NoError(t, err)
	defer store.Close()

	allocated, err := store.AllocatedSize()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, allocated, int64(0))

	// fallocate may or may not reserve the blocks depending on the
	// filesystem, so only the upper bound is meaningful.
	assert.LessOrEqual(t, allocated, 2*size, "Allocated far more than capacity")
}
