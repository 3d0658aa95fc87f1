package backend

import (
	"io"
)

// Kind selects the store implementation used behind a volume.
type Kind string

const (
	KindFile Kind = "file"
	KindMmap Kind = "mmap"

	// KindMem is volatile and never reports a pre-existing device. It is
	// meant for tests and throwaway simulations.
	KindMem Kind = "mem"
)

// Store is the byte-addressable storage behind an open volume.
// Reads and writes are positioned and must not share a file cursor,
// so independent offsets are safe to access concurrently.
type Store interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Sync() error
	Size() int64
}

// Open provisions the backing file at path and returns a store of the
// requested kind. The existed flag reports whether the file was already
// present before the call.
func Open(kind Kind, path string, size int64) (Store, bool, error) {
	switch kind {
	case KindMmap:
		return OpenMmapStore(path, size)
	case KindMem:
		return NewMemStore(size), false, nil
	default:
		return OpenFileStore(path, size)
	}
}
