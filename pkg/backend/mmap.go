package backend

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

type MmapStore struct {
	file *os.File
	mmap mmap.MMap
	mu   sync.RWMutex
	size int64
}

// OpenMmapStore provisions the backing file like OpenFileStore and maps it
// into memory. Transfers are plain copies against the mapping.
func OpenMmapStore(path string, size int64) (*MmapStore, bool, error) {
	existed, err := provision(path, size)
	if err != nil {
		return nil, false, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, existed, fmt.Errorf("error opening backing file: %w", err)
	}

	mm, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		closeErr := f.Close()

		return nil, existed, errors.Join(fmt.Errorf("error mapping backing file: %w", err), closeErr)
	}

	return &MmapStore{
		mmap: mm,
		file: f,
		size: int64(len(mm)),
	}, existed, nil
}

func (s *MmapStore) ReadAt(b []byte, off int64) (int, error) {
	length := int64(len(b))
	if length+off > s.size {
		length = s.size - off
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return copy(b, s.mmap[off:off+length]), nil
}

func (s *MmapStore) WriteAt(b []byte, off int64) (int, error) {
	length := int64(len(b))
	if length+off > s.size {
		length = s.size - off
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return copy(s.mmap[off:off+length], b), nil
}

func (s *MmapStore) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.mmap.Flush()
	if err != nil {
		return fmt.Errorf("error flushing mapping: %w", err)
	}

	return nil
}

func (s *MmapStore) Size() int64 {
	return s.size
}

func (s *MmapStore) Close() error {
	flushErr := s.mmap.Flush()

	mmapErr := s.mmap.Unmap()
	closeErr := s.file.Close()

	return errors.Join(flushErr, mmapErr, closeErr)
}
