package backend

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

type FileStore struct {
	file *os.File
	path string
	size int64
}

// OpenFileStore opens the backing file at path, creating and extending it
// to size if it does not exist yet. A pre-existing file is opened without
// truncation so prior content survives re-provisioning.
func OpenFileStore(path string, size int64) (*FileStore, bool, error) {
	existed, err := provision(path, size)
	if err != nil {
		return nil, false, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, existed, fmt.Errorf("error opening backing file: %w", err)
	}

	return &FileStore{
		file: f,
		path: path,
		size: size,
	}, existed, nil
}

// provision creates the backing file and extends it to size. The extension
// is sparse; unwritten regions read as zeroes.
func provision(path string, size int64) (existed bool, err error) {
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("error checking backing file: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return false, fmt.Errorf("error creating backing file: %w", err)
	}

	defer f.Close()

	err = f.Truncate(size)
	if err != nil {
		return false, fmt.Errorf("error extending backing file: %w", err)
	}

	// Reserves the blocks upfront where the filesystem supports it. The
	// sparse file from Truncate is already correct, so failure is fine.
	_ = fallocate(size, f)

	return false, nil
}

func (s *FileStore) ReadAt(b []byte, off int64) (int, error) {
	return s.file.ReadAt(b, off)
}

func (s *FileStore) WriteAt(b []byte, off int64) (int, error) {
	return s.file.WriteAt(b, off)
}

func (s *FileStore) Sync() error {
	err := unix.Fdatasync(int(s.file.Fd()))
	if err != nil {
		return fmt.Errorf("error syncing backing file: %w", err)
	}

	return nil
}

func (s *FileStore) Size() int64 {
	return s.size
}

func (s *FileStore) Close() error {
	err := s.file.Close()
	if err != nil {
		return fmt.Errorf("error closing backing file: %w", err)
	}

	return nil
}

func (s *FileStore) Path() string {
	return s.path
}

// AllocatedSize returns the bytes the backing file occupies on disk, which
// is smaller than Size while the file is still sparse.
func (s *FileStore) AllocatedSize() (int64, error) {
	var stat syscall.Stat_t
	err := syscall.Stat(s.path, &stat)
	if err != nil {
		return 0, fmt.Errorf("failed to get file stats: %w", err)
	}

	return stat.Blocks * 512, nil
}
