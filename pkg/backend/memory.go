package backend

import "sync"

// MemStore keeps the whole device in a byte slice. It is meant for tests
// that need a Store without touching the filesystem. It cannot be resized.
type MemStore struct {
	data []byte
	mu   sync.RWMutex
}

func NewMemStore(size int64) *MemStore {
	return &MemStore{
		data: make([]byte, size),
	}
}

func (m *MemStore) ReadAt(p []byte, off int64) (n int, err error) {
	length := int64(len(p))
	if length+off > int64(len(m.data)) {
		length = int64(len(m.data)) - off
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n = copy(p, m.data[off:off+length])

	return n, nil
}

func (m *MemStore) WriteAt(p []byte, off int64) (n int, err error) {
	length := int64(len(p))
	if length+off > int64(len(m.data)) {
		length = int64(len(m.data)) - off
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n = copy(m.data[off:off+length], p)

	return n, nil
}

func (m *MemStore) Sync() error {
	return nil
}

func (m *MemStore) Size() int64 {
	return int64(len(m.data))
}

func (m *MemStore) Close() error {
	return nil
}
