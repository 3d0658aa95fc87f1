package volume

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// BlockSize is the granularity of the written-block tracking.
const BlockSize = 4096

// Marker tracks which blocks of a volume have been written during this
// process. Discards clear marks. It is accounting for observability only;
// reads never consult it.
type Marker struct {
	bitset *bitset.BitSet
	mu     sync.RWMutex
}

func NewMarker(size uint) *Marker {
	return &Marker{
		bitset: bitset.New(size),
	}
}

func (m *Marker) Mark(block int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bitset.Set(uint(block))
}

func (m *Marker) Clear(block int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bitset.Clear(uint(block))
}

func (m *Marker) IsMarked(block int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.bitset.Test(uint(block))
}

func (m *Marker) Count() uint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.bitset.Count()
}
