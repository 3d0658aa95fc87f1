package volume

// Buffer is a non-owning view over caller memory. The backend only reads or
// writes through it while a request executes and never retains it.
type Buffer struct {
	p []byte
}

func NewBuffer(p []byte) *Buffer {
	return &Buffer{p: p}
}

func (b *Buffer) Len() int64 {
	return int64(len(b.p))
}

// slice returns the transfer window inside the buffer. Transfers always go
// through here so the buffer offset is honored instead of assuming the
// region starts at byte 0.
func (b *Buffer) slice(off, length int64) ([]byte, error) {
	if off < 0 || length < 0 || off+length > int64(len(b.p)) {
		return nil, BufferRangeError{
			Offset: off,
			Bytes:  length,
			Len:    int64(len(b.p)),
		}
	}

	return b.p[off : off+length], nil
}
