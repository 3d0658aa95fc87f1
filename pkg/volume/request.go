package volume

import "sync/atomic"

type Direction int

const (
	DirectionRead Direction = iota
	DirectionWrite
)

func (d Direction) String() string {
	if d == DirectionWrite {
		return "write"
	}

	return "read"
}

// Completion reports the outcome of a request. It is invoked exactly once,
// with a nil error on success.
type Completion func(err error)

// Request is one read, write, flush, or discard operation. The request and
// its buffer are owned by the caller; the volume only touches the buffer
// during the transfer.
type Request struct {
	direction Direction
	address   uint64
	bytes     int64

	data       *Buffer
	dataOffset int64

	complete Completion

	done      atomic.Bool
	cancelled atomic.Bool
}

func NewRequest(direction Direction, address uint64, bytes int64, complete Completion) *Request {
	return &Request{
		direction: direction,
		address:   address,
		bytes:     bytes,
		complete:  complete,
	}
}

// NewFlushRequest builds a request for SubmitFlush. Flush carries no range
// and no buffer.
func NewFlushRequest(complete Completion) *Request {
	return &Request{
		complete: complete,
	}
}

// NewDiscardRequest marks [address, address+bytes) as reclaimable.
func NewDiscardRequest(address uint64, bytes int64, complete Completion) *Request {
	return &Request{
		address:  address,
		bytes:    bytes,
		complete: complete,
	}
}

func (r *Request) Direction() Direction {
	return r.direction
}

func (r *Request) Address() uint64 {
	return r.address
}

func (r *Request) Bytes() int64 {
	return r.bytes
}

// SetData binds the buffer the transfer goes through, starting at offset
// within that buffer. It may be called again to rebind a reused request
// before resubmission.
func (r *Request) SetData(data *Buffer, offset int64) {
	r.data = data
	r.dataOffset = offset
}

// Data returns the bound buffer and the offset within it.
func (r *Request) Data() (*Buffer, int64) {
	return r.data, r.dataOffset
}

// Cancel marks the request so a deferred execution completes it with
// CancelledError instead of transferring. Cancelling after completion has
// no effect.
func (r *Request) Cancel() {
	r.cancelled.Store(true)
}

func (r *Request) Cancelled() bool {
	return r.cancelled.Load()
}

// Done reports whether the completion has been delivered.
func (r *Request) Done() bool {
	return r.done.Load()
}

// finish delivers the completion. The CAS guarantees exactly-once delivery
// no matter how many paths try to complete the request.
func (r *Request) finish(err error) bool {
	if !r.done.CompareAndSwap(false, true) {
		return false
	}

	if r.complete != nil {
		r.complete(err)
	}

	return true
}
