package volume

import "fmt"

// OutOfRangeError is returned to a request whose transfer would run past
// the volume capacity.
type OutOfRangeError struct {
	Address  uint64
	Bytes    int64
	Capacity int64
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("request range [%d, %d) exceeds volume capacity %d", e.Address, e.Address+uint64(e.Bytes), e.Capacity)
}

// InvalidStateError reports an operation attempted outside the state that
// permits it, e.g. submitting to a closed volume or closing twice.
type InvalidStateError struct {
	Op    string
	State State
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("invalid %s: volume is %s", e.Op, e.State)
}

// BufferRangeError reports a transfer that does not fit in the bound data
// buffer, or a request submitted without a buffer at all.
type BufferRangeError struct {
	Offset int64
	Bytes  int64
	Len    int64
}

func (e BufferRangeError) Error() string {
	return fmt.Sprintf("transfer of %d bytes at buffer offset %d exceeds buffer length %d", e.Bytes, e.Offset, e.Len)
}

// CancelledError completes a request that was cancelled before its transfer
// executed.
type CancelledError struct{}

func (CancelledError) Error() string {
	return "request cancelled before execution"
}
