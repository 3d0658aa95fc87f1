package volume

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/blocklab/volsim/pkg/backend"
)

const (
	// DefaultCapacity is the size of a simulated device when the backing
	// config does not set one.
	DefaultCapacity = 200 << 20 // 200 MiB

	// DefaultMaxIOSize is advertised to the caller so it can size and split
	// requests. Submit does not enforce it.
	DefaultMaxIOSize = 128 << 10 // 128 KiB
)

// State is the lifecycle position of a volume. I/O is only valid in
// StateOpen. A closed volume may be re-opened and observes prior writes.
type State int

const (
	StateUnprovisioned State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unprovisioned"
	}
}

// Seed populates a freshly created device before first use. A pre-existing
// backing file is never re-seeded.
type Seed interface {
	io.ReaderAt
	Size() (int64, error)
}

type Option func(*Volume)

func WithLogger(log *zap.Logger) Option {
	return func(v *Volume) {
		v.log = log
	}
}

// WithDispatcher moves transfers onto the dispatcher's pool. Completion is
// then delivered from a worker goroutine after Submit returns.
func WithDispatcher(d *Dispatcher) Option {
	return func(v *Volume) {
		v.dispatcher = d
	}
}

func WithSeed(s Seed) Option {
	return func(v *Volume) {
		v.seed = s
	}
}

// Volume presents one fixed-size simulated storage device backed by a
// regular file. Construction touches no files; Open provisions the backing
// file and Close releases it.
type Volume struct {
	name       string
	cfg        BackingConfig
	log        *zap.Logger
	dispatcher *Dispatcher
	seed       Seed

	mu      sync.Mutex
	state   State
	store   backend.Store
	existed bool
	marker  *Marker
}

func New(name string, cfg BackingConfig, opts ...Option) *Volume {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}

	if cfg.MaxIOSize <= 0 {
		cfg.MaxIOSize = DefaultMaxIOSize
	}

	if cfg.Kind == "" {
		cfg.Kind = backend.KindFile
	}

	v := &Volume{
		name: name,
		cfg:  cfg,
		log:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

func (v *Volume) Name() string {
	return v.name
}

func (v *Volume) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.state
}

// Length returns the fixed capacity in bytes. It is immutable for the
// lifetime of the volume, whether or not the backing file pre-existed.
func (v *Volume) Length() int64 {
	return v.cfg.Capacity
}

// MaxIOSize is a policy constant for the caller's request splitting.
func (v *Volume) MaxIOSize() int64 {
	return v.cfg.MaxIOSize
}

// Existed reports whether the backing file was already present when the
// volume was last opened.
func (v *Volume) Existed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.existed
}

// WrittenBlocks returns how many blocks were written during this process.
func (v *Volume) WrittenBlocks() uint {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.marker == nil {
		return 0
	}

	return v.marker.Count()
}

// Open provisions the backing file and moves the volume to StateOpen. A
// pre-existing file is opened without truncation so prior content survives;
// a new file is created and extended to the full capacity.
func (v *Volume) Open(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == StateOpen {
		return InvalidStateError{Op: "open", State: v.state}
	}

	store, existed, err := backend.Open(v.cfg.Kind, v.cfg.Path, v.cfg.Capacity)
	if err != nil {
		return fmt.Errorf("error provisioning volume %q: %w", v.name, err)
	}

	if !existed && v.seed != nil {
		err = v.seedStore(ctx, store)
		if err != nil {
			closeErr := store.Close()
			if closeErr != nil {
				v.log.Warn("error closing store after failed seeding", zap.String("volume", v.name), zap.Error(closeErr))
			}

			return fmt.Errorf("error seeding volume %q: %w", v.name, err)
		}
	}

	v.store = store
	v.existed = existed

	// The marker survives re-opens so the written-block accounting covers
	// the whole process lifetime.
	if v.marker == nil {
		v.marker = NewMarker(uint(v.cfg.Capacity / BlockSize))
	}

	v.state = StateOpen

	v.log.Info("volume open",
		zap.String("volume", v.name),
		zap.String("path", v.cfg.Path),
		zap.Int64("capacity", v.cfg.Capacity),
		zap.Bool("existed", existed),
	)

	return nil
}

// seedStore copies the seed content into a freshly created store in
// max-IO-size chunks, clamped to the volume capacity.
func (v *Volume) seedStore(ctx context.Context, store backend.Store) error {
	size, err := v.seed.Size()
	if err != nil {
		return fmt.Errorf("failed to get seed size: %w", err)
	}

	if size > v.cfg.Capacity {
		size = v.cfg.Capacity
	}

	buf := make([]byte, v.cfg.MaxIOSize)

	for off := int64(0); off < size; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk := int64(len(buf))
		if off+chunk > size {
			chunk = size - off
		}

		_, err := v.seed.ReadAt(buf[:chunk], off)
		if err != nil {
			return fmt.Errorf("failed to read seed at %d: %w", off, err)
		}

		_, err = store.WriteAt(buf[:chunk], off)
		if err != nil {
			return fmt.Errorf("failed to write seed at %d: %w", off, err)
		}

		off += chunk
	}

	return nil
}

// Close releases the backing store. The file itself persists, so a
// subsequent Open on the same identifier observes prior writes. Closing a
// volume that is not open fails fast instead of corrupting state.
func (v *Volume) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateOpen {
		return InvalidStateError{Op: "close", State: v.state}
	}

	err := v.store.Close()

	v.store = nil
	v.state = StateClosed

	v.log.Info("volume close",
		zap.String("volume", v.name),
		zap.Uint("written_blocks", v.marker.Count()),
	)

	if err != nil {
		return fmt.Errorf("error closing volume %q: %w", v.name, err)
	}

	return nil
}

// Submit routes the request by direction and delivers its completion
// exactly once. Without a dispatcher the transfer completes inline before
// Submit returns; callers must rely only on the callback either way.
func (v *Volume) Submit(req *Request) {
	v.run(req, v.execute)
}

// SubmitFlush syncs completed writes to stable storage and completes the
// request with the sync outcome.
func (v *Volume) SubmitFlush(req *Request) {
	v.run(req, v.executeFlush)
}

// SubmitDiscard records that the range may be reclaimed. The simulated
// backend has no space-reclamation model, so it only clears the
// written-block accounting and always completes successfully.
func (v *Volume) SubmitDiscard(req *Request) {
	v.run(req, v.executeDiscard)
}

func (v *Volume) run(req *Request, execute func(*Request)) {
	if v.dispatcher == nil {
		execute(req)

		return
	}

	err := v.dispatcher.dispatch(func() {
		execute(req)
	})
	if err != nil {
		req.finish(CancelledError{})
	}
}

// openStore snapshots the store while holding the state lock so a transfer
// never dereferences a store released by Close.
func (v *Volume) openStore(op string) (backend.Store, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateOpen {
		return nil, InvalidStateError{Op: op, State: v.state}
	}

	return v.store, nil
}

func (v *Volume) execute(req *Request) {
	if req.Cancelled() {
		req.finish(CancelledError{})

		return
	}

	store, err := v.openStore("submit")
	if err != nil {
		req.finish(err)

		return
	}

	if req.Address()+uint64(req.Bytes()) > uint64(v.cfg.Capacity) {
		req.finish(OutOfRangeError{
			Address:  req.Address(),
			Bytes:    req.Bytes(),
			Capacity: v.cfg.Capacity,
		})

		return
	}

	data, dataOffset := req.Data()
	if data == nil {
		req.finish(BufferRangeError{Offset: dataOffset, Bytes: req.Bytes()})

		return
	}

	p, err := data.slice(dataOffset, req.Bytes())
	if err != nil {
		req.finish(err)

		return
	}

	switch req.Direction() {
	case DirectionWrite:
		_, err = store.WriteAt(p, int64(req.Address()))
		if err == nil {
			v.markWritten(req.Address(), req.Bytes())
		}
	default:
		_, err = store.ReadAt(p, int64(req.Address()))
	}

	if err != nil {
		req.finish(fmt.Errorf("error transferring %d bytes at %d on volume %q: %w", req.Bytes(), req.Address(), v.name, err))

		return
	}

	v.log.Debug("io complete",
		zap.String("volume", v.name),
		zap.String("direction", req.Direction().String()),
		zap.Uint64("address", req.Address()),
		zap.Int64("bytes", req.Bytes()),
	)

	req.finish(nil)
}

func (v *Volume) executeFlush(req *Request) {
	if req.Cancelled() {
		req.finish(CancelledError{})

		return
	}

	store, err := v.openStore("flush")
	if err != nil {
		req.finish(err)

		return
	}

	err = store.Sync()
	if err != nil {
		req.finish(fmt.Errorf("error flushing volume %q: %w", v.name, err))

		return
	}

	v.log.Debug("flush complete", zap.String("volume", v.name))

	req.finish(nil)
}

func (v *Volume) executeDiscard(req *Request) {
	if req.Cancelled() {
		req.finish(CancelledError{})

		return
	}

	_, err := v.openStore("discard")
	if err != nil {
		req.finish(err)

		return
	}

	v.clearDiscarded(req.Address(), req.Bytes())

	v.log.Debug("discard complete",
		zap.String("volume", v.name),
		zap.Uint64("address", req.Address()),
		zap.Int64("bytes", req.Bytes()),
	)

	req.finish(nil)
}

func (v *Volume) markWritten(address uint64, bytes int64) {
	if bytes <= 0 {
		return
	}

	first := int64(address) / BlockSize
	last := (int64(address) + bytes - 1) / BlockSize

	for block := first; block <= last; block++ {
		v.marker.Mark(block)
	}
}

// clearDiscarded only clears blocks fully covered by the range; a partially
// discarded block still holds live bytes.
func (v *Volume) clearDiscarded(address uint64, bytes int64) {
	if bytes <= 0 {
		return
	}

	first := (int64(address) + BlockSize - 1) / BlockSize
	end := (int64(address) + bytes) / BlockSize

	for block := first; block < end; block++ {
		v.marker.Clear(block)
	}
}
