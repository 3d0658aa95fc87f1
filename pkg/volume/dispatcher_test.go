package volume

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocklab/volsim/pkg/backend"
)

func TestDispatcherCompletesAsync(t *testing.T) {
	ctx := context.Background()

	d := NewDispatcher(ctx, 4)
	defer d.Close()

	cfg := testConfig(t, 1<<20)
	cfg.Kind = backend.KindMem

	v := New("core", cfg, WithDispatcher(d))
	require.NoError(t, v.Open(ctx))
	defer v.Close()

	data := []byte("dispatched")

	done := make(chan error, 1)
	req := NewRequest(DirectionWrite, 0, int64(len(data)), func(err error) {
		done <- err
	})
	req.SetData(NewBuffer(data), 0)

	v.Submit(req)

	require.NoError(t, <-done)

	readBack := make([]byte, len(data))
	require.NoError(t, submit(t, v, DirectionRead, 0, NewBuffer(readBack), 0, int64(len(readBack))))
	assert.Equal(t, data, readBack)
}

func TestDispatcherConcurrentRequests(t *testing.T) {
	ctx := context.Background()

	d := NewDispatcher(ctx, 8)
	defer d.Close()

	cfg := testConfig(t, 1<<20)

	v := New("core", cfg, WithDispatcher(d))
	require.NoError(t, v.Open(ctx))
	defer v.Close()

	// Concurrent writes at independent offsets are safe because all
	// transfers are positioned.
	const requests = 64

	var wg sync.WaitGroup

	errs := make([]error, requests)

	for i := 0; i < requests; i++ {
		data := []byte{byte(i)}
		address := uint64(i) * BlockSize

		req := NewRequest(DirectionWrite, address, 1, func(i int) Completion {
			return func(err error) {
				defer wg.Done()

				errs[i] = err
			}
		}(i))
		req.SetData(NewBuffer(data), 0)

		wg.Add(1)
		v.Submit(req)
	}

	wg.Wait()

	for i, err := range errs {
		require.NoErrorf(t, err, "request %d failed", i)
	}

	for i := 0; i < requests; i++ {
		readBack := make([]byte, 1)
		require.NoError(t, submit(t, v, DirectionRead, uint64(i)*BlockSize, NewBuffer(readBack), 0, 1))
		assert.Equal(t, byte(i), readBack[0])
	}
}

func TestDispatcherClosedRejectsWork(t *testing.T) {
	ctx := context.Background()

	d := NewDispatcher(ctx, 1)

	cfg := testConfig(t, 1<<20)
	cfg.Kind = backend.KindMem

	v := New("core", cfg, WithDispatcher(d))
	require.NoError(t, v.Open(ctx))
	defer v.Close()

	d.Close()

	done := make(chan error, 1)
	req := NewRequest(DirectionWrite, 0, 512, func(err error) {
		done <- err
	})
	req.SetData(NewBuffer(make([]byte, 512)), 0)

	v.Submit(req)

	var cancelled CancelledError
	assert.ErrorAs(t, <-done, &cancelled, "Submission after dispatcher close must complete as cancelled")
}

func TestDispatcherCloseDrainsInFlight(t *testing.T) {
	ctx := context.Background()

	d := NewDispatcher(ctx, 2)

	cfg := testConfig(t, 1<<20)
	cfg.Kind = backend.KindMem

	v := New("core", cfg, WithDispatcher(d))
	require.NoError(t, v.Open(ctx))
	defer v.Close()

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		req := NewRequest(DirectionWrite, uint64(i)*BlockSize, 512, func(error) {
			wg.Done()
		})
		req.SetData(NewBuffer(make([]byte, 512)), 0)

		wg.Add(1)
		v.Submit(req)
	}

	// Close must wait for every dispatched transfer to deliver its
	// completion.
	d.Close()
	wg.Wait()
}
