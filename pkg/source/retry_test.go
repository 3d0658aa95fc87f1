package source

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySeed struct {
	data     []byte
	failures int
	calls    int
}

func (s *flakySeed) ReadAt(p []byte, off int64) (int, error) {
	s.calls++
	if s.calls <= s.failures {
		return 0, fmt.Errorf("transient failure %d", s.calls)
	}

	return copy(p, s.data[off:]), nil
}

func (s *flakySeed) Size() (int64, error) {
	return int64(len(s.data)), nil
}

func TestRetrierRecoversFromTransientFailures(t *testing.T) {
	seed := &flakySeed{data: []byte("eventually readable"), failures: 2}

	r := NewRetrier(context.Background(), seed, 3, time.Millisecond)

	b := make([]byte, 10)
	n, err := r.ReadAt(b, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, []byte("eventually"), b)
	assert.Equal(t, 3, seed.calls)
}

func TestRetrierGivesUp(t *testing.T) {
	seed := &flakySeed{data: []byte("never read"), failures: 10}

	r := NewRetrier(context.Background(), seed, 3, time.Millisecond)

	_, err := r.ReadAt(make([]byte, 5), 0)
	require.Error(t, err)
	assert.Equal(t, 3, seed.calls)
}

func TestRetrierStopsOnContextDone(t *testing.T) {
	seed := &flakySeed{data: []byte("unreachable"), failures: 10}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrier(ctx, seed, 3, time.Millisecond)

	_, err := r.ReadAt(make([]byte, 5), 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, seed.calls)
}

func TestRetrierSize(t *testing.T) {
	seed := &flakySeed{data: []byte("sized")}

	r := NewRetrier(context.Background(), seed, 3, time.Millisecond)

	size, err := r.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}
