package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	FetchRetries    = 3
	FetchRetryDelay = 1 * time.Millisecond
)

// Retrier decorates a seed with bounded read retries, for sources that can
// fail transiently.
type Retrier struct {
	ctx        context.Context
	base       Seed
	retryDelay time.Duration
	maxRetries int
}

// Seed mirrors the contract volume.Open consumes, so a Retrier can wrap any
// seed source.
type Seed interface {
	io.ReaderAt
	Size() (int64, error)
}

func NewRetrier(ctx context.Context, base Seed, maxRetries int, retryDelay time.Duration) *Retrier {
	return &Retrier{
		ctx:        ctx,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		base:       base,
	}
}

func (r *Retrier) ReadAt(p []byte, off int64) (n int, err error) {
	for i := 0; i < r.maxRetries; i++ {
		select {
		case <-r.ctx.Done():
			return 0, r.ctx.Err()
		default:
			n, err = r.base.ReadAt(p, off)
			if err != nil && !errors.Is(err, io.EOF) {
				time.Sleep(r.retryDelay)

				continue
			}

			return n, nil
		}
	}

	return 0, fmt.Errorf("failed to read after %d retries: %w", r.maxRetries, err)
}

func (r *Retrier) Size() (int64, error) {
	return r.base.Size()
}
