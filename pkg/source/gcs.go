package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/googleapis/gax-go/v2"
)

const fetchTimeout = 10 * time.Second

// GCSObject is a remote base image a freshly provisioned volume can be
// seeded from. It satisfies the volume.Seed contract.
type GCSObject struct {
	object *storage.ObjectHandle
	ctx    context.Context
}

func NewGCSObject(ctx context.Context, client *storage.Client, bucket, objectPath string) *GCSObject {
	obj := client.Bucket(bucket).Object(objectPath).Retryer(
		storage.WithBackoff(gax.Backoff{
			Initial:    10 * time.Millisecond,
			Max:        10 * time.Second,
			Multiplier: 2,
		}),
		storage.WithPolicy(storage.RetryAlways),
	)

	return &GCSObject{
		object: obj,
		ctx:    ctx,
	}
}

func (g *GCSObject) ReadAt(b []byte, off int64) (int, error) {
	ctx, cancel := context.WithTimeout(g.ctx, fetchTimeout)
	defer cancel()

	// The object must not be gzip transcoded, otherwise range reads are not
	// supported.
	reader, err := g.object.NewRangeReader(ctx, off, int64(len(b)))
	if err != nil {
		return 0, fmt.Errorf("failed to create GCS reader: %w", err)
	}

	n, readErr := io.ReadFull(reader, b)
	closeErr := reader.Close()

	if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("failed to read GCS object: %w", readErr)
	}

	if closeErr != nil {
		return n, fmt.Errorf("failed to close GCS reader: %w", closeErr)
	}

	return n, nil
}

func (g *GCSObject) Size() (int64, error) {
	ctx, cancel := context.WithTimeout(g.ctx, fetchTimeout)
	defer cancel()

	attrs, err := g.object.Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get GCS object attributes: %w", err)
	}

	return attrs.Size, nil
}
