package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/blocklab/volsim/internal/cfg"
	"github.com/blocklab/volsim/pkg/backend"
	"github.com/blocklab/volsim/pkg/source"
	"github.com/blocklab/volsim/pkg/volume"
)

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "volsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := cfg.Parse()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("error creating logger: %w", err)
	}

	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The probe has to run before any volume provisions the cache file.
	startup := volume.DetectStartup(config.CachePath)

	log.Info("startup probe", zap.Bool("needs_reload", startup.NeedsReload))

	registry := volume.NewRegistry(volume.BackingConfig{
		Path:      config.CorePath,
		Capacity:  config.CapacityBytes,
		MaxIOSize: config.MaxIOSizeBytes,
		Kind:      backend.Kind(config.StoreKind),
	})
	registry.Register("cache", volume.BackingConfig{
		Path:      config.CachePath,
		Capacity:  config.CapacityBytes,
		MaxIOSize: config.MaxIOSizeBytes,
		Kind:      backend.Kind(config.StoreKind),
	})

	opts := []volume.Option{volume.WithLogger(log)}

	if config.Workers > 0 {
		dispatcher := volume.NewDispatcher(ctx, config.Workers)
		defer dispatcher.Close()

		opts = append(opts, volume.WithDispatcher(dispatcher))
	}

	coreOpts := append([]volume.Option{}, opts...)

	if config.SeedBucket != "" && config.SeedObject != "" {
		client, clientErr := storage.NewClient(ctx)
		if clientErr != nil {
			return fmt.Errorf("error creating GCS client: %w", clientErr)
		}

		defer client.Close()

		seed := source.NewRetrier(
			ctx,
			source.NewGCSObject(ctx, client, config.SeedBucket, config.SeedObject),
			source.FetchRetries,
			source.FetchRetryDelay,
		)

		coreOpts = append(coreOpts, volume.WithSeed(seed))
	}

	cache := volume.New("cache", registry.Lookup("cache"), opts...)
	core := volume.New("core", registry.Lookup("core"), coreOpts...)

	err = cache.Open(ctx)
	if err != nil {
		return err
	}

	defer cache.Close()

	err = core.Open(ctx)
	if err != nil {
		return err
	}

	defer core.Close()

	err = smoke(cache)
	if err != nil {
		return fmt.Errorf("smoke check failed: %w", err)
	}

	log.Info("smoke check passed",
		zap.Int64("max_io_size", cache.MaxIOSize()),
		zap.Int64("length", cache.Length()),
		zap.Uint("written_blocks", cache.WrittenBlocks()),
	)

	return nil
}

// smoke writes two adjacent 4 KiB patterns, reads them back in one request,
// and flushes. The read is only submitted after both write completions so
// the check holds with a dispatcher too.
func smoke(vol *volume.Volume) error {
	var wg sync.WaitGroup

	errs := make([]error, 2)

	write := func(i int, address uint64, pattern byte) {
		data := bytes.Repeat([]byte{pattern}, 4096)

		req := volume.NewRequest(volume.DirectionWrite, address, 4096, func(err error) {
			defer wg.Done()

			errs[i] = err
		})
		req.SetData(volume.NewBuffer(data), 0)

		wg.Add(1)
		vol.Submit(req)
	}

	write(0, 0, 0xAA)
	write(1, 4096, 0xBB)

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	readBack := make([]byte, 8192)
	readDone := make(chan error, 1)

	read := volume.NewRequest(volume.DirectionRead, 0, 8192, func(err error) {
		readDone <- err
	})
	read.SetData(volume.NewBuffer(readBack), 0)

	vol.Submit(read)

	err := <-readDone
	if err != nil {
		return err
	}

	if !bytes.Equal(readBack[:4096], bytes.Repeat([]byte{0xAA}, 4096)) {
		return fmt.Errorf("first 4 KiB mismatch")
	}

	if !bytes.Equal(readBack[4096:], bytes.Repeat([]byte{0xBB}, 4096)) {
		return fmt.Errorf("second 4 KiB mismatch")
	}

	flushed := make(chan error, 1)

	vol.SubmitFlush(volume.NewFlushRequest(func(err error) {
		flushed <- err
	}))

	return <-flushed
}
