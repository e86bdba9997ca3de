// Package main runs an analytics beacon relay configured by environment
// variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dogmatiq/beaconq"
	"github.com/dogmatiq/beaconq/internal/x/loggingx"
	"github.com/dogmatiq/dodeca/config"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// newContext returns a cancelable context that is canceled when the process
// receives a SIGTERM or SIGINT.
func newContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
		case <-sig:
			cancel()
		}
	}()

	return ctx, cancel
}

func main() {
	ctx, cancel := newContext()
	defer cancel()

	if err := run(ctx, config.Environment()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, b config.Bucket) (err error) {
	cfg, err := loadConfig(b)
	if err != nil {
		return err
	}

	z, err := newZapLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer z.Sync() // nolint:errcheck

	logger := loggingx.Zap{Target: z.Sugar()}

	storage, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	relay := beaconq.New(
		beaconq.WithListenAddress(cfg.ListenAddress),
		beaconq.WithCollectorURL(cfg.CollectorURL),
		beaconq.WithPersistence(storage.Persistence),
		beaconq.WithAssetCache(storage.AssetCache),
		beaconq.WithParameterOverrides(cfg.Overrides),
		beaconq.WithQueueTimeParameter(cfg.QueueTimeParameter),
		beaconq.WithLogger(logger),
	)
	defer func() {
		err = multierr.Combine(err, relay.Close(), storage.Close())
	}()

	return relay.Run(ctx)
}

// newZapLogger returns the zap logger used by the relay.
func newZapLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
