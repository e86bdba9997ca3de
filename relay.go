package beaconq

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/dogmatiq/beaconq/intercept"
	"github.com/dogmatiq/beaconq/internal/mlog"
	"github.com/dogmatiq/beaconq/internal/x/httpx"
	"github.com/dogmatiq/beaconq/internal/x/loggingx"
	"github.com/dogmatiq/beaconq/queue"
	"github.com/dogmatiq/dodeca/logging"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Relay is an HTTP relay for analytics beacons.
//
// Beacons that can not be delivered to the collector are queued durably, and
// replayed each time the relay is activated.
type Relay struct {
	opts    *relayOptions
	queue   *queue.Queue
	handler http.Handler
}

// New returns a new relay.
func New(options ...Option) *Relay {
	opts := resolveOptions(options...)

	q := &queue.Queue{
		Store: opts.Persistence,
		Deliverer: &queue.HTTPDeliverer{
			Client: opts.HTTPClient,
		},
		QueueTimeParameter: opts.QueueTimeParameter,
		Logger:             loggingx.WithComponent(opts.Logger, "replay"),
	}

	h := &intercept.Handler{
		Collector: opts.CollectorURL,
		Client:    opts.HTTPClient,
		Queue:     q,
		Cache:     opts.AssetCache,
		Logger:    loggingx.WithComponent(opts.Logger, "intercept"),
	}

	return &Relay{
		opts:    opts,
		queue:   q,
		handler: h.Routes(),
	}
}

// ServeHTTP intercepts requests bound for the collector.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Activate replays each of the queued beacons exactly once.
//
// The configured parameter overrides are merged into each beacon. Beacons that
// can not be delivered remain queued until the next activation.
func (r *Relay) Activate(ctx context.Context) queue.ReplayResult {
	res := r.queue.Replay(ctx, r.opts.ParameterOverrides)

	if res.Attempted > 0 {
		mlog.LogSystem(
			r.opts.Logger,
			"replayed %d of %d queued beacon(s)",
			res.Delivered,
			res.Attempted,
		)
	}

	return res
}

// Run serves HTTP requests on the listen address until ctx is canceled or an
// error occurs.
//
// The relay is activated once, concurrently with serving requests.
func (r *Relay) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", r.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("unable to start HTTP listener: %w", err)
	}
	defer lis.Close()

	return r.serve(ctx, lis)
}

// serve serves HTTP requests using lis until ctx is canceled or an error
// occurs.
func (r *Relay) serve(ctx context.Context, lis net.Listener) error {
	parent := ctx
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.Activate(ctx)
		return nil
	})

	g.Go(func() error {
		logging.Log(
			r.opts.Logger,
			"listening for HTTP requests on %s",
			lis.Addr(),
		)

		server := &http.Server{
			Handler: r,
		}

		err := httpx.Serve(ctx, lis, server)
		return fmt.Errorf("HTTP server stopped: %w", err)
	})

	err := g.Wait()

	if parent.Err() != nil {
		return parent.Err()
	}

	return err
}

// Close releases any resources owned by the relay.
//
// The persistence provider and asset cache are closed if they implement
// io.Closer and were supplied by the WithPersistence() and WithAssetCache()
// options. DefaultPersistence and DefaultAssetCache are never closed.
func (r *Relay) Close() error {
	var err error

	for _, c := range r.opts.Closers {
		err = multierr.Append(err, c.Close())
	}

	return err
}
