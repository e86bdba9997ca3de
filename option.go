package beaconq

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/dogmatiq/beaconq/assetcache"
	"github.com/dogmatiq/beaconq/queuestore"
	"github.com/dogmatiq/beaconq/queuestore/boltstore"
	"github.com/dogmatiq/dodeca/logging"
)

var (
	// DefaultCollectorURL is the default base URL of the analytics collector.
	//
	// It is overridden by the WithCollectorURL() option.
	DefaultCollectorURL = &url.URL{
		Scheme: "https",
		Host:   "www.google-analytics.com",
	}

	// DefaultListenAddress is the default address on which the relay listens
	// for HTTP requests.
	//
	// It is overridden by the WithListenAddress() option.
	DefaultListenAddress = ":8080"

	// DefaultPersistence is the default provider of the store that holds
	// queued beacons.
	//
	// It is overridden by the WithPersistence() option.
	DefaultPersistence queuestore.Provider = &boltstore.FileProvider{
		Path: "/var/run/beaconq.boltdb",
	}

	// DefaultAssetCache is the default cache used to keep the analytics
	// library available while the collector is unreachable.
	//
	// It is overridden by the WithAssetCache() option.
	DefaultAssetCache assetcache.Cache = &assetcache.Memory{}

	// DefaultHTTPClient is the default client used to contact the collector.
	//
	// It is overridden by the WithHTTPClient() option.
	DefaultHTTPClient = http.DefaultClient

	// DefaultLogger is the default target for log messages produced by the
	// relay.
	//
	// It is overridden by the WithLogger() option.
	DefaultLogger = logging.DefaultLogger
)

// Option configures the behavior of a relay.
type Option func(*relayOptions)

// WithCollectorURL returns a relay option that sets the base URL of the
// analytics collector.
//
// If this option is omitted DefaultCollectorURL is used.
func WithCollectorURL(u string) Option {
	parsed, err := url.Parse(u)
	if err != nil {
		panic(fmt.Sprintf("invalid collector URL: %s", err))
	}

	if !parsed.IsAbs() || parsed.Host == "" {
		panic(fmt.Sprintf("collector URL must be absolute: %q", u))
	}

	return func(opts *relayOptions) {
		opts.CollectorURL = parsed
	}
}

// WithListenAddress returns a relay option that sets the TCP address on which
// the relay listens for HTTP requests.
//
// If this option is omitted or addr is empty DefaultListenAddress is used.
func WithListenAddress(addr string) Option {
	if addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			panic(fmt.Sprintf("invalid listen address: %s", err))
		}
	}

	return func(opts *relayOptions) {
		opts.ListenAddress = addr
	}
}

// WithPersistence returns a relay option that sets the provider of the store
// that holds queued beacons.
//
// If this option is omitted or p is nil, DefaultPersistence is used.
func WithPersistence(p queuestore.Provider) Option {
	return func(opts *relayOptions) {
		opts.Persistence = p
	}
}

// WithAssetCache returns a relay option that sets the cache used to keep the
// analytics library available while the collector is unreachable.
//
// If this option is omitted or c is nil, DefaultAssetCache is used.
func WithAssetCache(c assetcache.Cache) Option {
	return func(opts *relayOptions) {
		opts.AssetCache = c
	}
}

// WithHTTPClient returns a relay option that sets the client used to contact
// the collector, both for live requests and when replaying queued beacons.
//
// If this option is omitted or c is nil, DefaultHTTPClient is used.
func WithHTTPClient(c *http.Client) Option {
	return func(opts *relayOptions) {
		opts.HTTPClient = c
	}
}

// WithParameterOverrides returns a relay option that sets parameters that are
// merged into the body of each replayed beacon, replacing any existing
// parameter with the same name.
//
// If this option is omitted no parameters are added.
func WithParameterOverrides(m map[string]string) Option {
	for k := range m {
		if k == "" {
			panic("parameter override names must not be empty")
		}
	}

	return func(opts *relayOptions) {
		opts.ParameterOverrides = make(map[string]string, len(m))
		for k, v := range m {
			opts.ParameterOverrides[k] = v
		}
	}
}

// WithQueueTimeParameter returns a relay option that adds a parameter to each
// replayed beacon containing the number of milliseconds since the beacon was
// queued.
//
// A parameter override with the same name takes precedence. If this option is
// omitted or name is empty, no such parameter is added.
func WithQueueTimeParameter(name string) Option {
	return func(opts *relayOptions) {
		opts.QueueTimeParameter = name
	}
}

// WithLogger returns a relay option that sets the target for log messages
// produced by the relay.
//
// If this option is omitted or l is nil DefaultLogger is used.
func WithLogger(l logging.Logger) Option {
	return func(opts *relayOptions) {
		opts.Logger = l
	}
}

// relayOptions is a container for a fully-resolved set of relay options.
type relayOptions struct {
	CollectorURL       *url.URL
	ListenAddress      string
	Persistence        queuestore.Provider
	AssetCache         assetcache.Cache
	HTTPClient         *http.Client
	ParameterOverrides map[string]string
	QueueTimeParameter string
	Logger             logging.Logger

	// Closers are the supplied dependencies that are closed by Relay.Close().
	// The package-level defaults are shared by every relay, so they are never
	// included.
	Closers []io.Closer
}

// resolveOptions returns a fully-populated set of relay options built from
// the given set of option functions.
func resolveOptions(options ...Option) *relayOptions {
	opts := &relayOptions{}

	for _, o := range options {
		o(opts)
	}

	for _, v := range []interface{}{
		opts.Persistence,
		opts.AssetCache,
	} {
		if c, ok := v.(io.Closer); ok {
			opts.Closers = append(opts.Closers, c)
		}
	}

	if opts.CollectorURL == nil {
		opts.CollectorURL = DefaultCollectorURL
	}

	if opts.ListenAddress == "" {
		opts.ListenAddress = DefaultListenAddress
	}

	if opts.Persistence == nil {
		opts.Persistence = DefaultPersistence
	}

	if opts.AssetCache == nil {
		opts.AssetCache = DefaultAssetCache
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = DefaultHTTPClient
	}

	if opts.ParameterOverrides == nil {
		opts.ParameterOverrides = map[string]string{}
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	return opts
}
