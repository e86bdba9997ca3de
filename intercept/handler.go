package intercept

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dogmatiq/beaconq/assetcache"
	"github.com/dogmatiq/beaconq/queuestore"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// CollectPath is the path at which beacons are sent to the collector.
	CollectPath = "/collect"

	// LibraryPath is the path of the analytics JavaScript library.
	LibraryPath = "/analytics.js"

	// CacheHeader is the response header that is set when a response is served
	// from the asset cache.
	CacheHeader = "X-Beaconq-Cache"
)

// Enqueuer is an interface for queuing a beacon that could not be delivered.
type Enqueuer interface {
	// Enqueue captures r and places it on the queue.
	Enqueue(ctx context.Context, r *http.Request) (queuestore.ID, error)
}

// Handler is an HTTP handler that relays requests to the collector.
//
// Beacons that can not be delivered are placed on a queue, and the analytics
// library is cached so that it remains available while the collector is
// unreachable.
type Handler struct {
	// Collector is the base URL of the collector.
	Collector *url.URL

	// Client is the HTTP client used to contact the collector.
	// If it is nil, http.DefaultClient is used.
	Client *http.Client

	// Queue is the queue on which undelivered beacons are placed.
	Queue Enqueuer

	// Cache is the cache that holds the analytics library.
	Cache assetcache.Cache

	// Logger is the target for log messages about intercepted requests.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger
}

// Routes returns the HTTP handler that serves the intercepted paths.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Post(CollectPath, h.collect)
	r.Get(LibraryPath, h.library)

	return r
}

// upstream returns a new request to the collector that mirrors r.
func (h *Handler) upstream(r *http.Request) (*http.Request, error) {
	u := *h.Collector
	u.Path = singleJoiningSlash(h.Collector.Path, r.URL.Path)
	u.RawPath = ""
	u.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(
		r.Context(),
		r.Method,
		u.String(),
		r.Body,
	)
	if err != nil {
		return nil, err
	}

	req.ContentLength = r.ContentLength
	req.Header = r.Header.Clone()
	removeHopHeaders(req.Header)

	return req, nil
}

func (h *Handler) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}

	return http.DefaultClient
}
