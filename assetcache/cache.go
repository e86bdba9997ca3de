package assetcache

import (
	"bytes"
	"context"
	"net/http"
	"time"
)

// DefaultCacheName is the name of the cache that holds the analytics library.
const DefaultCacheName = "beaconq-library"

// Entry is a cached HTTP response.
type Entry struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}

// clone returns a deep copy of e.
func (e Entry) clone() Entry {
	e.Header = e.Header.Clone()
	e.Body = bytes.Clone(e.Body)
	return e
}

// Cache is a store of HTTP responses, keyed by request URL.
type Cache interface {
	// Load returns the entry with the given key.
	//
	// ok is false if there is no such entry.
	Load(ctx context.Context, key string) (e Entry, ok bool, err error)

	// Save stores e under the given key, replacing any existing entry.
	Save(ctx context.Context, key string, e Entry) error
}
