package beacon

import (
	"net/http"
	"time"
)

// Record is the durable representation of a single beacon that could not be
// delivered.
//
// A record is never modified once it has been captured. It is destroyed only
// after a replayed copy of the beacon has been delivered successfully.
type Record struct {
	// Method is the HTTP method of the original request.
	Method string

	// URL is the absolute URL of the original request, including its query
	// string.
	URL string

	// Header contains the request headers, in the order they were captured.
	Header []HeaderField

	// Body is the raw request payload, typically a form-encoded set of beacon
	// parameters.
	Body []byte

	// QueuedAt is the time at which the beacon was captured.
	QueuedAt time.Time
}

// HeaderField is a single header name/value pair.
type HeaderField struct {
	Name  string
	Value string
}

// HTTPHeader returns the record's headers as an http.Header.
func (r Record) HTTPHeader() http.Header {
	h := make(http.Header, len(r.Header))

	for _, f := range r.Header {
		h.Add(f.Name, f.Value)
	}

	return h
}
