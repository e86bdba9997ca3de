package beacon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// ErrBodyConsumed is the cause of a SerializationError when the request's body
// has already been read.
var ErrBodyConsumed = errors.New("request body has already been consumed")

// SerializationError indicates that a request could not be captured as a
// Record.
type SerializationError struct {
	Method string
	URL    string
	Cause  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf(
		"unable to capture %s %s: %s",
		e.Method,
		e.URL,
		e.Cause,
	)
}

func (e *SerializationError) Unwrap() error {
	return e.Cause
}

// Duplicate reads the body of r and returns two independent copies of the
// request.
//
// The live copy is intended for the immediate delivery attempt, and the queued
// copy is intended for Serialize() should that attempt fail. Each copy owns its
// own body, which can be read without affecting the other. The body of r is
// consumed.
func Duplicate(r *http.Request) (live, queued *http.Request, err error) {
	body, err := readBody(r)
	if err != nil {
		return nil, nil, &SerializationError{
			Method: r.Method,
			URL:    r.URL.String(),
			Cause:  err,
		}
	}

	return withBody(r, body), withBody(r, body), nil
}

// Serialize captures r as a Record.
//
// The body of r is consumed. Calling Serialize() twice with the same request
// results in a SerializationError, so callers that also need to send r must
// first obtain a separate copy using Duplicate().
func Serialize(r *http.Request, now time.Time) (Record, error) {
	body, err := readBody(r)
	if err != nil {
		return Record{}, &SerializationError{
			Method: r.Method,
			URL:    r.URL.String(),
			Cause:  err,
		}
	}

	names := make([]string, 0, len(r.Header))
	for n := range r.Header {
		names = append(names, n)
	}
	sort.Strings(names)

	var header []HeaderField
	for _, n := range names {
		for _, v := range r.Header[n] {
			header = append(header, HeaderField{n, v})
		}
	}

	return Record{
		Method:   r.Method,
		URL:      r.URL.String(),
		Header:   header,
		Body:     body,
		QueuedAt: now,
	}, nil
}

// readBody reads the entire body of r and marks it as consumed.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		r.Body = consumed{}
		return []byte{}, nil
	}

	defer func() {
		r.Body.Close()
		r.Body = consumed{}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	return body, nil
}

// withBody returns a clone of r with a new body containing a copy of data.
func withBody(r *http.Request, data []byte) *http.Request {
	data = bytes.Clone(data)

	c := r.Clone(r.Context())
	c.ContentLength = int64(len(data))
	c.Body = io.NopCloser(bytes.NewReader(data))
	c.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	return c
}

// consumed is the body left in place of a request body that has been read.
type consumed struct{}

func (consumed) Read([]byte) (int, error) { return 0, ErrBodyConsumed }
func (consumed) Close() error             { return nil }
