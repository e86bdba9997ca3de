package queue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dogmatiq/linger"
)

// Deliverer is an interface for sending a beacon to the collector.
type Deliverer interface {
	// Deliver sends r to the collector.
	//
	// It returns a non-nil error if the beacon was not accepted.
	Deliver(ctx context.Context, r *http.Request) error
}

// DeliveryError indicates that a beacon was not accepted by the collector.
//
// It is returned both when the collector can not be reached and when it
// responds with a non-2xx status code.
type DeliveryError struct {
	// URL is the URL the beacon was sent to.
	URL string

	// StatusCode is the HTTP status code of the collector's response, or zero
	// if no response was received.
	StatusCode int

	// Cause is the network error, if any.
	Cause error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unable to deliver beacon to %s: %s", e.URL, e.Cause)
	}

	return fmt.Sprintf(
		"unable to deliver beacon to %s: collector responded with %d %s",
		e.URL,
		e.StatusCode,
		http.StatusText(e.StatusCode),
	)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// Succeeded returns true if res indicates that the collector accepted a
// beacon.
func Succeeded(res *http.Response) bool {
	return res.StatusCode >= 200 && res.StatusCode < 300
}

// HTTPDeliverer is a Deliverer that sends beacons using an HTTP client.
type HTTPDeliverer struct {
	// Client is the HTTP client used to send beacons.
	// If it is nil, http.DefaultClient is used.
	Client *http.Client

	// Timeout is the maximum duration of each delivery attempt. If it is
	// zero, an attempt is bounded only by the context and the client.
	Timeout time.Duration
}

// Deliver sends r to the collector.
func (d *HTTPDeliverer) Deliver(ctx context.Context, r *http.Request) error {
	c := d.Client
	if c == nil {
		c = http.DefaultClient
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = linger.ContextWithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	res, err := c.Do(r.WithContext(ctx))
	if err != nil {
		return &DeliveryError{
			URL:   r.URL.String(),
			Cause: err,
		}
	}
	defer res.Body.Close()

	// Drain the body so the connection can be reused.
	io.Copy(io.Discard, res.Body) // nolint:errcheck

	if !Succeeded(res) {
		return &DeliveryError{
			URL:        r.URL.String(),
			StatusCode: res.StatusCode,
		}
	}

	return nil
}
