package queuestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dogmatiq/beaconq/beacon"
)

// ErrStoreClosed is returned when performing any operation on a closed store.
var ErrStoreClosed = errors.New("queue store is closed")

// ID uniquely identifies a record within a store.
//
// IDs are assigned by the store in strictly increasing order, such that
// ordering records by ID yields the order in which they were appended. Zero is
// never a valid ID.
type ID uint64

// Item is a record and the ID that the store assigned to it.
type Item struct {
	ID     ID
	Record beacon.Record

	// Err is non-nil if the stored data could not be decoded, in which case
	// Record is the zero-value. The item is still returned so that one bad
	// record does not prevent the others from being loaded.
	Err error
}

// NewItem returns the item with the given ID, decoding its record from data.
func NewItem(id ID, data []byte) Item {
	r, err := beacon.UnmarshalRecord(data)
	if err != nil {
		return Item{ID: id, Err: err}
	}

	return Item{ID: id, Record: r}
}

// Provider is an interface for opening a store of queued beacons.
type Provider interface {
	// Open opens the store, creating it if necessary.
	//
	// Open may be called any number of times. Each successful call returns a
	// store handle that must be closed when the caller is finished with it.
	// All handles returned by the same provider share the same underlying
	// data.
	Open(ctx context.Context) (Store, error)
}

// Store is a durable, ordered collection of beacons that are yet to be
// delivered.
type Store interface {
	// Append adds a record to the store and returns its newly assigned ID.
	Append(ctx context.Context, r beacon.Record) (ID, error)

	// Load returns all of the records in the store, ordered by ID.
	//
	// The result is a snapshot; subsequent changes to the store are not
	// reflected in the returned slice.
	Load(ctx context.Context) ([]Item, error)

	// Remove removes the record with the given ID.
	//
	// It is not an error to remove a record that does not exist.
	Remove(ctx context.Context, id ID) error

	// Close releases the store handle.
	//
	// Any subsequent operation on the handle returns ErrStoreClosed.
	Close() error
}

// UnavailableError indicates that a store could not be opened.
type UnavailableError struct {
	Cause error
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("queue store is unavailable: %s", e.Cause)
}

func (e UnavailableError) Unwrap() error {
	return e.Cause
}
