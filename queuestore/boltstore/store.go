package boltstore

import (
	"context"
	"sync"

	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/internal/x/bboltx"
	"github.com/dogmatiq/beaconq/queuestore"
	"go.etcd.io/bbolt"
)

// beaconsBucketKey is the key for the bucket that contains the queued beacons.
//
// The keys are the big-endian representation of each record's ID, which is
// obtained from the bucket's sequence. The values are records marshaled using
// beacon.MarshalRecord().
var beaconsBucketKey = []byte("beacons")

// store is an implementation of queuestore.Store for BoltDB.
type store struct {
	m       sync.RWMutex
	db      *bbolt.DB
	release func() error
}

// Append adds a record to the store and returns its newly assigned ID.
func (s *store) Append(
	_ context.Context,
	r beacon.Record,
) (_ queuestore.ID, err error) {
	defer bboltx.Recover(&err)

	s.m.RLock()
	defer s.m.RUnlock()

	if s.release == nil {
		return 0, queuestore.ErrStoreClosed
	}

	data, err := beacon.MarshalRecord(r)
	if err != nil {
		return 0, err
	}

	var id uint64

	bboltx.Update(
		s.db,
		func(tx *bbolt.Tx) {
			b := bboltx.CreateBucketIfNotExists(tx, beaconsBucketKey)
			id = bboltx.NextSequence(b)
			bboltx.Put(b, bboltx.MarshalUint64(id), data)
		},
	)

	return queuestore.ID(id), nil
}

// Load returns all of the records in the store, ordered by ID.
func (s *store) Load(_ context.Context) (_ []queuestore.Item, err error) {
	defer bboltx.Recover(&err)

	s.m.RLock()
	defer s.m.RUnlock()

	if s.release == nil {
		return nil, queuestore.ErrStoreClosed
	}

	var items []queuestore.Item

	bboltx.View(
		s.db,
		func(tx *bbolt.Tx) {
			b := bboltx.Bucket(tx, beaconsBucketKey)
			if b == nil {
				return
			}

			bboltx.Must(b.ForEach(func(k, v []byte) error {
				items = append(items, queuestore.NewItem(
					queuestore.ID(bboltx.UnmarshalUint64(k)),
					v,
				))
				return nil
			}))
		},
	)

	return items, nil
}

// Remove removes the record with the given ID.
func (s *store) Remove(_ context.Context, id queuestore.ID) (err error) {
	defer bboltx.Recover(&err)

	s.m.RLock()
	defer s.m.RUnlock()

	if s.release == nil {
		return queuestore.ErrStoreClosed
	}

	bboltx.Update(
		s.db,
		func(tx *bbolt.Tx) {
			if b := bboltx.Bucket(tx, beaconsBucketKey); b != nil {
				bboltx.Delete(b, bboltx.MarshalUint64(uint64(id)))
			}
		},
	)

	return nil
}

// Close releases the store handle.
func (s *store) Close() error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.release == nil {
		return queuestore.ErrStoreClosed
	}

	r := s.release
	s.db = nil
	s.release = nil

	return r()
}
