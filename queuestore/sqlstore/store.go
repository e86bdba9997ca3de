package sqlstore

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/internal/x/sqlx"
	"github.com/dogmatiq/beaconq/queuestore"
)

// store is an implementation of queuestore.Store for SQL databases.
type store struct {
	m       sync.RWMutex
	db      *sql.DB
	driver  Driver
	release func() error
}

// Append adds a record to the store and returns its newly assigned ID.
func (s *store) Append(
	ctx context.Context,
	r beacon.Record,
) (queuestore.ID, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.release == nil {
		return 0, queuestore.ErrStoreClosed
	}

	data, err := beacon.MarshalRecord(r)
	if err != nil {
		return 0, err
	}

	id, err := s.driver.InsertRecord(ctx, s.db, r.QueuedAt, data)
	if err != nil {
		return 0, err
	}

	return queuestore.ID(id), nil
}

// Load returns all of the records in the store, ordered by ID.
func (s *store) Load(ctx context.Context) (_ []queuestore.Item, err error) {
	defer sqlx.Recover(&err)

	s.m.RLock()
	defer s.m.RUnlock()

	if s.release == nil {
		return nil, queuestore.ErrStoreClosed
	}

	rows, err := s.driver.SelectRecords(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []queuestore.Item

	for rows.Next() {
		var (
			id   int64
			data []byte
		)

		sqlx.Must(rows.Scan(&id, &data))

		items = append(items, queuestore.NewItem(queuestore.ID(id), data))
	}

	return items, rows.Err()
}

// Remove removes the record with the given ID.
func (s *store) Remove(ctx context.Context, id queuestore.ID) error {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.release == nil {
		return queuestore.ErrStoreClosed
	}

	return s.driver.DeleteRecord(ctx, s.db, int64(id))
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
	s.driver = nil
	s.release = nil

	return r()
}
