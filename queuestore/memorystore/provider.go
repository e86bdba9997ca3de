package memorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/queuestore"
)

// Provider is an implementation of queuestore.Provider that stores beacons in
// memory.
//
// Records are retained for the lifetime of the provider, regardless of whether
// any stores are open.
type Provider struct {
	m       sync.Mutex
	seq     queuestore.ID
	records map[queuestore.ID][]byte
}

// Open returns a store backed by the provider's memory.
func (p *Provider) Open(context.Context) (queuestore.Store, error) {
	return &store{provider: p}, nil
}

// append adds a marshaled record and returns its ID.
func (p *Provider) append(data []byte) queuestore.ID {
	p.m.Lock()
	defer p.m.Unlock()

	if p.records == nil {
		p.records = map[queuestore.ID][]byte{}
	}

	p.seq++
	p.records[p.seq] = data

	return p.seq
}

// load returns the IDs and marshaled records in ID order.
func (p *Provider) load() ([]queuestore.ID, [][]byte) {
	p.m.Lock()
	defer p.m.Unlock()

	ids := make([]queuestore.ID, 0, len(p.records))
	for id := range p.records {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	data := make([][]byte, len(ids))
	for i, id := range ids {
		data[i] = p.records[id]
	}

	return ids, data
}

// remove removes the record with the given ID, if present.
func (p *Provider) remove(id queuestore.ID) {
	p.m.Lock()
	defer p.m.Unlock()

	delete(p.records, id)
}

// store is an implementation of queuestore.Store that uses a Provider's memory.
type store struct {
	m        sync.RWMutex
	provider *Provider
}

// Append adds a record to the store and returns its newly assigned ID.
func (s *store) Append(_ context.Context, r beacon.Record) (queuestore.ID, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.provider == nil {
		return 0, queuestore.ErrStoreClosed
	}

	// Records are kept in their marshaled form so that neither the caller's
	// record nor loaded records share memory with the stored data.
	data, err := beacon.MarshalRecord(r)
	if err != nil {
		return 0, err
	}

	return s.provider.append(data), nil
}

// Load returns all of the records in the store, ordered by ID.
func (s *store) Load(context.Context) ([]queuestore.Item, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.provider == nil {
		return nil, queuestore.ErrStoreClosed
	}

	ids, data := s.provider.load()

	var items []queuestore.Item
	for i, id := range ids {
		items = append(items, queuestore.NewItem(id, data[i]))
	}

	return items, nil
}

// Remove removes the record with the given ID.
func (s *store) Remove(_ context.Context, id queuestore.ID) error {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.provider == nil {
		return queuestore.ErrStoreClosed
	}

	s.provider.remove(id)

	return nil
}

// Close releases the store handle.
func (s *store) Close() error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.provider == nil {
		return queuestore.ErrStoreClosed
	}

	s.provider = nil

	return nil
}
