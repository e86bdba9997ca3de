package redisstore

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/queuestore"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the default prefix used for the Redis keys that hold the
// queue.
const DefaultKey = "beaconq"

// Provider is an implementation of queuestore.Provider for Redis that uses an
// existing client.
//
// The queue is held in two keys. "<key>:seq" is a counter used to allocate
// record IDs. "<key>:beacons" is a hash of record ID to marshaled record.
type Provider struct {
	// Client is the Redis client to use.
	Client redis.UniversalClient

	// Key is the prefix for the keys that hold the queue.
	// If it is empty, DefaultKey is used.
	Key string
}

// Open returns a store that uses the Redis client.
//
// The server is pinged to verify that it is reachable.
func (p *Provider) Open(ctx context.Context) (queuestore.Store, error) {
	if err := p.Client.Ping(ctx).Err(); err != nil {
		return nil, queuestore.UnavailableError{Cause: err}
	}

	k := p.Key
	if k == "" {
		k = DefaultKey
	}

	return &store{
		client:  p.Client,
		seqKey:  k + ":seq",
		hashKey: k + ":beacons",
	}, nil
}

// store is an implementation of queuestore.Store for Redis.
type store struct {
	m       sync.RWMutex
	client  redis.UniversalClient
	seqKey  string
	hashKey string
}

// Append adds a record to the store and returns its newly assigned ID.
func (s *store) Append(ctx context.Context, r beacon.Record) (queuestore.ID, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.client == nil {
		return 0, queuestore.ErrStoreClosed
	}

	data, err := beacon.MarshalRecord(r)
	if err != nil {
		return 0, err
	}

	id, err := s.client.Incr(ctx, s.seqKey).Uint64()
	if err != nil {
		return 0, err
	}

	if err := s.client.HSet(
		ctx,
		s.hashKey,
		formatID(queuestore.ID(id)),
		data,
	).Err(); err != nil {
		return 0, err
	}

	return queuestore.ID(id), nil
}

// Load returns all of the records in the store, ordered by ID.
func (s *store) Load(ctx context.Context) ([]queuestore.Item, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.client == nil {
		return nil, queuestore.ErrStoreClosed
	}

	values, err := s.client.HGetAll(ctx, s.hashKey).Result()
	if err != nil {
		return nil, err
	}

	items := make([]queuestore.Item, 0, len(values))

	for k, v := range values {
		id, ok := parseID(k)
		if !ok {
			// Fields that are not record IDs can never be removed by the
			// queue, so they are not part of it.
			continue
		}

		items = append(items, queuestore.NewItem(id, []byte(v)))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})

	return items, nil
}

// Remove removes the record with the given ID.
func (s *store) Remove(ctx context.Context, id queuestore.ID) error {
	s.m.RLock()
	defer s.m.RUnlock()

	if s.client == nil {
		return queuestore.ErrStoreClosed
	}

	return s.client.HDel(ctx, s.hashKey, formatID(id)).Err()
}

// Close releases the store handle.
//
// The client is not closed, since the store did not open it.
func (s *store) Close() error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.client == nil {
		return queuestore.ErrStoreClosed
	}

	s.client = nil

	return nil
}

// formatID returns the hash field name for a record ID.
func formatID(id queuestore.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}

// parseID parses a hash field name produced by formatID().
func parseID(k string) (queuestore.ID, bool) {
	n, err := strconv.ParseUint(k, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}

	return queuestore.ID(n), true
}
