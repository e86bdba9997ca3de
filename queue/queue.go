package queue

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/internal/mlog"
	"github.com/dogmatiq/beaconq/queuestore"
	"github.com/dogmatiq/dodeca/logging"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
)

// Queue is a durable queue of beacons that could not be delivered when they
// were intercepted.
type Queue struct {
	// Store is the provider of the store that holds the queued beacons.
	Store queuestore.Provider

	// Deliverer is used to send queued beacons to the collector.
	// If it is nil, an HTTPDeliverer using http.DefaultClient is used.
	Deliverer Deliverer

	// QueueTimeParameter is the name of a parameter that is added to each
	// replayed beacon. Its value is the number of milliseconds between when
	// the beacon was queued and when it was replayed.
	//
	// If it is empty, no such parameter is added.
	QueueTimeParameter string

	// Logger is the target for log messages about queued beacons.
	// If it is nil, logging.DefaultLogger is used.
	Logger logging.Logger

	// Now returns the current time. If it is nil, time.Now() is used.
	Now func() time.Time

	init  sync.Once
	guard *semaphore.Weighted
}

// ReplayResult describes the outcome of a replay pass.
type ReplayResult struct {
	// Attempted is the number of queued beacons for which delivery was
	// attempted.
	Attempted int

	// Delivered is the number of beacons that were delivered and removed from
	// the queue.
	Delivered int
}

// Enqueue serializes r and appends it to the queue.
//
// It consumes r's body. It returns the ID assigned to the beacon by the store.
func (q *Queue) Enqueue(ctx context.Context, r *http.Request) (_ queuestore.ID, err error) {
	rec, err := beacon.Serialize(r, q.now())
	if err != nil {
		return 0, err
	}

	s, err := q.open(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()

	return s.Append(ctx, rec)
}

// Replay attempts to deliver each of the queued beacons, in the order they were
// queued.
//
// overrides is a set of parameters to add to (or replace within) the body of
// each beacon before it is sent.
//
// Beacons that are delivered successfully are removed from the queue. Failures
// are logged, and the beacon remains on the queue until the next call to
// Replay(). A failure to deliver one beacon does not prevent delivery of
// those that follow it.
//
// Concurrent calls are serialized. If ctx is canceled while waiting for
// another call to finish, a zero result is returned.
func (q *Queue) Replay(ctx context.Context, overrides map[string]string) ReplayResult {
	q.init.Do(func() {
		q.guard = semaphore.NewWeighted(1)
	})

	if err := q.guard.Acquire(ctx, 1); err != nil {
		return ReplayResult{}
	}
	defer q.guard.Release(1)

	items, err := q.load(ctx)
	if err != nil {
		mlog.LogSystem(q.Logger, "unable to load queued beacons: %s", err)
		return ReplayResult{}
	}

	var res ReplayResult

	for _, item := range items {
		res.Attempted++

		if q.replay(ctx, item, overrides) {
			res.Delivered++
		}
	}

	return res
}

// replay delivers a single queued beacon and removes it from the queue.
//
// It returns true if the beacon was delivered, even if it could not be removed.
func (q *Queue) replay(
	ctx context.Context,
	item queuestore.Item,
	overrides map[string]string,
) bool {
	qid := uint64(item.ID)
	rec := item.Record

	if item.Err != nil {
		mlog.LogReplayError(q.Logger, qid, "", "", item.Err)
		return false
	}

	r, err := beacon.Deserialize(ctx, rec, q.overridesFor(rec, overrides))
	if err != nil {
		mlog.LogReplayError(q.Logger, qid, rec.Method, rec.URL, err)
		return false
	}

	if err := q.deliverer().Deliver(ctx, r); err != nil {
		mlog.LogReplayError(q.Logger, qid, rec.Method, rec.URL, err)
		return false
	}

	if err := q.remove(ctx, item.ID); err != nil {
		mlog.LogRemoveError(q.Logger, qid, rec.Method, rec.URL, err)
		return true
	}

	mlog.LogReplayed(q.Logger, qid, rec.Method, rec.URL)

	return true
}

// overridesFor returns the parameter overrides to apply to rec.
func (q *Queue) overridesFor(
	rec beacon.Record,
	overrides map[string]string,
) map[string]string {
	if q.QueueTimeParameter == "" || rec.QueuedAt.IsZero() {
		return overrides
	}

	if _, ok := overrides[q.QueueTimeParameter]; ok {
		return overrides
	}

	elapsed := q.now().Sub(rec.QueuedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}

	m := make(map[string]string, len(overrides)+1)
	for k, v := range overrides {
		m[k] = v
	}
	m[q.QueueTimeParameter] = strconv.FormatInt(elapsed, 10)

	return m
}

// load returns a snapshot of the queued beacons.
func (q *Queue) load(ctx context.Context) (_ []queuestore.Item, err error) {
	s, err := q.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()

	return s.Load(ctx)
}

// remove removes a delivered beacon from the queue.
func (q *Queue) remove(ctx context.Context, id queuestore.ID) (err error) {
	s, err := q.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()

	return s.Remove(ctx, id)
}

// open opens the store, ensuring that any failure is reported as an
// UnavailableError.
func (q *Queue) open(ctx context.Context) (queuestore.Store, error) {
	s, err := q.Store.Open(ctx)
	if err == nil {
		return s, nil
	}

	if _, ok := err.(queuestore.UnavailableError); ok {
		return nil, err
	}

	return nil, queuestore.UnavailableError{Cause: err}
}

func (q *Queue) deliverer() Deliverer {
	if q.Deliverer != nil {
		return q.Deliverer
	}

	return &HTTPDeliverer{}
}

func (q *Queue) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}

	return time.Now()
}
