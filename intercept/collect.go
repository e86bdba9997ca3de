package intercept

import (
	"context"
	"net/http"

	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/internal/mlog"
	"github.com/dogmatiq/beaconq/queue"
	"github.com/google/uuid"
)

// collect relays a beacon to the collector, queuing it if it can not be
// delivered.
func (h *Handler) collect(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()

	req, err := h.upstream(r)
	if err != nil {
		mlog.LogQueueError(h.Logger, id, r.Method, r.URL.String(), err)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	live, queued, err := beacon.Duplicate(req)
	if err != nil {
		mlog.LogQueueError(h.Logger, id, req.Method, req.URL.String(), err)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.client().Do(live)
	if err != nil {
		mlog.LogDeliveryError(h.Logger, id, live.Method, live.URL.String(), err)
		h.enqueue(r.Context(), id, queued)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	defer res.Body.Close()

	if queue.Succeeded(res) {
		mlog.LogDelivered(h.Logger, id, live.Method, live.URL.String(), res.StatusCode)
	} else {
		mlog.LogDeliveryError(
			h.Logger,
			id,
			live.Method,
			live.URL.String(),
			&queue.DeliveryError{
				URL:        live.URL.String(),
				StatusCode: res.StatusCode,
			},
		)
		h.enqueue(r.Context(), id, queued)
	}

	relay(w, res)
}

// enqueue places a beacon that could not be delivered on the queue.
//
// Any failure is logged and the beacon is discarded. The client's request is
// never failed on account of the queue.
func (h *Handler) enqueue(ctx context.Context, id string, r *http.Request) {
	qid, err := h.Queue.Enqueue(context.WithoutCancel(ctx), r)
	if err != nil {
		mlog.LogQueueError(h.Logger, id, r.Method, r.URL.String(), err)
		return
	}

	mlog.LogQueued(h.Logger, id, uint64(qid), r.Method, r.URL.String())
}
