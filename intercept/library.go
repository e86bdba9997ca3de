package intercept

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dogmatiq/beaconq/assetcache"
	"github.com/dogmatiq/beaconq/internal/mlog"
	"github.com/dogmatiq/beaconq/queue"
)

// library serves the analytics library from the collector, falling back to
// the most recent successful response if the collector can not be reached.
func (h *Handler) library(w http.ResponseWriter, r *http.Request) {
	req, err := h.upstream(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	key := req.URL.String()

	res, err := h.client().Do(req)
	if err != nil {
		mlog.LogSystem(h.Logger, "unable to fetch %s: %s", key, err)

		if !h.serveCached(w, r, key) {
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		}

		return
	}
	defer res.Body.Close()

	if !queue.Succeeded(res) {
		if !h.serveCached(w, r, key) {
			relay(w, res)
		}

		return
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		mlog.LogSystem(h.Logger, "unable to read %s: %s", key, err)

		if !h.serveCached(w, r, key) {
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		}

		return
	}

	header := res.Header.Clone()
	removeHopHeaders(header)

	if err := h.Cache.Save(
		r.Context(),
		key,
		assetcache.Entry{
			StatusCode: res.StatusCode,
			Header:     header,
			Body:       body,
			StoredAt:   time.Now(),
		},
	); err != nil {
		mlog.LogSystem(h.Logger, "unable to cache %s: %s", key, err)
	}

	res.Body = io.NopCloser(bytes.NewReader(body))
	res.ContentLength = int64(len(body))
	relay(w, res)
}

// serveCached writes the cached response for key to w.
//
// It returns false if there is no cached response.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	e, ok, err := h.Cache.Load(r.Context(), key)
	if err != nil {
		mlog.LogSystem(h.Logger, "unable to load %s from the cache: %s", key, err)
		return false
	}

	if !ok {
		return false
	}

	for k, v := range e.Header {
		w.Header()[k] = v
	}

	w.Header().Set(CacheHeader, "hit")
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Body)))
	w.WriteHeader(e.StatusCode)
	w.Write(e.Body) // nolint:errcheck

	return true
}
