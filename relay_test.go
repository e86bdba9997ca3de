package beaconq_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/dogmatiq/beaconq"
	"github.com/dogmatiq/beaconq/assetcache"
	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/queue"
	"github.com/dogmatiq/beaconq/queuestore"
	"github.com/dogmatiq/beaconq/queuestore/memorystore"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jmalloc/gomegax"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Relay", func() {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		m        sync.Mutex
		status   int
		received []string
		server   *httptest.Server
		provider *memorystore.Provider
		logger   *logging.BufferedLogger
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)

		status = http.StatusOK
		received = nil

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)

			m.Lock()
			defer m.Unlock()

			received = append(received, string(data))
			w.WriteHeader(status)
		}))

		provider = &memorystore.Provider{}
		logger = &logging.BufferedLogger{}
	})

	AfterEach(func() {
		server.Close()
		cancel()
	})

	newRelay := func(options ...Option) *Relay {
		return New(
			append(
				[]Option{
					WithCollectorURL(server.URL),
					WithPersistence(provider),
					WithAssetCache(&assetcache.Memory{}),
					WithHTTPClient(server.Client()),
					WithLogger(logger),
				},
				options...,
			)...,
		)
	}

	enqueue := func(body string) {
		s, err := provider.Open(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		defer s.Close()

		_, err = s.Append(ctx, beacon.Record{
			Method: http.MethodPost,
			URL:    server.URL + "/collect",
			Header: []beacon.HeaderField{
				{Name: "Content-Type", Value: "text/plain"},
			},
			Body:     []byte(body),
			QueuedAt: time.Now(),
		})
		Expect(err).ShouldNot(HaveOccurred())
	}

	queued := func() []queuestore.Item {
		s, err := provider.Open(ctx)
		Expect(err).ShouldNot(HaveOccurred())
		defer s.Close()

		items, err := s.Load(ctx)
		Expect(err).ShouldNot(HaveOccurred())

		return items
	}

	receivedBodies := func() []string {
		m.Lock()
		defer m.Unlock()
		return append([]string(nil), received...)
	}

	Describe("func ServeHTTP()", func() {
		It("queues beacons that are rejected by the collector", func() {
			status = http.StatusServiceUnavailable

			relay := newRelay()

			w := httptest.NewRecorder()
			relay.ServeHTTP(w, httptest.NewRequest(
				http.MethodPost,
				"/collect",
				strings.NewReader("v=1&t=pageview"),
			))

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))

			items := queued()
			Expect(items).To(HaveLen(1))
			Expect(items[0].Record).To(gomegax.EqualX(
				beacon.Record{
					Method:   http.MethodPost,
					URL:      server.URL + "/collect",
					Body:     []byte("v=1&t=pageview"),
					QueuedAt: time.Now(),
				},
				cmpopts.IgnoreFields(beacon.Record{}, "Header"),
				cmpopts.EquateApproxTime(5*time.Second),
			))
		})
	})

	Describe("func Activate()", func() {
		It("replays the queued beacons with the parameter overrides", func() {
			enqueue("v=1&t=pageview")

			relay := newRelay(
				WithParameterOverrides(map[string]string{"cd1": "offline"}),
			)

			res := relay.Activate(ctx)

			Expect(res).To(Equal(queue.ReplayResult{Attempted: 1, Delivered: 1}))
			Expect(receivedBodies()).To(Equal([]string{"v=1&t=pageview&cd1=offline"}))
			Expect(queued()).To(BeEmpty())
		})

		It("delivers the queued beacons using the default HTTP client", func() {
			enqueue("v=1&t=pageview")

			relay := New(
				WithPersistence(provider),
				WithLogger(logger),
			)

			res := relay.Activate(ctx)

			Expect(res).To(Equal(queue.ReplayResult{Attempted: 1, Delivered: 1}))
			Expect(receivedBodies()).To(Equal([]string{"v=1&t=pageview"}))
			Expect(queued()).To(BeEmpty())
		})

		It("sends the body verbatim if no overrides are configured", func() {
			enqueue("v=1&t=pageview")

			newRelay().Activate(ctx)

			Expect(receivedBodies()).To(Equal([]string{"v=1&t=pageview"}))
		})

		It("retains beacons that are rejected by the collector", func() {
			enqueue("v=1&t=pageview")
			status = http.StatusInternalServerError

			res := newRelay().Activate(ctx)

			Expect(res).To(Equal(queue.ReplayResult{Attempted: 1}))
			Expect(queued()).To(HaveLen(1))
		})

		It("logs a summary of the replay", func() {
			enqueue("v=1&t=a")
			enqueue("v=1&t=b")

			newRelay().Activate(ctx)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "= -  # -  ⚙    replayed 2 of 2 queued beacon(s)",
				},
			))
		})
	})

	Describe("func Run()", func() {
		It("activates the relay and serves until ctx is canceled", func() {
			enqueue("v=1&t=pageview")

			relay := newRelay(
				WithListenAddress("127.0.0.1:0"),
			)

			runCtx, runCancel := context.WithCancel(ctx)
			defer runCancel()

			result := make(chan error, 1)
			go func() {
				result <- relay.Run(runCtx)
			}()

			Eventually(queued, 3*time.Second).Should(BeEmpty())
			Expect(receivedBodies()).To(Equal([]string{"v=1&t=pageview"}))

			runCancel()

			Eventually(result, 3*time.Second).Should(Receive(Equal(context.Canceled)))
		})

		It("returns an error if the listener can not be started", func() {
			lis, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).ShouldNot(HaveOccurred())
			defer lis.Close()

			relay := newRelay(
				WithListenAddress(lis.Addr().String()),
			)

			err = relay.Run(ctx)
			Expect(err).To(MatchError(ContainSubstring("unable to start HTTP listener")))
		})
	})

	Describe("func Close()", func() {
		It("closes the persistence provider and asset cache if they are closers", func() {
			p := &closingProvider{err: errors.New("<provider>")}
			c := &closingCache{err: errors.New("<cache>")}

			relay := New(
				WithPersistence(p),
				WithAssetCache(c),
			)

			err := relay.Close()
			Expect(err).To(MatchError(ContainSubstring("<provider>")))
			Expect(err).To(MatchError(ContainSubstring("<cache>")))
			Expect(p.closed).To(BeTrue())
			Expect(c.closed).To(BeTrue())
		})

		It("does not close the default persistence provider or asset cache", func() {
			p := &closingProvider{}
			c := &closingCache{}

			prevPersistence, prevAssetCache := DefaultPersistence, DefaultAssetCache
			DefaultPersistence, DefaultAssetCache = p, c
			DeferCleanup(func() {
				DefaultPersistence, DefaultAssetCache = prevPersistence, prevAssetCache
			})

			err := New().Close()
			Expect(err).ShouldNot(HaveOccurred())
			Expect(p.closed).To(BeFalse())
			Expect(c.closed).To(BeFalse())
		})

		It("does nothing if neither is a closer", func() {
			err := newRelay().Close()
			Expect(err).ShouldNot(HaveOccurred())
		})
	})
})

type closingProvider struct {
	memorystore.Provider
	err    error
	closed bool
}

func (p *closingProvider) Close() error {
	p.closed = true
	return p.err
}

type closingCache struct {
	assetcache.Memory
	err    error
	closed bool
}

func (c *closingCache) Close() error {
	c.closed = true
	return c.err
}
