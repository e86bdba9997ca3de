package storetest

import (
	"context"
	"net/http"
	"time"

	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/queuestore"
	"github.com/jmalloc/gomegax"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// In is a container for values that are provided to the store-specific
// "before" function from the test-suite.
type In struct {
	// Context is the context used for all operations within the test.
	Context context.Context
}

// Out is a container for values that are provided by the store-specific
// "before" function to the test-suite.
type Out struct {
	// NewProvider is a function that returns a new provider.
	//
	// Each provider returned must expose the same underlying data, such that
	// records appended via one provider are visible via any other. The
	// returned function, if non-nil, is called when the provider is no longer
	// needed.
	NewProvider func() (queuestore.Provider, func())

	// AppendRaw, if non-nil, appends data to the store verbatim, bypassing
	// the record encoding, and returns the ID assigned to it. It is used to
	// place undecodable data in the store.
	AppendRaw func(ctx context.Context, data []byte) queuestore.ID
}

// Declare declares a functional test-suite for a specific queuestore.Provider
// implementation.
func Declare(
	before func(context.Context, In) Out,
	after func(),
) {
	var (
		ctx      context.Context
		cancel   context.CancelFunc
		out      Out
		provider queuestore.Provider
		close    func()
		store    queuestore.Store

		record0, record1, record2 beacon.Record
	)

	ginkgo.BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)

		out = before(ctx, In{ctx})
		provider, close = out.NewProvider()

		var err error
		store, err = provider.Open(ctx)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

		now := time.Now().Truncate(time.Millisecond)

		record0 = newRecord("v=1&t=pageview&dp=%2F", now)
		record1 = newRecord("v=1&t=event&ec=video", now.Add(1*time.Second))
		record2 = newRecord("v=1&t=timing&utt=120", now.Add(-1*time.Hour))
	})

	ginkgo.AfterEach(func() {
		if store != nil {
			store.Close()
			store = nil
		}

		if close != nil {
			close()
			close = nil
		}

		if after != nil {
			after()
		}

		if cancel != nil {
			cancel()
		}
	})

	ginkgo.Describe("func Open()", func() {
		ginkgo.It("can be called multiple times", func() {
			s, err := provider.Open(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			defer s.Close()

			id := appendRecord(ctx, s, record0)

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomegax.EqualX(
				[]queuestore.Item{
					{ID: id, Record: record0},
				},
			))
		})

		ginkgo.It("releases its resources each time the last store is closed", func() {
			err := store.Close()
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			store = nil

			for i := 0; i < 20; i++ {
				s, err := provider.Open(ctx)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				appendRecord(ctx, s, record0)
				gomega.Expect(loadItems(ctx, s)).To(gomega.HaveLen(i + 1))

				err = s.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			}
		})

		ginkgo.It("retains records after all stores are closed", func() {
			id := appendRecord(ctx, store, record0)

			err := store.Close()
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			store, err = provider.Open(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomegax.EqualX(
				[]queuestore.Item{
					{ID: id, Record: record0},
				},
			))
		})

		ginkgo.It("exposes records appended via another provider", func() {
			p, c := out.NewProvider()
			if c != nil {
				defer c()
			}

			s, err := p.Open(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			defer s.Close()

			id := appendRecord(ctx, s, record0)

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomegax.EqualX(
				[]queuestore.Item{
					{ID: id, Record: record0},
				},
			))
		})
	})

	ginkgo.Describe("func Append()", func() {
		ginkgo.It("assigns strictly increasing non-zero IDs", func() {
			id0 := appendRecord(ctx, store, record0)
			id1 := appendRecord(ctx, store, record1)
			id2 := appendRecord(ctx, store, record2)

			gomega.Expect(id0).To(gomega.BeNumerically(">", 0))
			gomega.Expect(id1).To(gomega.BeNumerically(">", id0))
			gomega.Expect(id2).To(gomega.BeNumerically(">", id1))
		})

		ginkgo.It("does not reuse the IDs of removed records", func() {
			id0 := appendRecord(ctx, store, record0)
			removeItem(ctx, store, id0)

			id1 := appendRecord(ctx, store, record1)
			gomega.Expect(id1).To(gomega.BeNumerically(">", id0))
		})

		ginkgo.It("stores duplicate records separately", func() {
			id0 := appendRecord(ctx, store, record0)
			id1 := appendRecord(ctx, store, record0)

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomegax.EqualX(
				[]queuestore.Item{
					{ID: id0, Record: record0},
					{ID: id1, Record: record0},
				},
			))
		})

		ginkgo.It("returns an error if the store is closed", func() {
			err := store.Close()
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			_, err = store.Append(ctx, record0)
			gomega.Expect(err).To(gomega.Equal(queuestore.ErrStoreClosed))
		})
	})

	ginkgo.Describe("func Load()", func() {
		ginkgo.It("returns an empty result if the store is empty", func() {
			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomega.BeEmpty())
		})

		ginkgo.It("returns the records in the order they were appended", func() {
			id0 := appendRecord(ctx, store, record0)
			id1 := appendRecord(ctx, store, record1)
			id2 := appendRecord(ctx, store, record2)

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomegax.EqualX(
				[]queuestore.Item{
					{ID: id0, Record: record0},
					{ID: id1, Record: record1},
					{ID: id2, Record: record2},
				},
			))
		})

		ginkgo.It("orders by ID even when the ID sequence crosses a digit boundary", func() {
			var expected []queuestore.Item

			for i := 0; i < 12; i++ {
				id := appendRecord(ctx, store, record0)
				expected = append(expected, queuestore.Item{ID: id, Record: record0})
			}

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomegax.EqualX(expected))
		})

		ginkgo.It("returns undecodable records as items with a non-nil error", func() {
			if out.AppendRaw == nil {
				ginkgo.Skip("the store does not support appending raw data")
			}

			id0 := appendRecord(ctx, store, record0)
			id1 := out.AppendRaw(ctx, []byte{0xff, 0xff, 0xff})
			id2 := appendRecord(ctx, store, record1)

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomega.HaveLen(3))

			gomega.Expect(items[0]).To(gomegax.EqualX(
				queuestore.Item{ID: id0, Record: record0},
			))

			gomega.Expect(items[1].ID).To(gomega.Equal(id1))
			gomega.Expect(items[1].Record).To(gomegax.EqualX(beacon.Record{}))
			gomega.Expect(items[1].Err).To(gomega.MatchError(
				gomega.ContainSubstring("record data is corrupt"),
			))

			gomega.Expect(items[2]).To(gomegax.EqualX(
				queuestore.Item{ID: id2, Record: record1},
			))
		})

		ginkgo.It("returns a snapshot that is unaffected by subsequent changes", func() {
			id0 := appendRecord(ctx, store, record0)
			id1 := appendRecord(ctx, store, record1)

			items := loadItems(ctx, store)

			removeItem(ctx, store, id0)
			appendRecord(ctx, store, record2)

			gomega.Expect(items).To(gomegax.EqualX(
				[]queuestore.Item{
					{ID: id0, Record: record0},
					{ID: id1, Record: record1},
				},
			))
		})

		ginkgo.It("returns copies that can be modified without affecting the store", func() {
			id0 := appendRecord(ctx, store, record0)

			items := loadItems(ctx, store)
			items[0].Record.Body[0] = 'X'
			items[0].Record.Header[0].Value = "<modified>"

			items = loadItems(ctx, store)
			gomega.Expect(items).To(gomegax.EqualX(
				[]queuestore.Item{
					{ID: id0, Record: record0},
				},
			))
		})

		ginkgo.It("returns an error if the store is closed", func() {
			err := store.Close()
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			_, err = store.Load(ctx)
			gomega.Expect(err).To(gomega.Equal(queuestore.ErrStoreClosed))
		})
	})

	ginkgo.Describe("func Remove()", func() {
		ginkgo.It("removes exactly one record", func() {
			id0 := appendRecord(ctx, store, record0)
			id1 := appendRecord(ctx, store, record1)
			id2 := appendRecord(ctx, store, record2)

			removeItem(ctx, store, id1)

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomegax.EqualX(
				[]queuestore.Item{
					{ID: id0, Record: record0},
					{ID: id2, Record: record2},
				},
			))
		})

		ginkgo.It("does not return an error if the record has already been removed", func() {
			id0 := appendRecord(ctx, store, record0)

			removeItem(ctx, store, id0)
			removeItem(ctx, store, id0)

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomega.BeEmpty())
		})

		ginkgo.It("does not return an error if the record never existed", func() {
			removeItem(ctx, store, 12345)
		})

		ginkgo.It("returns an error if the store is closed", func() {
			err := store.Close()
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			err = store.Remove(ctx, 1)
			gomega.Expect(err).To(gomega.Equal(queuestore.ErrStoreClosed))
		})
	})

	ginkgo.Describe("func Close()", func() {
		ginkgo.It("returns an error if the store is already closed", func() {
			err := store.Close()
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			err = store.Close()
			gomega.Expect(err).To(gomega.Equal(queuestore.ErrStoreClosed))
		})

		ginkgo.It("does not affect other open stores", func() {
			s, err := provider.Open(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			err = s.Close()
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			id0 := appendRecord(ctx, store, record0)

			items := loadItems(ctx, store)
			gomega.Expect(items).To(gomegax.EqualX(
				[]queuestore.Item{
					{ID: id0, Record: record0},
				},
			))
		})
	})
}

// newRecord returns a beacon record with the given body.
func newRecord(body string, queuedAt time.Time) beacon.Record {
	return beacon.Record{
		Method: http.MethodPost,
		URL:    "https://collector.example.com/collect",
		Header: []beacon.HeaderField{
			{Name: "Content-Type", Value: "text/plain;charset=UTF-8"},
			{Name: "User-Agent", Value: "storetest/1.0"},
		},
		Body:     []byte(body),
		QueuedAt: queuedAt,
	}
}

// appendRecord appends r to s and returns its ID.
func appendRecord(
	ctx context.Context,
	s queuestore.Store,
	r beacon.Record,
) queuestore.ID {
	id, err := s.Append(ctx, r)
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())
	return id
}

// loadItems loads all items from s.
func loadItems(
	ctx context.Context,
	s queuestore.Store,
) []queuestore.Item {
	items, err := s.Load(ctx)
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())
	return items
}

// removeItem removes the item with the given ID from s.
func removeItem(
	ctx context.Context,
	s queuestore.Store,
	id queuestore.ID,
) {
	err := s.Remove(ctx, id)
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())
}
