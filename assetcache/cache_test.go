package assetcache_test

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dogmatiq/beaconq/assetcache"
	"github.com/jmalloc/gomegax"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

// declareCacheTests declares tests that are common to all Cache
// implementations.
func declareCacheTests(newCache func() assetcache.Cache) {
	var (
		ctx   context.Context
		cache assetcache.Cache
		entry assetcache.Entry
	)

	BeforeEach(func() {
		ctx = context.Background()
		cache = newCache()

		entry = assetcache.Entry{
			StatusCode: http.StatusOK,
			Header: http.Header{
				"Content-Type":  {"text/javascript"},
				"Cache-Control": {"public", "max-age=7200"},
			},
			Body:     []byte("(function(){})();"),
			StoredAt: time.Now(),
		}
	})

	Describe("func Load()", func() {
		It("returns false if there is no entry with the given key", func() {
			_, ok, err := cache.Load(ctx, "<key>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("returns the entry saved with the given key", func() {
			err := cache.Save(ctx, "<key>", entry)
			Expect(err).ShouldNot(HaveOccurred())

			e, ok, err := cache.Load(ctx, "<key>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(e).To(gomegax.EqualX(entry))
		})

		It("returns a copy that can be modified without affecting the cache", func() {
			err := cache.Save(ctx, "<key>", entry)
			Expect(err).ShouldNot(HaveOccurred())

			e, _, err := cache.Load(ctx, "<key>")
			Expect(err).ShouldNot(HaveOccurred())

			e.Body[0] = 'X'
			e.Header.Set("Content-Type", "<modified>")

			e, _, err = cache.Load(ctx, "<key>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(e).To(gomegax.EqualX(entry))
		})
	})

	Describe("func Save()", func() {
		It("replaces an existing entry", func() {
			err := cache.Save(ctx, "<key>", entry)
			Expect(err).ShouldNot(HaveOccurred())

			replacement := entry
			replacement.Body = []byte("<replacement>")

			err = cache.Save(ctx, "<key>", replacement)
			Expect(err).ShouldNot(HaveOccurred())

			e, _, err := cache.Load(ctx, "<key>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(e.Body).To(Equal([]byte("<replacement>")))
		})

		It("does not affect entries with other keys", func() {
			err := cache.Save(ctx, "<key-1>", entry)
			Expect(err).ShouldNot(HaveOccurred())

			_, ok, err := cache.Load(ctx, "<key-2>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
}

var _ = Describe("type Memory", func() {
	declareCacheTests(func() assetcache.Cache {
		return &assetcache.Memory{}
	})
})

var _ = Describe("type Bolt", func() {
	var db *bbolt.DB

	BeforeEach(func() {
		var err error
		db, err = bbolt.Open(
			filepath.Join(GinkgoT().TempDir(), "cache.boltdb"),
			0600,
			nil,
		)
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
	})

	declareCacheTests(func() assetcache.Cache {
		return &assetcache.Bolt{DB: db}
	})

	It("keeps caches with different names separate", func() {
		ctx := context.Background()

		a := &assetcache.Bolt{DB: db, Name: "<a>"}
		b := &assetcache.Bolt{DB: db, Name: "<b>"}

		err := a.Save(ctx, "<key>", assetcache.Entry{StatusCode: http.StatusOK})
		Expect(err).ShouldNot(HaveOccurred())

		_, ok, err := b.Load(ctx, "<key>")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("returns an error if the entry is corrupt", func() {
		err := db.Update(func(tx *bbolt.Tx) error {
			root, err := tx.CreateBucketIfNotExists([]byte("assets"))
			if err != nil {
				return err
			}

			b, err := root.CreateBucketIfNotExists([]byte(assetcache.DefaultCacheName))
			if err != nil {
				return err
			}

			return b.Put([]byte("<key>"), []byte{0x1a, 0xff})
		})
		Expect(err).ShouldNot(HaveOccurred())

		_, _, err = (&assetcache.Bolt{DB: db}).Load(context.Background(), "<key>")
		Expect(err).To(MatchError(ContainSubstring("cache entry is corrupt")))
	})
})
