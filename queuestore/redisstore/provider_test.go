package redisstore_test

import (
	"context"
	"errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/dogmatiq/beaconq/beacon"
	"github.com/dogmatiq/beaconq/queuestore"
	"github.com/dogmatiq/beaconq/queuestore/internal/storetest"
	. "github.com/dogmatiq/beaconq/queuestore/redisstore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("type Provider", func() {
	var (
		server *miniredis.Miniredis
		client *redis.Client
	)

	storetest.Declare(
		func(ctx context.Context, in storetest.In) storetest.Out {
			server = miniredis.RunT(GinkgoT())
			client = redis.NewClient(&redis.Options{Addr: server.Addr()})

			return storetest.Out{
				NewProvider: func() (queuestore.Provider, func()) {
					return &Provider{Client: client}, nil
				},
				AppendRaw: func(ctx context.Context, data []byte) queuestore.ID {
					id, err := client.Incr(ctx, DefaultKey+":seq").Result()
					Expect(err).ShouldNot(HaveOccurred())

					err = client.HSet(ctx, DefaultKey+":beacons", id, data).Err()
					Expect(err).ShouldNot(HaveOccurred())

					return queuestore.ID(id)
				},
			}
		},
		func() {
			client.Close()
		},
	)

	It("stores records under the configured key", func() {
		server := miniredis.RunT(GinkgoT())
		client := redis.NewClient(&redis.Options{Addr: server.Addr()})
		defer client.Close()

		p := &Provider{
			Client: client,
			Key:    "<key>",
		}

		s, err := p.Open(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		defer s.Close()

		id, err := s.Append(context.Background(), beacon.Record{URL: "<url>"})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(id).To(BeNumerically("==", 1))

		Expect(server.Exists("<key>:seq")).To(BeTrue())
		Expect(server.HKeys("<key>:beacons")).To(ConsistOf("1"))
	})

	It("returns an UnavailableError if the server can not be reached", func() {
		server := miniredis.RunT(GinkgoT())
		client := redis.NewClient(&redis.Options{
			Addr:       server.Addr(),
			MaxRetries: -1,
		})
		defer client.Close()

		server.Close()

		p := &Provider{Client: client}

		_, err := p.Open(context.Background())

		var unavailable queuestore.UnavailableError
		Expect(errors.As(err, &unavailable)).To(BeTrue())
	})

	It("ignores hash fields that are not record IDs", func() {
		server := miniredis.RunT(GinkgoT())
		client := redis.NewClient(&redis.Options{Addr: server.Addr()})
		defer client.Close()

		p := &Provider{Client: client}

		s, err := p.Open(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		defer s.Close()

		id, err := s.Append(context.Background(), beacon.Record{URL: "<url>"})
		Expect(err).ShouldNot(HaveOccurred())

		server.HSet(DefaultKey+":beacons", "<not-a-number>", "")
		server.HSet(DefaultKey+":beacons", "0", "")

		items, err := s.Load(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(items).To(Equal([]queuestore.Item{
			{ID: id, Record: beacon.Record{URL: "<url>"}},
		}))
	})
})
