package beacon_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/dogmatiq/beaconq/beacon"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Deserialize()", func() {
	var rec Record

	BeforeEach(func() {
		req := newBeaconRequest("v=1&t=pageview")
		req.Header.Add("X-Multi", "b")
		req.Header.Add("X-Multi", "a")

		var err error
		rec, err = Serialize(req, time.Now())
		Expect(err).ShouldNot(HaveOccurred())
	})

	It("reconstructs the captured request", func() {
		req, err := Deserialize(context.Background(), rec, nil)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(req.Method).To(Equal(http.MethodPost))
		Expect(req.URL.String()).To(Equal("https://collector.example.com/collect?z=1"))
		Expect(req.Header).To(Equal(http.Header{
			"Content-Type": {"text/plain"},
			"X-Multi":      {"b", "a"},
		}))
		Expect(readAll(req.Body)).To(Equal("v=1&t=pageview"))
	})

	It("sends the body verbatim when there are no overrides", func() {
		rec.Body = []byte("dp=%2fa%20b&v=1")

		req, err := Deserialize(context.Background(), rec, map[string]string{})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(readAll(req.Body)).To(Equal("dp=%2fa%20b&v=1"))
	})

	It("appends override parameters to the body", func() {
		req, err := Deserialize(
			context.Background(),
			rec,
			map[string]string{"cd1": "offline"},
		)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(readAll(req.Body)).To(Equal("v=1&t=pageview&cd1=offline"))
		Expect(req.ContentLength).To(BeNumerically("==", len("v=1&t=pageview&cd1=offline")))
	})

	It("replaces existing parameters with the override values", func() {
		req, err := Deserialize(
			context.Background(),
			rec,
			map[string]string{"t": "event", "ni": "1"},
		)
		Expect(err).ShouldNot(HaveOccurred())

		params := ParseParams(readAll(req.Body))
		Expect(params.Map()).To(Equal(map[string]string{
			"v":  "1",
			"t":  "event",
			"ni": "1",
		}))
	})

	It("does not share memory with the record", func() {
		req, err := Deserialize(context.Background(), rec, nil)
		Expect(err).ShouldNot(HaveOccurred())

		rec.Body[0] = 'X'
		Expect(readAll(req.Body)).To(Equal("v=1&t=pageview"))
	})

	It("merges the overrides into a body that contains invalid escape sequences", func() {
		rec.Body = []byte("v=%zz&dp=100%")

		req, err := Deserialize(
			context.Background(),
			rec,
			map[string]string{"cd1": "offline"},
		)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(readAll(req.Body)).To(Equal("v=%25zz&dp=100%25&cd1=offline"))
	})

	It("returns an error if the URL is invalid", func() {
		rec.URL = "://"

		_, err := Deserialize(context.Background(), rec, nil)
		Expect(err).Should(HaveOccurred())
	})
})
