package queue_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/dogmatiq/beaconq/queue"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type HTTPDeliverer", func() {
	var (
		status   int
		block    bool
		delay    time.Duration
		received string
		server   *httptest.Server
		deliver  *HTTPDeliverer
	)

	BeforeEach(func() {
		status = http.StatusNoContent
		block = false
		delay = 0
		received = ""

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			received = string(data)

			if block {
				<-r.Context().Done()
				return
			}

			time.Sleep(delay)

			w.WriteHeader(status)
		}))

		deliver = &HTTPDeliverer{Client: server.Client()}
	})

	AfterEach(func() {
		server.Close()
	})

	newRequest := func() *http.Request {
		r, err := http.NewRequest(http.MethodPost, server.URL+"/collect", strings.NewReader("v=1"))
		Expect(err).ShouldNot(HaveOccurred())
		return r
	}

	It("sends the beacon to the collector", func() {
		err := deliver.Deliver(context.Background(), newRequest())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(received).To(Equal("v=1"))
	})

	It("does not impose a timeout by default", func() {
		delay = 20 * time.Millisecond
		deliver = &HTTPDeliverer{}

		err := deliver.Deliver(context.Background(), newRequest())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(received).To(Equal("v=1"))
	})

	It("returns a DeliveryError if the collector responds with a non-2xx status", func() {
		status = http.StatusInternalServerError

		err := deliver.Deliver(context.Background(), newRequest())
		Expect(err).To(Equal(&DeliveryError{
			URL:        server.URL + "/collect",
			StatusCode: http.StatusInternalServerError,
		}))
		Expect(err).To(MatchError(
			"unable to deliver beacon to " + server.URL + "/collect: collector responded with 500 Internal Server Error",
		))
	})

	It("returns a DeliveryError if the collector can not be reached", func() {
		r := newRequest()
		server.Close()

		err := deliver.Deliver(context.Background(), r)

		var derr *DeliveryError
		Expect(errors.As(err, &derr)).To(BeTrue())
		Expect(derr.StatusCode).To(BeZero())
		Expect(derr.Cause).To(HaveOccurred())
	})

	It("abandons the attempt if the collector does not respond within the timeout", func() {
		block = true
		deliver.Timeout = 10 * time.Millisecond

		err := deliver.Deliver(context.Background(), newRequest())

		var derr *DeliveryError
		Expect(errors.As(err, &derr)).To(BeTrue())
		Expect(derr.Cause).To(MatchError(context.DeadlineExceeded))
	})
})

var _ = DescribeTable(
	"func Succeeded()",
	func(status int, expect bool) {
		Expect(Succeeded(&http.Response{StatusCode: status})).To(Equal(expect))
	},
	Entry("200 OK", http.StatusOK, true),
	Entry("204 No Content", http.StatusNoContent, true),
	Entry("299", 299, true),
	Entry("199", 199, false),
	Entry("302 Found", http.StatusFound, false),
	Entry("404 Not Found", http.StatusNotFound, false),
	Entry("503 Service Unavailable", http.StatusServiceUnavailable, false),
)
