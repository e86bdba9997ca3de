package mlog_test

import (
	"strings"

	. "github.com/dogmatiq/beaconq/internal/mlog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var entries = []TableEntry{
	Entry(
		"renders a standard log line",
		"= 123  # 456  ▲ ↻  <foo> ● <bar>",
		Line{
			BeaconID: "123",
			QueueID:  456,
			Action:   DeliverIcon,
			Modifier: RetryIcon,
			Text:     []string{"<foo>", "<bar>"},
		},
	),
	Entry(
		"renders a hyphen in place of missing IDs",
		"= -  # -  ▼    <foo>",
		Line{
			Action: QueueIcon,
			Text:   []string{"<foo>"},
		},
	),
	Entry(
		"shortens UUID correlation IDs",
		"= 8f1c0a5e  # 7  ▽ ✖  <foo>",
		Line{
			BeaconID: "8f1c0a5e-5b7e-4c43-9b5a-3f1a2d0c9e11",
			QueueID:  7,
			Action:   QueueErrorIcon,
			Modifier: ErrorIcon,
			Text:     []string{"<foo>"},
		},
	),
	Entry(
		"skips empty text",
		"= 123  # 456  △ ✖  <foo> ● <bar>",
		Line{
			BeaconID: "123",
			QueueID:  456,
			Action:   DeliverErrorIcon,
			Modifier: ErrorIcon,
			Text:     []string{"<foo>", "", "<bar>"},
		},
	),
}

var _ = DescribeTable(
	"func Line.String()",
	func(expected string, l Line) {
		Expect(l.String()).To(Equal(expected))
	},
	entries,
)

var _ = DescribeTable(
	"func Line.WriteTo()",
	func(expected string, l Line) {
		w := &strings.Builder{}

		n, err := l.WriteTo(w)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(n).To(BeNumerically("==", len(expected)))

		Expect(w.String()).To(Equal(expected))
	},
	entries,
)
