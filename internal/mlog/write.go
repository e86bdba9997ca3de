package mlog

import (
	"io"
	"strings"

	"github.com/dogmatiq/iago/must"
)

// Line is a single log line about a beacon.
type Line struct {
	// BeaconID is the correlation ID assigned to the beacon when it was
	// intercepted. It is empty for beacons that are being replayed.
	BeaconID string

	// QueueID is the ID assigned to the beacon by the queue store, or zero if
	// the beacon has not been queued.
	QueueID uint64

	// Action is the icon describing what happened to the beacon.
	Action Icon

	// Modifier is an optional icon that qualifies the action, such as
	// RetryIcon or ErrorIcon.
	Modifier Icon

	// Text is the text of the message. Empty strings are omitted, and the
	// remaining strings are separated by SeparatorIcon.
	Text []string
}

// String returns the log line as a string.
func (l Line) String() string {
	w := &strings.Builder{}
	l.mustWrite(w)
	return w.String()
}

// WriteTo writes the log line to w.
func (l Line) WriteTo(w io.Writer) (n int64, err error) {
	defer must.Recover(&err)
	n = int64(l.mustWrite(w))
	return n, nil
}

func (l Line) mustWrite(w io.Writer) (n int) {
	n += must.WriteTo(w, BeaconIDIcon.WithID(l.BeaconID))
	n += must.Write(w, space2)
	n += must.WriteTo(w, QueueIDIcon.WithLabel("%s", FormatQueueID(l.QueueID)))
	n += must.Write(w, space2)

	n += must.WriteTo(w, l.Action)
	n += must.Write(w, space1)
	n += must.WriteTo(w, l.Modifier)
	n += must.Write(w, space1)

	i := 0
	for _, v := range l.Text {
		if v == "" {
			continue
		}

		n += must.Write(w, space1)

		if i > 0 {
			n += must.WriteTo(w, SeparatorIcon)
			n += must.Write(w, space1)
		}

		n += must.WriteString(w, v)
		i++
	}

	return n
}

var (
	space1 = []byte{' '}
	space2 = []byte{' ', ' '}
)
