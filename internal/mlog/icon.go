package mlog

import (
	"fmt"
	"io"

	"github.com/dogmatiq/iago/must"
)

const (
	// BeaconIDIcon is the icon shown directly before the correlation ID that
	// is assigned to a beacon when it is intercepted. It is an "equals sign",
	// indicating that this beacon "has exactly" the displayed ID.
	BeaconIDIcon Icon = "="

	// QueueIDIcon is the icon shown directly before the ID assigned to a
	// beacon by the queue store. It is a "number sign", as queue IDs are
	// sequence numbers.
	QueueIDIcon Icon = "#"

	// DeliverIcon is the icon shown to indicate that a beacon has been
	// delivered to the collector. It is an upward pointing arrow, as the
	// beacon has been "uploaded".
	DeliverIcon Icon = "▲"

	// DeliverErrorIcon is a variant of DeliverIcon used when a beacon could
	// not be delivered. It is a hollow version of the regular deliver icon,
	// indicating that the requirement remains "unfulfilled".
	DeliverErrorIcon Icon = "△"

	// QueueIcon is the icon shown to indicate that a beacon has been placed on
	// the queue. It is a downward pointing arrow, as the beacon has been
	// "put down" for later.
	QueueIcon Icon = "▼"

	// QueueErrorIcon is a variant of QueueIcon used when a beacon could not be
	// placed on the queue.
	QueueErrorIcon Icon = "▽"

	// RetryIcon is the icon shown when a log message relates to the replay of
	// a queued beacon. It is an open-circle with an arrow, indicating that the
	// beacon has "come around again".
	RetryIcon Icon = "↻"

	// ErrorIcon is the icon shown when logging information about an error.
	// It is a heavy cross, indicating a failure.
	ErrorIcon Icon = "✖"

	// SystemIcon is an icon shown when a log message relates to the internals of
	// the relay. It is a sprocket, representing the inner workings of the
	// machine.
	SystemIcon Icon = "⚙"

	// SeparatorIcon is an icon used to separate strings of unrelated text inside a
	// log message. It is a large bullet, intended to have a large visual impact.
	SeparatorIcon Icon = "●"
)

// Icon is a unicode symbol used as an icon in log messages.
type Icon string

func (i Icon) String() string {
	return string(i)
}

// WriteTo writes a string representation of the icon to w.
// If i is the zero-value, a single space is rendered.
func (i Icon) WriteTo(w io.Writer) (int64, error) {
	s := i.String()
	if i == "" {
		s = " "
	}

	n, err := io.WriteString(w, s)
	return int64(n), err
}

// WithLabel return an IconWithLabel containing this icon and the given label.
func (i Icon) WithLabel(f string, v ...interface{}) IconWithLabel {
	return IconWithLabel{
		i,
		formatLabel(fmt.Sprintf(f, v...)),
	}
}

// WithID return an IconWithLabel containing this icon and an ID as its label.
//
// The id is formatted using FormatID().
func (i Icon) WithID(id string) IconWithLabel {
	return i.WithLabel("%s", FormatID(id))
}

// IconWithLabel is a container for an icon and its associated text label.
type IconWithLabel struct {
	Icon  Icon
	Label string
}

func (i IconWithLabel) String() string {
	return i.Icon.String() + " " + i.Label
}

// WriteTo writes a string representation of the icon and its label to w.
func (i IconWithLabel) WriteTo(w io.Writer) (_ int64, err error) {
	defer must.Recover(&err)

	n := must.WriteTo(w, i.Icon)
	n += must.Write(w, space1)
	n += must.WriteString(w, i.Label)

	return int64(n), err
}

// formatLabel formats a label for display.
func formatLabel(label string) string {
	if label == "" {
		return "-"
	}

	return label
}
