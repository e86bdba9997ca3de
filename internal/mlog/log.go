package mlog

import (
	"fmt"
	"strings"

	"github.com/dogmatiq/dodeca/logging"
)

// LogDelivered logs a debug message indicating that an intercepted beacon was
// delivered to the collector without being queued.
func LogDelivered(
	log logging.Logger,
	id string,
	method, url string,
	status int,
) {
	if !logging.IsDebug(log) {
		return
	}

	logging.Debug(
		log,
		"%s",
		Line{
			BeaconID: id,
			Action:   DeliverIcon,
			Text:     []string{request(method, url), fmt.Sprintf("collector responded with %d", status)},
		}.String(),
	)
}

// LogDeliveryError logs a message indicating that an intercepted beacon could
// not be delivered to the collector.
func LogDeliveryError(
	log logging.Logger,
	id string,
	method, url string,
	cause error,
) {
	logging.LogString(
		log,
		Line{
			BeaconID: id,
			Action:   DeliverErrorIcon,
			Modifier: ErrorIcon,
			Text:     []string{request(method, url), cause.Error()},
		}.String(),
	)
}

// LogQueued logs a message indicating that a beacon has been placed on the
// queue.
func LogQueued(
	log logging.Logger,
	id string,
	qid uint64,
	method, url string,
) {
	logging.LogString(
		log,
		Line{
			BeaconID: id,
			QueueID:  qid,
			Action:   QueueIcon,
			Text:     []string{request(method, url), "queued for replay"},
		}.String(),
	)
}

// LogQueueError logs a message indicating that a beacon could not be placed on
// the queue, and has therefore been discarded.
func LogQueueError(
	log logging.Logger,
	id string,
	method, url string,
	cause error,
) {
	logging.LogString(
		log,
		Line{
			BeaconID: id,
			Action:   QueueErrorIcon,
			Modifier: ErrorIcon,
			Text:     []string{request(method, url), cause.Error(), "beacon discarded"},
		}.String(),
	)
}

// LogReplayed logs a message indicating that a queued beacon was delivered and
// removed from the queue.
func LogReplayed(
	log logging.Logger,
	qid uint64,
	method, url string,
) {
	logging.LogString(
		log,
		Line{
			QueueID:  qid,
			Action:   DeliverIcon,
			Modifier: RetryIcon,
			Text:     []string{request(method, url), "delivered"},
		}.String(),
	)
}

// LogReplayError logs a message indicating that a queued beacon could not be
// delivered and remains on the queue.
func LogReplayError(
	log logging.Logger,
	qid uint64,
	method, url string,
	cause error,
) {
	logging.LogString(
		log,
		Line{
			QueueID:  qid,
			Action:   DeliverErrorIcon,
			Modifier: RetryIcon,
			Text:     []string{request(method, url), cause.Error(), "retained until next activation"},
		}.String(),
	)
}

// LogRemoveError logs a message indicating that a delivered beacon could not
// be removed from the queue.
func LogRemoveError(
	log logging.Logger,
	qid uint64,
	method, url string,
	cause error,
) {
	logging.LogString(
		log,
		Line{
			QueueID:  qid,
			Action:   ErrorIcon,
			Modifier: RetryIcon,
			Text:     []string{request(method, url), cause.Error(), "beacon will be sent again"},
		}.String(),
	)
}

// LogSystem logs an informational message about the internals of the relay.
func LogSystem(
	log logging.Logger,
	f string, v ...interface{},
) {
	logging.LogString(
		log,
		Line{
			Action: SystemIcon,
			Text:   []string{fmt.Sprintf(f, v...)},
		}.String(),
	)
}

// request returns the text that describes a beacon's request line.
//
// It is empty if neither the method nor the URL is known.
func request(method, url string) string {
	return strings.TrimSpace(method + " " + url)
}
