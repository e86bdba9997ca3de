package mlog

import "strconv"

// FormatID formats a beacon's correlation ID for logging.
//
// If the ID appears to be a UUID, only the first 8 characters are shown.
// Otherwise, the ID is displayed in-full.
func FormatID(id string) string {
	if len(id) == 36 && id[8] == '-' {
		return id[:8]
	}

	return id
}

// FormatQueueID formats a queue ID for logging.
//
// Queue stores never assign zero, so it is formatted as an empty string.
func FormatQueueID(id uint64) string {
	if id == 0 {
		return ""
	}

	return strconv.FormatUint(id, 10)
}
