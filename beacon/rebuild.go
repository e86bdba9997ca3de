package beacon

import (
	"bytes"
	"context"
	"net/http"
)

// Deserialize returns a new request that re-sends the beacon described by rec.
//
// Each of the key/value pairs in overrides is merged into the beacon's
// parameters before the request is built, replacing any existing value with
// the same key. If overrides is empty the body is sent exactly as it was
// captured.
//
// The returned request does not share any memory with rec.
func Deserialize(
	ctx context.Context,
	rec Record,
	overrides map[string]string,
) (*http.Request, error) {
	body := bytes.Clone(rec.Body)

	if len(overrides) > 0 {
		params := ParseParams(string(body))
		params.Merge(overrides)
		body = []byte(params.Encode())
	}

	req, err := http.NewRequestWithContext(
		ctx,
		rec.Method,
		rec.URL,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}

	req.Header = rec.HTTPHeader()

	return req, nil
}
