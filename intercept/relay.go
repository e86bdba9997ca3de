package intercept

import (
	"io"
	"net/http"
	"strings"
)

// hopHeaders are headers that apply to a single connection and are therefore
// not forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// removeHopHeaders removes hop-by-hop headers from h, including any listed in
// the Connection header.
func removeHopHeaders(h http.Header) {
	for _, v := range h["Connection"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}

	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// relay writes res to w.
func relay(w http.ResponseWriter, res *http.Response) {
	header := res.Header.Clone()
	removeHopHeaders(header)

	for k, v := range header {
		w.Header()[k] = v
	}

	w.WriteHeader(res.StatusCode)
	io.Copy(w, res.Body) // nolint:errcheck
}

// singleJoiningSlash joins a and b with exactly one slash between them.
func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")

	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}

	return a + b
}
