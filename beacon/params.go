package beacon

import (
	"net/url"
	"sort"
	"strings"
)

// Param is a single key/value pair within a beacon's parameter set.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered set of form-encoded beacon parameters.
//
// Unlike url.Values, Params retains the order in which parameters appear in
// the encoded form, so that re-encoding an unchanged parameter set produces the
// original ordering.
type Params []Param

// ParseParams parses a form-encoded parameter string.
//
// Parsing never fails. A percent sign that does not begin a valid escape
// sequence is kept as a literal character, as it is by a browser's
// URLSearchParams.
func ParseParams(s string) Params {
	var params Params

	for s != "" {
		var pair string
		pair, s, _ = strings.Cut(s, "&")

		if pair == "" {
			continue
		}

		k, v, _ := strings.Cut(pair, "=")
		params = append(params, Param{unescape(k), unescape(v)})
	}

	return params
}

// unescape decodes a form-encoded key or value.
func unescape(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}

	var w strings.Builder
	w.Grow(len(s))

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			w.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			w.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			w.WriteByte(c)
		}
	}

	return w.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' ||
		'a' <= c && c <= 'f' ||
		'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}

// Get returns the first value associated with k.
func (p Params) Get(k string) (string, bool) {
	for _, x := range p {
		if x.Key == k {
			return x.Value, true
		}
	}

	return "", false
}

// Set sets the value of k to v.
//
// If k is already present its first occurrence is updated in place and any
// subsequent occurrences are removed. Otherwise, the pair is appended.
func (p *Params) Set(k, v string) {
	found := false
	result := (*p)[:0]

	for _, x := range *p {
		if x.Key == k {
			if found {
				continue
			}

			found = true
			x.Value = v
		}

		result = append(result, x)
	}

	if !found {
		result = append(result, Param{k, v})
	}

	*p = result
}

// Merge sets each of the key/value pairs in m.
//
// Keys are applied in sorted order so that any newly added parameters appear
// in a deterministic order.
func (p *Params) Merge(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		p.Set(k, m[k])
	}
}

// Map returns the parameters as a map, keeping the first value of each key.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p))

	for _, x := range p {
		if _, ok := m[x.Key]; !ok {
			m[x.Key] = x.Value
		}
	}

	return m
}

// Encode returns the form-encoded representation of the parameters.
func (p Params) Encode() string {
	var w strings.Builder

	for i, x := range p {
		if i > 0 {
			w.WriteByte('&')
		}

		w.WriteString(url.QueryEscape(x.Key))
		w.WriteByte('=')
		w.WriteString(url.QueryEscape(x.Value))
	}

	return w.String()
}
