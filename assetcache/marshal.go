package assetcache

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Field numbers of the binary entry representation.
const (
	statusCodeField protowire.Number = 1
	headerField     protowire.Number = 2
	bodyField       protowire.Number = 3
	storedAtField   protowire.Number = 4

	headerNameField  protowire.Number = 1
	headerValueField protowire.Number = 2
)

// marshalEntry returns the binary representation of e.
func marshalEntry(e Entry) ([]byte, error) {
	var data []byte

	data = protowire.AppendTag(data, statusCodeField, protowire.VarintType)
	data = protowire.AppendVarint(data, uint64(e.StatusCode))

	for name, values := range e.Header {
		for _, v := range values {
			var h []byte
			h = protowire.AppendTag(h, headerNameField, protowire.BytesType)
			h = protowire.AppendString(h, name)
			h = protowire.AppendTag(h, headerValueField, protowire.BytesType)
			h = protowire.AppendString(h, v)

			data = protowire.AppendTag(data, headerField, protowire.BytesType)
			data = protowire.AppendBytes(data, h)
		}
	}

	data = protowire.AppendTag(data, bodyField, protowire.BytesType)
	data = protowire.AppendBytes(data, e.Body)

	if !e.StoredAt.IsZero() {
		ts, err := proto.Marshal(timestamppb.New(e.StoredAt))
		if err != nil {
			return nil, err
		}

		data = protowire.AppendTag(data, storedAtField, protowire.BytesType)
		data = protowire.AppendBytes(data, ts)
	}

	return data, nil
}

// unmarshalEntry returns the entry represented by data.
func unmarshalEntry(data []byte) (Entry, error) {
	e := Entry{
		Header: http.Header{},
		Body:   []byte{},
	}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Entry{}, corrupt(protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == statusCodeField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Entry{}, corrupt(protowire.ParseError(n))
			}
			data = data[n:]
			e.StatusCode = int(v)

		case typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return Entry{}, corrupt(protowire.ParseError(n))
			}
			data = data[n:]

			if err := e.apply(num, v); err != nil {
				return Entry{}, corrupt(err)
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Entry{}, corrupt(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	return e, nil
}

// apply sets the length-delimited field num of e to v.
func (e *Entry) apply(num protowire.Number, v []byte) error {
	switch num {
	case bodyField:
		e.Body = append([]byte(nil), v...)

	case storedAtField:
		var ts timestamppb.Timestamp
		if err := proto.Unmarshal(v, &ts); err != nil {
			return err
		}
		e.StoredAt = ts.AsTime()

	case headerField:
		var name, value string

		for len(v) > 0 {
			num, typ, n := protowire.ConsumeTag(v)
			if n < 0 {
				return protowire.ParseError(n)
			}
			v = v[n:]

			if typ != protowire.BytesType {
				return errors.New("header field has an unexpected wire type")
			}

			s, n := protowire.ConsumeString(v)
			if n < 0 {
				return protowire.ParseError(n)
			}
			v = v[n:]

			switch num {
			case headerNameField:
				name = s
			case headerValueField:
				value = s
			}
		}

		e.Header[name] = append(e.Header[name], value)
	}

	return nil
}

func corrupt(err error) error {
	return fmt.Errorf("cache entry is corrupt: %w", err)
}
