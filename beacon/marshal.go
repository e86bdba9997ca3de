package beacon

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Field numbers of the binary record representation.
//
// The representation uses the protocol buffers wire format so that fields can
// be added without breaking the ability to read existing records. Fields that
// are absent are left as their zero-value, and unknown fields are ignored.
const (
	methodField   protowire.Number = 1
	urlField      protowire.Number = 2
	headerField   protowire.Number = 3
	bodyField     protowire.Number = 4
	queuedAtField protowire.Number = 5

	headerNameField  protowire.Number = 1
	headerValueField protowire.Number = 2
)

// MarshalRecord returns the binary representation of r.
func MarshalRecord(r Record) ([]byte, error) {
	var data []byte

	data = appendString(data, methodField, r.Method)
	data = appendString(data, urlField, r.URL)

	for _, f := range r.Header {
		var h []byte
		h = appendString(h, headerNameField, f.Name)
		h = appendString(h, headerValueField, f.Value)

		data = protowire.AppendTag(data, headerField, protowire.BytesType)
		data = protowire.AppendBytes(data, h)
	}

	if len(r.Body) > 0 {
		data = protowire.AppendTag(data, bodyField, protowire.BytesType)
		data = protowire.AppendBytes(data, r.Body)
	}

	if !r.QueuedAt.IsZero() {
		ts, err := proto.Marshal(timestamppb.New(r.QueuedAt))
		if err != nil {
			return nil, err
		}

		data = protowire.AppendTag(data, queuedAtField, protowire.BytesType)
		data = protowire.AppendBytes(data, ts)
	}

	return data, nil
}

// UnmarshalRecord returns the record represented by data.
func UnmarshalRecord(data []byte) (Record, error) {
	var r Record

	err := consumeFields(data, func(num protowire.Number, v []byte) error {
		switch num {
		case methodField:
			r.Method = string(v)
		case urlField:
			r.URL = string(v)
		case bodyField:
			r.Body = append([]byte(nil), v...)
		case headerField:
			var f HeaderField
			if err := consumeFields(v, func(num protowire.Number, v []byte) error {
				switch num {
				case headerNameField:
					f.Name = string(v)
				case headerValueField:
					f.Value = string(v)
				}
				return nil
			}); err != nil {
				return err
			}
			r.Header = append(r.Header, f)
		case queuedAtField:
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(v, &ts); err != nil {
				return err
			}
			r.QueuedAt = ts.AsTime()
		}

		return nil
	})
	if err != nil {
		return Record{}, fmt.Errorf("record data is corrupt: %w", err)
	}

	return r, nil
}

// appendString appends a length-delimited string field to data.
//
// Empty strings are omitted, as they are indistinguishable from a missing
// field when decoded.
func appendString(data []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return data
	}

	data = protowire.AppendTag(data, num, protowire.BytesType)
	return protowire.AppendString(data, s)
}

// consumeFields calls fn for each length-delimited field in data.
//
// Fields of any other wire type are skipped.
func consumeFields(
	data []byte,
	fn func(protowire.Number, []byte) error,
) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		if err := fn(num, v); err != nil {
			return err
		}
	}

	return nil
}
