package bboltx

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

// CreateBucketIfNotExists creates nested buckets with names given by the
// elements of path.
func CreateBucketIfNotExists(tx *bbolt.Tx, path ...[]byte) *bbolt.Bucket {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	b, err := tx.CreateBucketIfNotExists(path[0])
	Must(err)

	for _, n := range path[1:] {
		b, err = b.CreateBucketIfNotExists(n)
		Must(err)
	}

	return b
}

// Bucket gets nested buckets with names given by the elements of path.
//
// It returns nil if any of the nested buckets does not exist.
func Bucket(tx *bbolt.Tx, path ...[]byte) *bbolt.Bucket {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	b := tx.Bucket(path[0])

	for _, n := range path[1:] {
		if b == nil {
			return nil
		}

		b = b.Bucket(n)
	}

	return b
}

// Put writes a value to a bucket.
func Put(b *bbolt.Bucket, k, v []byte) {
	Must(b.Put(k, v))
}

// Delete removes a key from a bucket.
func Delete(b *bbolt.Bucket, k []byte) {
	Must(b.Delete(k))
}

// NextSequence returns the next value of the bucket's sequence.
func NextSequence(b *bbolt.Bucket) uint64 {
	n, err := b.NextSequence()
	Must(err)
	return n
}

// MarshalUint64 marshals a uint64 to its binary representation.
//
// The representation is big-endian so that keys sort in numeric order.
func MarshalUint64(n uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, n)
	return data
}

// UnmarshalUint64 unmarshals a uint64 from its binary representation.
func UnmarshalUint64(data []byte) uint64 {
	if n := len(data); n != 8 {
		panic(PanicSentinel{
			Cause: fmt.Errorf("data is corrupt, expected 8 bytes, got %d", n),
		})
	}

	return binary.BigEndian.Uint64(data)
}
