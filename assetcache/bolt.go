package assetcache

import (
	"context"

	"github.com/dogmatiq/beaconq/internal/x/bboltx"
	"go.etcd.io/bbolt"
)

// assetsBucketKey is the key for the root bucket that contains each named
// cache.
//
// Within each named cache's bucket the keys are the cache keys and the values
// are entries marshaled using marshalEntry().
var assetsBucketKey = []byte("assets")

// Bolt is an implementation of Cache that stores entries in a BoltDB database.
type Bolt struct {
	// DB is the BoltDB database to use.
	DB *bbolt.DB

	// Name is the name of the cache. Caches with different names within the
	// same database are independent of each other.
	//
	// If it is empty, DefaultCacheName is used.
	Name string
}

// Load returns the entry with the given key.
func (c *Bolt) Load(_ context.Context, key string) (e Entry, ok bool, err error) {
	defer bboltx.Recover(&err)

	bboltx.View(
		c.DB,
		func(tx *bbolt.Tx) {
			b := bboltx.Bucket(tx, assetsBucketKey, c.name())
			if b == nil {
				return
			}

			data := b.Get([]byte(key))
			if data == nil {
				return
			}

			e, err = unmarshalEntry(data)
			bboltx.Must(err)
			ok = true
		},
	)

	return e, ok, nil
}

// Save stores e under the given key, replacing any existing entry.
func (c *Bolt) Save(_ context.Context, key string, e Entry) (err error) {
	defer bboltx.Recover(&err)

	data, err := marshalEntry(e)
	if err != nil {
		return err
	}

	bboltx.Update(
		c.DB,
		func(tx *bbolt.Tx) {
			b := bboltx.CreateBucketIfNotExists(tx, assetsBucketKey, c.name())
			bboltx.Put(b, []byte(key), data)
		},
	)

	return nil
}

func (c *Bolt) name() []byte {
	if c.Name == "" {
		return []byte(DefaultCacheName)
	}

	return []byte(c.Name)
}
