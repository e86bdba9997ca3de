package boltstore

import (
	"context"
	"os"
	"sync"

	"github.com/dogmatiq/beaconq/internal/x/bboltx"
	"github.com/dogmatiq/beaconq/queuestore"
	"go.etcd.io/bbolt"
)

// Provider is an implementation of queuestore.Provider for BoltDB that uses an
// existing open database.
type Provider struct {
	provider

	// DB is the BoltDB database to use.
	DB *bbolt.DB
}

// Open returns a store that uses the existing database.
func (p *Provider) Open(ctx context.Context) (queuestore.Store, error) {
	return p.open(
		ctx,
		func() (*bbolt.DB, error) {
			return p.DB, nil
		},
		func(*bbolt.DB) error {
			// Don't actually close the database, since we didn't open it.
			return nil
		},
	)
}

// FileProvider is an implementation of queuestore.Provider for BoltDB that
// opens a BoltDB database file.
//
// The file is opened when the first store is opened, and closed when the last
// open store is closed.
type FileProvider struct {
	provider

	// Path is the path to the BoltDB database to open or create.
	Path string

	// Mode is the file mode for the created file.
	// If it is zero, 0600 (owner read/write only) is used.
	Mode os.FileMode

	// Options is the BoltDB options for the database.
	// If it is nil, bbolt.DefaultOptions is used.
	Options *bbolt.Options
}

// Open returns a store backed by the database file.
func (p *FileProvider) Open(ctx context.Context) (queuestore.Store, error) {
	return p.open(
		ctx,
		func() (*bbolt.DB, error) {
			return bboltx.Open(ctx, p.Path, p.Mode, p.Options)
		},
		func(db *bbolt.DB) error {
			return db.Close()
		},
	)
}

// provider is the common implementation of Provider and FileProvider.
type provider struct {
	m     sync.Mutex
	db    *bbolt.DB
	close func(db *bbolt.DB) error
	refs  int
}

// open returns a new store handle, opening the database if necessary.
func (p *provider) open(
	_ context.Context,
	open func() (*bbolt.DB, error),
	close func(db *bbolt.DB) error,
) (_ queuestore.Store, err error) {
	p.m.Lock()
	defer p.m.Unlock()

	if p.db == nil {
		db, err := open()
		if err != nil {
			return nil, queuestore.UnavailableError{Cause: err}
		}

		if err := createSchema(db); err != nil {
			close(db)
			return nil, queuestore.UnavailableError{Cause: err}
		}

		p.db = db
		p.close = close
	}

	p.refs++

	return &store{
		db:      p.db,
		release: p.release,
	}, nil
}

// release marks a previously-opened store as closed, closing the database if
// no other stores are open.
func (p *provider) release() error {
	p.m.Lock()
	defer p.m.Unlock()

	p.refs--

	if p.refs > 0 {
		return nil
	}

	db := p.db
	close := p.close

	p.db = nil
	p.close = nil

	return close(db)
}

// createSchema creates the buckets used by the store.
func createSchema(db *bbolt.DB) (err error) {
	defer bboltx.Recover(&err)

	bboltx.Update(
		db,
		func(tx *bbolt.Tx) {
			bboltx.CreateBucketIfNotExists(tx, beaconsBucketKey)
		},
	)

	return nil
}
