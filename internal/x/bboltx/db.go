package bboltx

import (
	"context"
	"os"

	"github.com/dogmatiq/linger"
	"go.etcd.io/bbolt"
)

// Open creates and opens a database at the given path.
//
// If mode is zero, 0600 is used.
//
// If the deadline from ctx is sooner than opts.Timeout, the context deadline is
// used instead.
func Open(
	ctx context.Context,
	path string,
	mode os.FileMode,
	opts *bbolt.Options,
) (*bbolt.DB, error) {
	if mode == 0 {
		mode = 0600
	}

	if ctx.Err() != nil {
		// A non-positive timeout in the BoltDB options means "wait forever", so
		// bail before we get that far.
		return nil, ctx.Err()
	}

	if timeout, ok := linger.FromContextDeadline(ctx); ok {
		if opts == nil {
			clone := *bbolt.DefaultOptions
			opts = &clone
			opts.Timeout = timeout
		} else if opts.Timeout == 0 || opts.Timeout > timeout {
			clone := *opts
			opts = &clone
			opts.Timeout = timeout
		}
	}

	db, err := bbolt.Open(path, mode, opts)

	if err != nil && err.Error() == "timeout" {
		err = context.DeadlineExceeded
	}

	return db, err
}

// Update executes fn within a read/write transaction.
//
// fn may call Must() to abort the transaction, in which case the transaction is
// rolled back and the panic propagates to the caller of Update().
func Update(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(
		db.Update(
			func(tx *bbolt.Tx) (err error) {
				defer Recover(&err)
				fn(tx)
				return nil
			},
		),
	)
}

// View executes fn within a read-only transaction.
func View(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(
		db.View(
			func(tx *bbolt.Tx) (err error) {
				defer Recover(&err)
				fn(tx)
				return nil
			},
		),
	)
}
