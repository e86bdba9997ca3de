package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dogmatiq/beaconq/queuestore/sqlstore/postgres"
	"github.com/dogmatiq/beaconq/queuestore/sqlstore/sqlite"
	"go.uber.org/multierr"
)

// candidates is the list of drivers tried, in order, when a provider does not
// specify a driver.
var candidates = []Driver{
	postgres.Driver,
	sqlite.Driver,
}

// selectDriver returns the first of the candidate drivers that can store the
// queue in db.
//
// The returned error describes why each candidate was rejected.
func selectDriver(ctx context.Context, db *sql.DB) (Driver, error) {
	var rejected error

	for _, d := range candidates {
		err := d.IsCompatibleWith(ctx, db)
		if err == nil {
			return d, nil
		}

		rejected = multierr.Append(
			rejected,
			fmt.Errorf("%T rejected the database: %w", d, err),
		)
	}

	return nil, multierr.Append(
		fmt.Errorf("none of the built-in queue drivers support %T", db.Driver()),
		rejected,
	)
}
