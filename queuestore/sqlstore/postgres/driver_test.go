package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/dogmatiq/beaconq/queuestore"
	"github.com/dogmatiq/beaconq/queuestore/internal/storetest"
	"github.com/dogmatiq/beaconq/queuestore/sqlstore"
	. "github.com/dogmatiq/beaconq/queuestore/sqlstore/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// dsnEnvVar is the environment variable that holds the DSN of the PostgreSQL
// server to test against. The tests are skipped if it is empty.
const dsnEnvVar = "BEACONQ_TEST_POSTGRES_DSN"

var _ = Describe("type driver", func() {
	var db *sql.DB

	BeforeEach(func() {
		if os.Getenv(dsnEnvVar) == "" {
			Skip(dsnEnvVar + " is not set")
		}
	})

	storetest.Declare(
		func(ctx context.Context, in storetest.In) storetest.Out {
			var err error
			db, err = sql.Open("pgx", os.Getenv(dsnEnvVar))
			Expect(err).ShouldNot(HaveOccurred())

			err = Driver.DropSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())

			return storetest.Out{
				NewProvider: func() (queuestore.Provider, func()) {
					return &sqlstore.Provider{
						DB:     db,
						Driver: Driver,
					}, nil
				},
			}
		},
		func() {
			if db == nil {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			err := Driver.DropSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())

			err = db.Close()
			Expect(err).ShouldNot(HaveOccurred())

			db = nil
		},
	)
})
