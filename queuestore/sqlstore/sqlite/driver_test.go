package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	. "github.com/dogmatiq/beaconq/queuestore/sqlstore/sqlite"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	_ "modernc.org/sqlite"
)

var _ = Describe("type driver", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		db     *sql.DB
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)

		var err error
		db, err = sql.Open(
			"sqlite",
			filepath.Join(GinkgoT().TempDir(), "queue.sqlite"),
		)
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
		cancel()
	})

	Describe("func IsCompatibleWith()", func() {
		It("returns nil for an SQLite database", func() {
			err := Driver.IsCompatibleWith(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func CreateSchema()", func() {
		It("can be called when the schema already exists", func() {
			err := Driver.CreateSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())

			err = Driver.CreateSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func DropSchema()", func() {
		It("removes the queue table", func() {
			err := Driver.CreateSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())

			err = Driver.DropSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())

			_, err = Driver.SelectRecords(ctx, db)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("func InsertRecord()", func() {
		It("returns increasing IDs", func() {
			err := Driver.CreateSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())

			id1, err := Driver.InsertRecord(ctx, db, time.Now(), []byte("<one>"))
			Expect(err).ShouldNot(HaveOccurred())

			id2, err := Driver.InsertRecord(ctx, db, time.Now(), []byte("<two>"))
			Expect(err).ShouldNot(HaveOccurred())

			Expect(id2).To(BeNumerically(">", id1))
		})
	})
})
