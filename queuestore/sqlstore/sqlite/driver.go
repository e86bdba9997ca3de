package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/dogmatiq/beaconq/internal/x/sqlx"
)

// Driver is an implementation of sqlstore.Driver for SQLite.
var Driver = driver{}

type driver struct{}

// IsCompatibleWith returns nil if this driver can be used with db.
func (driver) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	// Verify that we're using SQLite and that $1-style placeholders are
	// supported.
	var version string
	return db.QueryRowContext(
		ctx,
		`SELECT sqlite_version() WHERE 1 = $1`,
		1,
	).Scan(&version)
}

// CreateSchema creates the schema elements required by the SQLite driver.
func (driver) CreateSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS beaconq_queue (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			queued_at DATETIME NOT NULL,
			data      BLOB NOT NULL
		)`,
	)

	return nil
}

// DropSchema drops the schema elements required by the SQLite driver.
func (driver) DropSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS beaconq_queue`)

	return nil
}

// InsertRecord inserts a marshaled record and returns its ID.
func (driver) InsertRecord(
	ctx context.Context,
	db *sql.DB,
	queuedAt time.Time,
	data []byte,
) (_ int64, err error) {
	defer sqlx.Recover(&err)

	return sqlx.QueryInt64(
		ctx,
		db,
		`INSERT INTO beaconq_queue (
			queued_at,
			data
		) VALUES (
			$1, $2
		) RETURNING id`,
		queuedAt.UTC(),
		data,
	), nil
}

// SelectRecords returns all records in ID order.
func (driver) SelectRecords(ctx context.Context, db *sql.DB) (*sql.Rows, error) {
	return db.QueryContext(
		ctx,
		`SELECT
			id,
			data
		FROM beaconq_queue
		ORDER BY id`,
	)
}

// DeleteRecord deletes the record with the given ID, if it exists.
func (driver) DeleteRecord(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(
		ctx,
		`DELETE FROM beaconq_queue WHERE id = $1`,
		id,
	)
	return err
}
