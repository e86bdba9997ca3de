package sqlstore

import (
	"context"
	"database/sql"
	"time"
)

// Driver is used to interface with the underlying SQL database.
type Driver interface {
	// IsCompatibleWith returns nil if this driver can be used with db.
	IsCompatibleWith(ctx context.Context, db *sql.DB) error

	// CreateSchema creates any SQL schema elements required by the driver.
	//
	// It does nothing if the schema already exists.
	CreateSchema(ctx context.Context, db *sql.DB) error

	// DropSchema removes any SQL schema elements created by CreateSchema().
	DropSchema(ctx context.Context, db *sql.DB) error

	// InsertRecord inserts a marshaled record and returns its ID.
	InsertRecord(
		ctx context.Context,
		db *sql.DB,
		queuedAt time.Time,
		data []byte,
	) (int64, error)

	// SelectRecords returns all records in ID order.
	//
	// Each row has exactly two columns, the record ID and the marshaled
	// record.
	SelectRecords(ctx context.Context, db *sql.DB) (*sql.Rows, error)

	// DeleteRecord deletes the record with the given ID, if it exists.
	DeleteRecord(ctx context.Context, db *sql.DB, id int64) error
}
