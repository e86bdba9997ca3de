package sqlx

import (
	"context"
	"database/sql"
)

// DB is an interface satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DB interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var (
	_ DB = (*sql.DB)(nil)
	_ DB = (*sql.Tx)(nil)
	_ DB = (*sql.Conn)(nil)
)

// Exec executes a statement on db, panicking with a PanicSentinel if it
// fails.
func Exec(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) sql.Result {
	res, err := db.ExecContext(ctx, query, args...)
	Must(err)
	return res
}

// QueryInt64 executes a query that produces a single int64 value, such as an
// INSERT with a RETURNING clause, panicking with a PanicSentinel if it fails.
func QueryInt64(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) (v int64) {
	Must(
		db.QueryRowContext(ctx, query, args...).Scan(&v),
	)
	return v
}
