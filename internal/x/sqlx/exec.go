package sqlx

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dogmatiq/eventhub/internal/x/mustx"
)

// Exec executes a statement on db, aborting via mustx.Must() on failure.
func Exec(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) sql.Result {
	return mustx.Value(db.ExecContext(ctx, query, args...))
}

// TryScan executes a single-row query on the given DB and scans the result
// into values.
//
// It returns false if the query produces no rows.
func TryScan(
	ctx context.Context,
	db DB,
	query string,
	args []interface{},
	values ...interface{},
) bool {
	err := db.QueryRowContext(ctx, query, args...).Scan(values...)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}

	mustx.Must(err)
	return true
}
