package sqlx

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventhub/internal/x/mustx"
)

// InTx calls fn within a transaction.
//
// The transaction is committed if fn returns normally. If fn aborts via mustx.Must(),
// or the commit fails, the transaction is rolled back and the error is
// returned. Other panics are propagated.
func InTx(
	ctx context.Context,
	db *sql.DB,
	fn func(tx *sql.Tx),
) (err error) {
	defer mustx.Recover(&err)

	tx := mustx.Value(db.BeginTx(ctx, nil))
	defer tx.Rollback() // nolint:errcheck

	fn(tx)

	return tx.Commit()
}
