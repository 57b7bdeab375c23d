package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dogmatiq/eventhub/internal/x/mustx"
	"github.com/dogmatiq/eventhub/internal/x/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect encapsulates the differences between the supported database
// engines.
type Dialect interface {
	// IsCompatibleWith returns true if the dialect can be used with db.
	IsCompatibleWith(db *sql.DB) bool

	// CreateSchema creates the schema elements required by the store.
	CreateSchema(ctx context.Context, db *sql.DB) error

	// DropSchema removes the schema elements created by CreateSchema().
	DropSchema(ctx context.Context, db *sql.DB) error

	// table returns the qualified name of the checkpoint table.
	table() string
}

var (
	// PostgreSQL is the dialect used with the github.com/lib/pq driver.
	PostgreSQL Dialect = postgres{}

	// SQLite is the dialect used with the github.com/mattn/go-sqlite3 driver.
	SQLite Dialect = sqlite{}
)

// NewDialect returns the appropriate dialect to use with the given database.
func NewDialect(db *sql.DB) (Dialect, error) {
	for _, d := range []Dialect{PostgreSQL, SQLite} {
		if d.IsCompatibleWith(db) {
			return d, nil
		}
	}

	return nil, fmt.Errorf(
		"can not deduce the appropriate SQL dialect for %T",
		db.Driver(),
	)
}

type postgres struct{}

func (postgres) IsCompatibleWith(db *sql.DB) bool {
	_, ok := db.Driver().(*pq.Driver)
	return ok
}

func (postgres) CreateSchema(ctx context.Context, db *sql.DB) error {
	return sqlx.InTx(ctx, db, func(tx *sql.Tx) {
		sqlx.Exec(ctx, tx, `CREATE SCHEMA IF NOT EXISTS eventhub`)
		sqlx.Exec(
			ctx,
			tx,
			`CREATE TABLE IF NOT EXISTS eventhub.checkpoint (
				hub            TEXT NOT NULL,
				consumer_group TEXT NOT NULL,
				partition_id   TEXT NOT NULL,
				event_offset   TEXT NOT NULL,
				sequence       BIGINT NOT NULL,
				updated_at     BIGINT NOT NULL, -- unix nanoseconds

				PRIMARY KEY (hub, consumer_group, partition_id)
			)`,
		)
	})
}

func (postgres) DropSchema(ctx context.Context, db *sql.DB) (err error) {
	defer mustx.Recover(&err)

	sqlx.Exec(ctx, db, `DROP SCHEMA IF EXISTS eventhub CASCADE`)

	return nil
}

func (postgres) table() string {
	return "eventhub.checkpoint"
}

type sqlite struct{}

func (sqlite) IsCompatibleWith(db *sql.DB) bool {
	_, ok := db.Driver().(*sqlite3.SQLiteDriver)
	return ok
}

func (sqlite) CreateSchema(ctx context.Context, db *sql.DB) (err error) {
	defer mustx.Recover(&err)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS checkpoint (
			hub            TEXT NOT NULL,
			consumer_group TEXT NOT NULL,
			partition_id   TEXT NOT NULL,
			event_offset   TEXT NOT NULL,
			sequence       BIGINT NOT NULL,
			updated_at     BIGINT NOT NULL, -- unix nanoseconds

			PRIMARY KEY (hub, consumer_group, partition_id)
		) WITHOUT ROWID`,
	)

	return nil
}

func (sqlite) DropSchema(ctx context.Context, db *sql.DB) (err error) {
	defer mustx.Recover(&err)

	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS checkpoint`)

	return nil
}

func (sqlite) table() string {
	return "checkpoint"
}
