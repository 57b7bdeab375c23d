package sql_test

import (
	"context"
	"database/sql"
	"os"

	. "github.com/dogmatiq/eventhub/checkpoint/sql"
	"github.com/dogmatiq/eventhub/checkpoint/internal/checkpointtest"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("type Store (SQLite)", func() {
	var db *sql.DB

	checkpointtest.Declare(
		func(ctx context.Context) checkpointtest.Out {
			var err error
			db, err = sql.Open("sqlite3", ":memory:")
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			// Each connection to ":memory:" is a distinct database.
			db.SetMaxOpenConns(1)

			store := &Store{DB: db}

			err = store.CreateSchema(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			return checkpointtest.Out{
				Store: store,
			}
		},
		func() {
			db.Close()
		},
	)
})

var _ = ginkgo.Describe("type Store (PostgreSQL)", func() {
	var (
		db    *sql.DB
		store *Store
	)

	ginkgo.BeforeEach(func() {
		if os.Getenv("EVENTHUB_TEST_POSTGRES_DSN") == "" {
			ginkgo.Skip("EVENTHUB_TEST_POSTGRES_DSN is not set")
		}
	})

	checkpointtest.Declare(
		func(ctx context.Context) checkpointtest.Out {
			var err error
			db, err = sql.Open("postgres", os.Getenv("EVENTHUB_TEST_POSTGRES_DSN"))
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			store = &Store{DB: db}

			err = store.DropSchema(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			err = store.CreateSchema(ctx)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			return checkpointtest.Out{
				Store: store,
			}
		},
		func() {
			if db != nil {
				store.DropSchema(context.Background())
				db.Close()
			}
		},
	)
})

var _ = ginkgo.Describe("func NewDialect()", func() {
	ginkgo.It("returns the SQLite dialect for the go-sqlite3 driver", func() {
		db, err := sql.Open("sqlite3", ":memory:")
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		defer db.Close()

		d, err := NewDialect(db)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(d).To(gomega.Equal(SQLite))
	})

	ginkgo.It("returns the PostgreSQL dialect for the pq driver", func() {
		db, err := sql.Open("postgres", "host=localhost")
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		defer db.Close()

		d, err := NewDialect(db)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(d).To(gomega.Equal(PostgreSQL))
	})
})
