package boltdb_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/dogmatiq/eventhub/checkpoint/boltdb"
	"github.com/dogmatiq/eventhub/checkpoint/internal/checkpointtest"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

var _ = ginkgo.Describe("type Store", func() {
	var store *Store

	checkpointtest.Declare(
		func(ctx context.Context) checkpointtest.Out {
			path := filepath.Join(ginkgo.GinkgoT().TempDir(), "checkpoint.boltdb")

			var err error
			store, err = Open(ctx, path, 0, nil)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			return checkpointtest.Out{
				Store: store,
			}
		},
		func() {
			store.DB.Close()
		},
	)
})

var _ = ginkgo.Describe("func Open()", func() {
	var path string

	ginkgo.BeforeEach(func() {
		path = filepath.Join(ginkgo.GinkgoT().TempDir(), "checkpoint.boltdb")
	})

	ginkgo.It("creates the database file with the default mode", func() {
		store, err := Open(context.Background(), path, 0, nil)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		defer store.DB.Close()

		info, err := os.Stat(path)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		gomega.Expect(info.Mode().Perm()).To(gomega.Equal(os.FileMode(0600)))
	})

	ginkgo.It("returns an error if the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Open(ctx, path, 0, nil)
		gomega.Expect(err).To(gomega.Equal(context.Canceled))
	})

	ginkgo.It("returns context.DeadlineExceeded if the file lock is held until the deadline", func() {
		store, err := Open(context.Background(), path, 0, nil)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		defer store.DB.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err = Open(ctx, path, 0, &bbolt.Options{})
		gomega.Expect(err).To(gomega.Equal(context.DeadlineExceeded))
	})
})
