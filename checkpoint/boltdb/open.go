package boltdb

import (
	"context"
	"os"

	"github.com/dogmatiq/eventhub/internal/x/bboltx"
	"go.etcd.io/bbolt"
)

// Open opens the BoltDB database at path and returns a store that uses it.
//
// The caller is responsible for closing the store's DB.
func Open(
	ctx context.Context,
	path string,
	mode os.FileMode,
	opts *bbolt.Options,
) (*Store, error) {
	db, err := bboltx.Open(ctx, path, mode, opts)
	if err != nil {
		return nil, err
	}

	return &Store{DB: db}, nil
}
