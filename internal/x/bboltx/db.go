package bboltx

import (
	"context"
	"errors"
	"os"

	"github.com/dogmatiq/linger"
	"go.etcd.io/bbolt"
)

// DefaultFileMode is the mode used to create database files when none is given.
const DefaultFileMode os.FileMode = 0600

// Open opens the database at path, creating it if necessary.
//
// The time spent waiting for another process to release the file lock is
// bounded by the ctx deadline, in addition to opts.Timeout. opts may be nil.
func Open(
	ctx context.Context,
	path string,
	mode os.FileMode,
	opts *bbolt.Options,
) (*bbolt.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if mode == 0 {
		mode = DefaultFileMode
	}

	opts, err := boundLockWait(ctx, opts)
	if err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, mode, opts)
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, context.DeadlineExceeded
	}

	return db, err
}

// boundLockWait returns a copy of opts with a lock timeout no later than the
// ctx deadline.
func boundLockWait(ctx context.Context, opts *bbolt.Options) (*bbolt.Options, error) {
	remaining, ok := linger.FromContextDeadline(ctx)
	if !ok {
		return opts, nil
	}

	// bbolt treats a zero timeout as "wait forever".
	if remaining <= 0 {
		return nil, context.DeadlineExceeded
	}

	bounded := *bbolt.DefaultOptions
	if opts != nil {
		bounded = *opts
	}

	if bounded.Timeout <= 0 || bounded.Timeout > remaining {
		bounded.Timeout = remaining
	}

	return &bounded, nil
}
