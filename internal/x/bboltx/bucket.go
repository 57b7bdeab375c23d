package bboltx

import (
	"github.com/dogmatiq/eventhub/internal/x/mustx"
	"go.etcd.io/bbolt"
)

// BucketParent is implemented by *bbolt.Tx and *bbolt.Bucket.
type BucketParent interface {
	CreateBucketIfNotExists([]byte) (*bbolt.Bucket, error)
	Bucket([]byte) *bbolt.Bucket
}

// Path is the sequence of names of a nested bucket.
type Path [][]byte

// PathOf returns the path made up of the given names.
func PathOf(names ...string) Path {
	p := make(Path, len(names))
	for i, n := range names {
		p[i] = []byte(n)
	}
	return p
}

// CreateBucketIfNotExists returns the bucket at path, creating it and any of its
// parents as necessary.
//
// It aborts via mustx.Must() if a bucket can not be created.
func CreateBucketIfNotExists(p BucketParent, path Path) *bbolt.Bucket {
	return walk(p, path, func(p BucketParent, name []byte) *bbolt.Bucket {
		return mustx.Value(p.CreateBucketIfNotExists(name))
	})
}

// Bucket returns the bucket at path, or nil if it or any of its parents does
// not exist.
func Bucket(p BucketParent, path Path) *bbolt.Bucket {
	return walk(p, path, BucketParent.Bucket)
}

func walk(
	p BucketParent,
	path Path,
	step func(BucketParent, []byte) *bbolt.Bucket,
) *bbolt.Bucket {
	if len(path) == 0 {
		panic("bucket path must not be empty")
	}

	for {
		b := step(p, path[0])
		if b == nil || len(path) == 1 {
			return b
		}

		p, path = b, path[1:]
	}
}
