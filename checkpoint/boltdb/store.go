package boltdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dogmatiq/eventhub/checkpoint"
	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/internal/x/bboltx"
	"github.com/dogmatiq/eventhub/internal/x/mustx"
	"go.etcd.io/bbolt"
)

// bucketPath returns the path of the bucket that contains the checkpoints for
// k's consumer group. Each checkpoint is keyed by partition ID.
func bucketPath(k checkpoint.Key) bboltx.Path {
	return bboltx.PathOf("checkpoint", k.Hub, k.ConsumerGroup)
}

// Store is an implementation of checkpoint.Store that persists checkpoints in
// a BoltDB database.
//
// Checkpoints are stored in nested buckets, keyed first by hub name, then by
// consumer group, then by partition ID.
type Store struct {
	DB *bbolt.DB
}

// record is the JSON representation of a checkpoint.
type record struct {
	Offset    string `json:"offset"`
	Sequence  int64  `json:"sequence"`
	UpdatedAt int64  `json:"updated_at"`
}

// Load returns the checkpoint for k.
func (s *Store) Load(
	ctx context.Context,
	k checkpoint.Key,
) (cp checkpoint.Checkpoint, ok bool, err error) {
	if ctx.Err() != nil {
		return checkpoint.Checkpoint{}, false, ctx.Err()
	}

	err = s.DB.View(func(tx *bbolt.Tx) (err error) {
		defer mustx.Recover(&err)

		b := bboltx.Bucket(tx, bucketPath(k))
		if b == nil {
			return nil
		}

		data := b.Get([]byte(k.PartitionID))
		if data == nil {
			return nil
		}

		var r record
		mustx.Must(json.Unmarshal(data, &r))

		cp = checkpoint.Checkpoint{
			Offset:    eventstream.Offset(r.Offset),
			Sequence:  r.Sequence,
			UpdatedAt: time.Unix(0, r.UpdatedAt).UTC(),
		}
		ok = true

		return nil
	})

	return cp, ok, err
}

// Save persists the checkpoint for k.
func (s *Store) Save(
	ctx context.Context,
	k checkpoint.Key,
	cp checkpoint.Checkpoint,
) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	data, err := json.Marshal(record{
		Offset:    string(cp.Offset),
		Sequence:  cp.Sequence,
		UpdatedAt: cp.UpdatedAt.UnixNano(),
	})
	if err != nil {
		return err
	}

	return s.DB.Update(func(tx *bbolt.Tx) (err error) {
		defer mustx.Recover(&err)

		b := bboltx.CreateBucketIfNotExists(tx, bucketPath(k))
		mustx.Must(b.Put([]byte(k.PartitionID), data))

		return nil
	})
}
