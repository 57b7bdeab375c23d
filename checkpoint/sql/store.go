package sql

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dogmatiq/eventhub/checkpoint"
	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/internal/x/mustx"
	"github.com/dogmatiq/eventhub/internal/x/sqlx"
)

// Store is an implementation of checkpoint.Store that persists checkpoints in
// an SQL database.
//
// The schema must be created with CreateSchema() before the store is used.
type Store struct {
	// DB is the database in which checkpoints are stored.
	DB *sql.DB

	// Dialect is the SQL dialect to use. If it is nil the dialect is deduced
	// from the database driver.
	Dialect Dialect

	once    sync.Once
	dialect Dialect
	err     error
}

// CreateSchema creates the schema elements required by the store.
func (s *Store) CreateSchema(ctx context.Context) error {
	d, err := s.resolveDialect()
	if err != nil {
		return err
	}

	return d.CreateSchema(ctx, s.DB)
}

// DropSchema removes the schema elements created by CreateSchema().
func (s *Store) DropSchema(ctx context.Context) error {
	d, err := s.resolveDialect()
	if err != nil {
		return err
	}

	return d.DropSchema(ctx, s.DB)
}

// Load returns the checkpoint for k.
func (s *Store) Load(
	ctx context.Context,
	k checkpoint.Key,
) (cp checkpoint.Checkpoint, ok bool, err error) {
	if ctx.Err() != nil {
		return checkpoint.Checkpoint{}, false, ctx.Err()
	}

	d, err := s.resolveDialect()
	if err != nil {
		return checkpoint.Checkpoint{}, false, err
	}

	defer mustx.Recover(&err)

	var (
		offset    string
		updatedAt int64
	)

	ok = sqlx.TryScan(
		ctx,
		s.DB,
		`SELECT
			event_offset,
			sequence,
			updated_at
		FROM `+d.table()+`
		WHERE hub = $1
		AND consumer_group = $2
		AND partition_id = $3`,
		[]interface{}{k.Hub, k.ConsumerGroup, k.PartitionID},
		&offset,
		&cp.Sequence,
		&updatedAt,
	)

	if !ok {
		return checkpoint.Checkpoint{}, false, nil
	}

	cp.Offset = eventstream.Offset(offset)
	cp.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return cp, true, nil
}

// Save persists the checkpoint for k.
func (s *Store) Save(
	ctx context.Context,
	k checkpoint.Key,
	cp checkpoint.Checkpoint,
) (err error) {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	d, err := s.resolveDialect()
	if err != nil {
		return err
	}

	defer mustx.Recover(&err)

	sqlx.Exec(
		ctx,
		s.DB,
		`INSERT INTO `+d.table()+` (
			hub,
			consumer_group,
			partition_id,
			event_offset,
			sequence,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		) ON CONFLICT (hub, consumer_group, partition_id) DO UPDATE SET
			event_offset = excluded.event_offset,
			sequence = excluded.sequence,
			updated_at = excluded.updated_at`,
		k.Hub,
		k.ConsumerGroup,
		k.PartitionID,
		string(cp.Offset),
		cp.Sequence,
		cp.UpdatedAt.UnixNano(),
	)

	return nil
}

// resolveDialect returns the dialect to use for s.DB.
func (s *Store) resolveDialect() (Dialect, error) {
	s.once.Do(func() {
		if s.Dialect != nil {
			s.dialect = s.Dialect
			return
		}

		s.dialect, s.err = NewDialect(s.DB)
	})

	return s.dialect, s.err
}
