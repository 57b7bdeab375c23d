package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmatiq/eventhub/eventstream"
)

// Key identifies the checkpoint of a single partition as read by a single
// consumer group.
type Key struct {
	Hub           string
	ConsumerGroup string
	PartitionID   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Hub, k.ConsumerGroup, k.PartitionID)
}

// Checkpoint is the persisted position of the last event that a consumer group
// has fully processed.
type Checkpoint struct {
	Offset    eventstream.Offset
	Sequence  int64
	UpdatedAt time.Time
}

// Store persists checkpoints.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the checkpoint for k.
	//
	// ok is false if no checkpoint has been saved.
	Load(ctx context.Context, k Key) (cp Checkpoint, ok bool, err error)

	// Save persists the checkpoint for k, replacing any existing checkpoint.
	Save(ctx context.Context, k Key, cp Checkpoint) error
}
