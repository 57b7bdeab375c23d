package transport

import (
	"context"

	"github.com/dogmatiq/eventhub/eventstream"
)

// Endpoint identifies the event hub to connect to.
type Endpoint struct {
	// Address is the network address of the service. Its format is
	// transport-specific.
	Address string

	// Hub is the name of the event hub (the stream) within the service.
	Hub string
}

// Credentials is the shared-key credential used to authenticate a session.
type Credentials struct {
	KeyName string
	Key     string
}

// A Dialer establishes sessions with an event hub.
type Dialer interface {
	// Dial authenticates with the hub at ep and returns a new session.
	Dial(ctx context.Context, ep Endpoint, creds Credentials) (Session, error)
}

// A Session is an authenticated connection to a single event hub.
//
// A session is shared by all of the links opened from it. It is safe for
// concurrent use.
type Session interface {
	// PartitionIDs returns the IDs of the hub's partitions, in order.
	PartitionIDs(ctx context.Context) ([]string, error)

	// OpenLink opens a link that receives events from a single partition.
	OpenLink(ctx context.Context, req LinkRequest) (Link, error)

	// Publish appends events to the hub.
	//
	// All of the events are appended to the same partition, as determined by
	// d.
	Publish(ctx context.Context, d Destination, events ...eventstream.EventData) error

	// Close closes the session and any links that were opened from it.
	Close() error
}

// LinkRequest describes a link to be opened.
type LinkRequest struct {
	// Name is a unique name for the link, used for diagnostics.
	Name string

	// ConsumerGroup is the name of the consumer group that the link belongs to.
	ConsumerGroup string

	// PartitionID is the ID of the partition to read.
	PartitionID string

	// Start is the position of the first event to receive.
	Start eventstream.Position

	// MaxBatchSize is the maximum number of events returned by each call to
	// Link.Receive(). A non-positive value means there is no limit.
	MaxBatchSize int
}

// A Link receives events from a single partition, in order.
//
// A link is not safe for concurrent use, with the exception that Close() may be
// called at any time to abort a blocked call to Receive().
type Link interface {
	// Receive returns the next non-empty batch of events.
	//
	// It blocks until at least one event is available, ctx is canceled or the
	// link is closed.
	Receive(ctx context.Context) ([]eventstream.Event, error)

	// Start returns the sequence number of the first event that the link
	// delivers, as resolved from the requested start position when the link
	// was opened.
	//
	// Positions such as Latest() and EnqueuedAfter() depend on when they are
	// resolved. A client that re-opens the partition must use this sequence
	// number to avoid skipping events.
	//
	// ok is false if the transport does not report the resolved position.
	Start() (seq int64, ok bool)

	// Close closes the link.
	Close() error
}

// Destination determines which partition published events are appended to.
//
// If PartitionID is set the events are appended to that partition. Otherwise,
// if PartitionKey is set, the partition is chosen by hashing the key.
// Otherwise the transport chooses a partition.
type Destination struct {
	PartitionID  string
	PartitionKey string
}
