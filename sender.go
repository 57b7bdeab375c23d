package eventhub

import (
	"context"
	"errors"
	"sync"

	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/transport"
	"github.com/google/uuid"
)

// Sender publishes events to an event hub.
//
// It is safe for concurrent use.
type Sender struct {
	client *Client
	name   string

	m      sync.RWMutex
	closed bool
}

func newSender(c *Client) *Sender {
	return &Sender{
		client: c,
		name:   uuid.NewString(),
	}
}

// Name returns the sender's unique name.
func (s *Sender) Name() string {
	return s.name
}

// Send publishes events to a partition chosen by the transport.
func (s *Sender) Send(ctx context.Context, events ...eventstream.EventData) error {
	return s.send(ctx, transport.Destination{}, events)
}

// SendToPartition publishes events to a specific partition.
//
// It returns an *InvalidPartitionError if partitionID is not one of the hub's
// partitions.
func (s *Sender) SendToPartition(
	ctx context.Context,
	partitionID string,
	events ...eventstream.EventData,
) error {
	if err := s.client.validatePartition(partitionID); err != nil {
		return err
	}

	return s.send(ctx, transport.Destination{PartitionID: partitionID}, events)
}

// SendWithKey publishes events to the partition chosen by hashing key.
//
// Events published with the same key are appended to the same partition.
func (s *Sender) SendWithKey(
	ctx context.Context,
	key string,
	events ...eventstream.EventData,
) error {
	if key == "" {
		return errors.New("partition key must not be empty")
	}

	return s.send(ctx, transport.Destination{PartitionKey: key}, events)
}

// Close closes the sender. It is idempotent.
func (s *Sender) Close() error {
	if err := s.close(); err != nil {
		return err
	}

	s.client.forgetSender(s)

	return nil
}

func (s *Sender) send(
	ctx context.Context,
	d transport.Destination,
	events []eventstream.EventData,
) error {
	if len(events) == 0 {
		return errors.New("at least one event must be sent")
	}

	s.m.RLock()
	defer s.m.RUnlock()

	if s.closed {
		return ErrSenderClosed
	}

	if s.client.isClosed() {
		return ErrClientClosed
	}

	return s.client.session.Publish(ctx, d, events...)
}

// close marks the sender as closed, waiting for any in-flight sends to
// complete.
func (s *Sender) close() error {
	s.m.Lock()
	defer s.m.Unlock()

	s.closed = true

	return nil
}
