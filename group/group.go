package group

import (
	"context"
	"fmt"

	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/receiver"
	"go.uber.org/multierr"
)

// Receiver is the interface of a partition receiver that is managed by a
// group. It is implemented by *receiver.Receiver.
type Receiver interface {
	PartitionID() string
	SetHandler(eventstream.Handler) error
	Close() error
	Done() <-chan struct{}
	Err() error
}

var _ Receiver = (*receiver.Receiver)(nil)

// ReceiverFactory creates an open receiver for a single partition.
type ReceiverFactory func(
	ctx context.Context,
	consumerGroup, partitionID string,
	start eventstream.Position,
	options ...receiver.Option,
) (Receiver, error)

// Client is the interface used to create receivers. It is implemented by
// *eventhub.Client.
type Client interface {
	NewReceiver(
		ctx context.Context,
		consumerGroup, partitionID string,
		start eventstream.Position,
		options ...receiver.Option,
	) (*receiver.Receiver, error)
}

// ClientFactory returns a ReceiverFactory that creates receivers using c.
func ClientFactory(c Client) ReceiverFactory {
	return func(
		ctx context.Context,
		consumerGroup, partitionID string,
		start eventstream.Position,
		options ...receiver.Option,
	) (Receiver, error) {
		r, err := c.NewReceiver(ctx, consumerGroup, partitionID, start, options...)
		if err != nil {
			return nil, err
		}

		return r, nil
	}
}

// HandlerFactory returns a new handler for the receiver of a specific
// partition.
//
// It is called once per partition. Handlers must not be shared between
// partitions.
type HandlerFactory func(partitionID string) eventstream.Handler

// Group is a fixed set of receivers, one for each of a consumer group's
// partitions.
type Group struct {
	consumerGroup string
	receivers     []Receiver
	index         map[string]Receiver
}

// Open creates a receiver for each of the given partitions, in order, and
// attaches a new handler to each.
//
// Open is atomic. If any receiver can not be created, the receivers that were
// already created are closed and a *PartialGroupFailure is returned.
func Open(
	ctx context.Context,
	factory ReceiverFactory,
	consumerGroup string,
	partitionIDs []string,
	start eventstream.Position,
	newHandler HandlerFactory,
	options ...receiver.Option,
) (*Group, error) {
	if factory == nil {
		panic("receiver factory must not be nil")
	}

	if newHandler == nil {
		panic("handler factory must not be nil")
	}

	if len(partitionIDs) == 0 {
		return nil, fmt.Errorf("consumer group %s: at least one partition is required", consumerGroup)
	}

	g := &Group{
		consumerGroup: consumerGroup,
		index:         make(map[string]Receiver, len(partitionIDs)),
	}

	for _, id := range partitionIDs {
		if _, ok := g.index[id]; ok {
			return nil, fmt.Errorf("consumer group %s: partition %s is specified more than once", consumerGroup, id)
		}

		g.index[id] = nil
	}

	for i, id := range partitionIDs {
		if err := g.open(ctx, factory, id, start, newHandler, options); err != nil {
			return nil, &PartialGroupFailure{
				PartitionID: id,
				Index:       i,
				Cause:       err,
				CloseErr:    g.rollback(),
			}
		}
	}

	return g, nil
}

// open creates the receiver for a single partition and adds it to the group.
func (g *Group) open(
	ctx context.Context,
	factory ReceiverFactory,
	partitionID string,
	start eventstream.Position,
	newHandler HandlerFactory,
	options []receiver.Option,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r, err := factory(ctx, g.consumerGroup, partitionID, start, options...)
	if err != nil {
		return err
	}

	g.receivers = append(g.receivers, r)
	g.index[partitionID] = r

	return r.SetHandler(newHandler(partitionID))
}

// rollback closes the receivers created so far, in reverse order.
func (g *Group) rollback() error {
	var err error

	for i := len(g.receivers) - 1; i >= 0; i-- {
		err = multierr.Append(err, g.receivers[i].Close())
	}

	return err
}

// ConsumerGroup returns the name of the consumer group.
func (g *Group) ConsumerGroup() string {
	return g.consumerGroup
}

// Len returns the number of receivers in the group.
func (g *Group) Len() int {
	return len(g.receivers)
}

// Receivers returns the group's receivers, in partition order.
func (g *Group) Receivers() []Receiver {
	return append([]Receiver(nil), g.receivers...)
}

// Receiver returns the receiver for a specific partition.
func (g *Group) Receiver(partitionID string) (Receiver, bool) {
	r, ok := g.index[partitionID]
	return r, ok
}

// Wait blocks until every receiver in the group is closed, any receiver fails
// or ctx is canceled.
//
// It returns the error from the first receiver that fails.
func (g *Group) Wait(ctx context.Context) error {
	failed := make(chan error, len(g.receivers))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, r := range g.receivers {
		r := r

		go func() {
			select {
			case <-ctx.Done():
			case <-r.Done():
				failed <- r.Err()
			}
		}()
	}

	for range g.receivers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-failed:
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// CloseAll closes every receiver in the group.
//
// Every receiver is closed, even if some of them fail. If any receiver fails to
// close an *AggregateCloseError is returned.
func (g *Group) CloseAll() error {
	var failures []*CloseFailure

	for _, r := range g.receivers {
		if err := r.Close(); err != nil {
			failures = append(failures, &CloseFailure{
				PartitionID: r.PartitionID(),
				Cause:       err,
			})
		}
	}

	if len(failures) == 0 {
		return nil
	}

	return &AggregateCloseError{Failures: failures}
}
