package eventhub

import (
	"context"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/receiver"
	"github.com/dogmatiq/eventhub/transport"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
)

// Client is a connection to a single event hub.
//
// It owns a transport session that is shared by all of the receivers and
// senders it creates.
type Client struct {
	endpoint     transport.Endpoint
	opts         *clientOptions
	session      transport.Session
	partitionIDs []string
	partitions   map[string]struct{}
	semaphore    *semaphore.Weighted

	m         sync.Mutex
	closed    bool
	receivers map[*receiver.Receiver]struct{}
	senders   map[*Sender]struct{}
}

// Dial establishes a session with the event hub at ep.
//
// It returns a *ConnectionError if the session can not be established or the
// hub's partitions can not be determined.
func Dial(
	ctx context.Context,
	ep transport.Endpoint,
	creds transport.Credentials,
	options ...ClientOption,
) (*Client, error) {
	opts := resolveClientOptions(options...)

	session, err := opts.Dialer.Dial(ctx, ep, creds)
	if err != nil {
		return nil, &ConnectionError{ep, err}
	}

	ids, err := session.PartitionIDs(ctx)
	if err != nil {
		session.Close()
		return nil, &ConnectionError{ep, err}
	}

	c := &Client{
		endpoint:     ep,
		opts:         opts,
		session:      session,
		partitionIDs: ids,
		partitions:   make(map[string]struct{}, len(ids)),
		receivers:    map[*receiver.Receiver]struct{}{},
		senders:      map[*Sender]struct{}{},
	}

	for _, id := range ids {
		c.partitions[id] = struct{}{}
	}

	if opts.ConcurrencyLimit > 0 {
		c.semaphore = semaphore.NewWeighted(int64(opts.ConcurrencyLimit))
	}

	logging.Log(
		opts.Logger,
		"connected to hub %q at %s, %d partition(s)",
		ep.Hub,
		ep.Address,
		len(ids),
	)

	return c, nil
}

// Endpoint returns the endpoint of the hub that the client is connected to.
func (c *Client) Endpoint() transport.Endpoint {
	return c.endpoint
}

// PartitionIDs returns the IDs of the hub's partitions.
func (c *Client) PartitionIDs() []string {
	return append([]string(nil), c.partitionIDs...)
}

// NewSender returns a sender that publishes events to the hub.
func (c *Client) NewSender() (*Sender, error) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}

	s := newSender(c)
	c.senders[s] = struct{}{}

	return s, nil
}

// NewReceiver returns an open receiver that reads a single partition on behalf
// of a consumer group, beginning at start.
//
// The receiver does not begin delivering events until its handler is set. The
// receiver options configured on the client apply before those given here.
// The client installs its own close hook, so receiver.WithCloseHook() has no
// effect.
//
// It returns an *InvalidPartitionError if partitionID is not one of the hub's
// partitions.
func (c *Client) NewReceiver(
	ctx context.Context,
	consumerGroup, partitionID string,
	start eventstream.Position,
	options ...receiver.Option,
) (*receiver.Receiver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.validatePartition(partitionID); err != nil {
		return nil, err
	}

	c.m.Lock()
	defer c.m.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}

	r := receiver.New(
		c.session,
		consumerGroup,
		partitionID,
		start,
		c.receiverOptions(options)...,
	)

	if err := r.Open(); err != nil {
		return nil, err
	}

	c.receivers[r] = struct{}{}

	logging.Debug(
		c.opts.Logger,
		"created receiver on partition %s for consumer group %s at %s",
		partitionID,
		consumerGroup,
		start,
	)

	return r, nil
}

// Close closes the client's receivers, then its senders, then the session.
//
// Close is idempotent. Errors from closing the individual resources are
// combined.
func (c *Client) Close() error {
	c.m.Lock()

	if c.closed {
		c.m.Unlock()
		return nil
	}

	c.closed = true
	receivers := c.receivers
	senders := c.senders
	c.receivers = nil
	c.senders = nil

	c.m.Unlock()

	var err error

	for r := range receivers {
		err = multierr.Append(err, r.Close())
	}

	for s := range senders {
		err = multierr.Append(err, s.close())
	}

	err = multierr.Append(err, c.session.Close())

	logging.Debug(c.opts.Logger, "disconnected from hub %q", c.endpoint.Hub)

	return err
}

// receiverOptions returns the options used to create a receiver.
func (c *Client) receiverOptions(options []receiver.Option) []receiver.Option {
	opts := []receiver.Option{
		receiver.WithLogger(c.opts.Logger),
		receiver.WithBackoff(c.opts.Backoff),
		receiver.WithMaxConsecutiveFailures(c.opts.MaxConsecutiveFailures),
		receiver.WithMaxBatchSize(c.opts.MaxBatchSize),
	}

	if c.opts.Checkpoints != nil {
		opts = append(opts, receiver.WithCheckpointStore(c.opts.Checkpoints, c.endpoint.Hub))
	}

	if c.semaphore != nil {
		opts = append(opts, receiver.WithSemaphore(c.semaphore))
	}

	opts = append(opts, options...)

	return append(opts, receiver.WithCloseHook(c.forgetReceiver))
}

// validatePartition returns an error if id is not one of the hub's
// partitions.
func (c *Client) validatePartition(id string) error {
	if _, ok := c.partitions[id]; ok {
		return nil
	}

	return &InvalidPartitionError{
		PartitionID: id,
		Known:       c.PartitionIDs(),
	}
}

func (c *Client) isClosed() bool {
	c.m.Lock()
	defer c.m.Unlock()

	return c.closed
}

func (c *Client) forgetReceiver(r *receiver.Receiver) {
	c.m.Lock()
	defer c.m.Unlock()

	delete(c.receivers, r)
}

func (c *Client) forgetSender(s *Sender) {
	c.m.Lock()
	defer c.m.Unlock()

	delete(c.senders, s)
}
