package receiver

import (
	"context"
	"fmt"
	"sync"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/internal/x/loggingx"
	"github.com/dogmatiq/eventhub/transport"
)

// State is the lifecycle state of a receiver.
type State int

const (
	// StateCreated is the state of a receiver that has not been opened.
	StateCreated State = iota

	// StateOpen is the state of a receiver that accepts a handler.
	StateOpen

	// StateClosed is the terminal state of a receiver.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("<unknown state %d>", int(s))
	}
}

// Receiver delivers the events from a single partition to a handler, on behalf
// of a consumer group.
//
// Delivery begins when the first handler is set. Batches are delivered in
// partition order, one at a time, and the receiver's position advances only
// after the handler returns successfully.
type Receiver struct {
	session       transport.Session
	consumerGroup string
	partitionID   string
	opts          options
	logger        logging.Logger

	m        sync.Mutex
	state    State
	handler  eventstream.Handler
	cancel   context.CancelFunc
	stopped  chan struct{}
	err      error
	closeErr error

	done   chan struct{}
	finish sync.Once

	// The fields below are owned by the delivery goroutine.
	cursor   *eventstream.Cursor
	restored bool
	failures int
}

// New returns a receiver in the "created" state that reads partitionID via
// session, beginning at start.
func New(
	session transport.Session,
	consumerGroup, partitionID string,
	start eventstream.Position,
	options ...Option,
) *Receiver {
	opts := resolveOptions(options)

	return &Receiver{
		session:       session,
		consumerGroup: consumerGroup,
		partitionID:   partitionID,
		opts:          opts,
		logger: loggingx.WithPrefix(
			opts.Logger,
			"[%s/%s] ",
			consumerGroup,
			partitionID,
		),
		done:   make(chan struct{}),
		cursor: eventstream.NewCursor(partitionID, start),
	}
}

// ConsumerGroup returns the name of the consumer group the receiver reads on
// behalf of.
func (r *Receiver) ConsumerGroup() string {
	return r.consumerGroup
}

// PartitionID returns the ID of the partition that the receiver reads.
func (r *Receiver) PartitionID() string {
	return r.partitionID
}

// State returns the receiver's current lifecycle state.
func (r *Receiver) State() State {
	r.m.Lock()
	defer r.m.Unlock()

	return r.state
}

// Open transitions the receiver from "created" to "open".
//
// It returns ErrClosed if the receiver is already closed. Opening an open
// receiver has no effect.
func (r *Receiver) Open() error {
	r.m.Lock()
	defer r.m.Unlock()

	switch r.state {
	case StateClosed:
		return ErrClosed
	case StateCreated:
		r.state = StateOpen
	}

	return nil
}

// SetHandler sets the handler that receives events.
//
// The first call starts delivery. Subsequent calls replace the handler, taking
// effect from the next batch.
//
// It returns ErrNotOpen if the receiver has not been opened, or ErrClosed if it
// has been closed.
func (r *Receiver) SetHandler(h eventstream.Handler) error {
	if h == nil {
		panic("handler must not be nil")
	}

	r.m.Lock()
	defer r.m.Unlock()

	switch r.state {
	case StateCreated:
		return ErrNotOpen
	case StateClosed:
		return ErrClosed
	}

	r.handler = h

	if r.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		r.stopped = make(chan struct{})

		go r.run(ctx, r.stopped)
	}

	return nil
}

// Close stops delivery and releases the receiver's transport resources.
//
// It blocks until any in-flight call to the handler has returned. It must not
// be called from within the handler's methods.
//
// Close is idempotent. It returns an error only if the transport link could
// not be closed cleanly.
func (r *Receiver) Close() error {
	r.m.Lock()

	if r.state == StateClosed {
		r.m.Unlock()
		<-r.done
		return nil
	}

	r.state = StateClosed
	cancel, stopped := r.cancel, r.stopped

	r.m.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}

	r.terminate()

	return r.closeErr
}

// Done returns a channel that is closed when the receiver is closed.
func (r *Receiver) Done() <-chan struct{} {
	return r.done
}

// Err returns the error that caused the receiver to close itself.
//
// It returns a *FatalTransportError if the receiver gave up because of
// transport failures, otherwise it returns nil.
func (r *Receiver) Err() error {
	r.m.Lock()
	defer r.m.Unlock()

	return r.err
}

// run is the receiver's delivery goroutine.
func (r *Receiver) run(ctx context.Context, stopped chan struct{}) {
	err := r.deliver(ctx)
	close(stopped)

	if err == nil {
		return
	}

	r.m.Lock()

	if r.state == StateClosed {
		// Close() was called while the failure was being reported.
		r.m.Unlock()
		return
	}

	r.state = StateClosed
	r.err = err
	r.cancel()

	r.m.Unlock()

	r.terminate()
}

// terminate closes r.done and invokes the close hook. It is only called once
// the delivery goroutine, if any, has stopped.
func (r *Receiver) terminate() {
	r.finish.Do(func() {
		if r.opts.CloseHook != nil {
			r.opts.CloseHook(r)
		}

		close(r.done)
	})
}

// currentHandler returns the handler that the next batch is delivered to.
func (r *Receiver) currentHandler() eventstream.Handler {
	r.m.Lock()
	defer r.m.Unlock()

	return r.handler
}
