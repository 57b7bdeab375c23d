package eventstream

import "context"

// Handler handles events received from a single partition.
//
// A receiver never invokes the methods of its handler concurrently. However,
// if the same handler is attached to receivers for several partitions it must
// be safe for concurrent use.
//
// Implementations must not block indefinitely. The receiver does not request
// the next batch until HandleEvents() returns.
type Handler interface {
	// HandleEvents handles a non-empty batch of events, in partition order.
	//
	// If it returns an error the batch is considered unprocessed. It will be
	// redelivered after the receiver reconnects.
	HandleEvents(ctx context.Context, batch []Event) error

	// HandleError is notified of errors that occur while receiving.
	HandleError(ctx context.Context, err error)
}

// HandlerFunc is an adaptor that allows an ordinary function to be used as a
// Handler. Errors passed to HandleError() are ignored.
type HandlerFunc func(ctx context.Context, batch []Event) error

// HandleEvents returns fn(ctx, batch).
func (fn HandlerFunc) HandleEvents(ctx context.Context, batch []Event) error {
	return fn(ctx, batch)
}

// HandleError does nothing.
func (fn HandlerFunc) HandleError(context.Context, error) {}
