package receiver

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned by Receiver.SetHandler() if the receiver has not
	// been opened.
	ErrNotOpen = errors.New("receiver is not open")

	// ErrClosed is returned when a closed receiver is used.
	ErrClosed = errors.New("receiver is closed")
)

// TransportError is passed to the handler when the receiver encounters a
// transient transport failure. The receiver reconnects after a delay.
type TransportError struct {
	PartitionID string

	// Attempt is the number of consecutive failures, including this one.
	Attempt int

	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf(
		"partition %s: transport error (attempt %d): %s",
		e.PartitionID,
		e.Attempt,
		e.Cause,
	)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// FatalTransportError is passed to the handler, and made available via
// Receiver.Err(), when the receiver closes itself because of transport
// failures.
type FatalTransportError struct {
	PartitionID string

	// Failures is the number of consecutive failures that occurred.
	Failures int

	Cause error
}

func (e *FatalTransportError) Error() string {
	return fmt.Sprintf(
		"partition %s: giving up after %d consecutive failure(s): %s",
		e.PartitionID,
		e.Failures,
		e.Cause,
	)
}

func (e *FatalTransportError) Unwrap() error {
	return e.Cause
}

// HandlerError is passed to the handler when its HandleEvents() method
// returns an error. The batch is redelivered after a delay.
type HandlerError struct {
	PartitionID string
	Cause       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("partition %s: handler failed: %s", e.PartitionID, e.Cause)
}

func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// CheckpointError is passed to the handler when a checkpoint can not be saved.
// Delivery continues regardless.
type CheckpointError struct {
	PartitionID string
	Cause       error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("partition %s: unable to save checkpoint: %s", e.PartitionID, e.Cause)
}

func (e *CheckpointError) Unwrap() error {
	return e.Cause
}
