package eventhub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dogmatiq/eventhub/transport"
)

var (
	// ErrClientClosed is returned when a closed client, or a sender created by
	// a closed client, is used.
	ErrClientClosed = errors.New("client is closed")

	// ErrSenderClosed is returned when a closed sender is used.
	ErrSenderClosed = errors.New("sender is closed")
)

// ConnectionError is returned by Dial() if a session can not be established
// with the event hub.
type ConnectionError struct {
	Endpoint transport.Endpoint
	Cause    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf(
		"unable to connect to hub %q at %s: %s",
		e.Endpoint.Hub,
		e.Endpoint.Address,
		e.Cause,
	)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// InvalidPartitionError is returned when a partition ID is not one of the
// hub's partitions.
type InvalidPartitionError struct {
	PartitionID string

	// Known is the list of the hub's partition IDs.
	Known []string
}

func (e *InvalidPartitionError) Error() string {
	return fmt.Sprintf(
		"partition %q is not one of the hub's partitions (%s)",
		e.PartitionID,
		strings.Join(e.Known, ", "),
	)
}
