package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates that the session's credentials were rejected.
	ErrUnauthorized = errors.New("credentials were rejected")

	// ErrUnknownHub indicates that the requested hub does not exist.
	ErrUnknownHub = errors.New("hub does not exist")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("session is closed")

	// ErrLinkClosed is returned when a closed link is used.
	ErrLinkClosed = errors.New("link is closed")
)

// UnknownPartitionError indicates that a partition ID is not recognized by the
// hub.
type UnknownPartitionError struct {
	PartitionID string
}

func (e *UnknownPartitionError) Error() string {
	return fmt.Sprintf("partition %q does not exist", e.PartitionID)
}

// IsFatal returns true if err indicates a condition that will not resolve by
// retrying the operation with the same session.
func IsFatal(err error) bool {
	var unknown *UnknownPartitionError

	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrUnknownHub) ||
		errors.Is(err, ErrSessionClosed) ||
		errors.As(err, &unknown)
}
