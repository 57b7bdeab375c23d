package group

import (
	"fmt"
	"strings"
)

// PartialGroupFailure is returned by Open() when one of the group's receivers
// can not be created. Any receivers that were created before the failure have
// already been closed.
type PartialGroupFailure struct {
	// PartitionID is the ID of the partition whose receiver could not be
	// created.
	PartitionID string

	// Index is the position of PartitionID in the list passed to Open().
	Index int

	// Cause is the error that prevented the receiver from being created.
	Cause error

	// CloseErr is the combined error from closing the receivers that were
	// already created, if any of them failed to close.
	CloseErr error
}

func (e *PartialGroupFailure) Error() string {
	msg := fmt.Sprintf(
		"unable to open receiver %d of the group (partition %s): %s",
		e.Index+1,
		e.PartitionID,
		e.Cause,
	)

	if e.CloseErr != nil {
		msg += fmt.Sprintf(" (cleanup also failed: %s)", e.CloseErr)
	}

	return msg
}

func (e *PartialGroupFailure) Unwrap() error {
	return e.Cause
}

// CloseFailure describes a single receiver that failed to close.
type CloseFailure struct {
	PartitionID string
	Cause       error
}

func (e *CloseFailure) Error() string {
	return fmt.Sprintf("partition %s: %s", e.PartitionID, e.Cause)
}

func (e *CloseFailure) Unwrap() error {
	return e.Cause
}

// AggregateCloseError is returned by Group.CloseAll() when one or more
// receivers fail to close.
type AggregateCloseError struct {
	// Failures contains one entry for each receiver that failed to close, in
	// the order of the group's partitions.
	Failures []*CloseFailure
}

func (e *AggregateCloseError) Error() string {
	var parts []string
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}

	return fmt.Sprintf(
		"%d receiver(s) failed to close: %s",
		len(e.Failures),
		strings.Join(parts, "; "),
	)
}

// Unwrap returns the individual failures.
func (e *AggregateCloseError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}

	return errs
}

// PartitionIDs returns the IDs of the partitions whose receivers failed to
// close.
func (e *AggregateCloseError) PartitionIDs() []string {
	var ids []string
	for _, f := range e.Failures {
		ids = append(ids, f.PartitionID)
	}

	return ids
}
