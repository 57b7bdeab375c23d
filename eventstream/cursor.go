package eventstream

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned by Cursor.Check() if the batch contains no events.
var ErrEmptyBatch = errors.New("batch contains no events")

// OrderingError is returned by Cursor.Check() if a batch would violate the
// per-partition ordering guarantee.
type OrderingError struct {
	PartitionID string

	// Previous is the sequence number that the event must come after.
	Previous int64

	// Sequence is the offending sequence number.
	Sequence int64
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf(
		"partition %s: event with sequence number %d does not follow sequence number %d",
		e.PartitionID,
		e.Sequence,
		e.Previous,
	)
}

// Cursor tracks the read position within a single partition.
//
// A cursor is owned by exactly one receiver. It is not safe for concurrent use.
type Cursor struct {
	partitionID string
	start       Position

	consumed bool
	offset   Offset
	sequence int64
}

// NewCursor returns a cursor that has not yet consumed any events.
func NewCursor(partitionID string, start Position) *Cursor {
	return &Cursor{
		partitionID: partitionID,
		start:       start,
	}
}

// PartitionID returns the ID of the partition that the cursor reads.
func (c *Cursor) PartitionID() string {
	return c.partitionID
}

// Position returns the position at which reading should resume.
//
// Before any events are consumed it is the start position the cursor was
// created with, afterwards it is the position immediately after the last
// consumed event.
func (c *Cursor) Position() Position {
	if !c.consumed {
		return c.start
	}

	return AtSequence(c.sequence, false)
}

// Last returns the offset and sequence number of the last consumed event.
//
// ok is false if no events have been consumed.
func (c *Cursor) Last() (o Offset, seq int64, ok bool) {
	return c.offset, c.sequence, c.consumed
}

// Restore moves the cursor to a previously persisted position, as though the
// event at o/seq has already been consumed.
func (c *Cursor) Restore(o Offset, seq int64) {
	c.consumed = true
	c.offset = o
	c.sequence = seq
}

// Pin replaces the start position with the position of the event at sequence
// number seq, as resolved by the transport.
//
// It has no effect once events have been consumed. Pinning ensures that
// positions relative to the time a partition is first read, such as Latest(),
// are not resolved again when the partition is re-opened.
func (c *Cursor) Pin(seq int64) {
	if c.consumed {
		return
	}

	c.start = AtSequence(seq, true)
}

// Check returns an error if batch may not be delivered from the cursor's
// current position.
//
// The batch must be non-empty, its sequence numbers must be strictly
// increasing, and its first event must come after the last consumed event.
func (c *Cursor) Check(batch []Event) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}

	prev, hasPrev := c.sequence, c.consumed

	for _, ev := range batch {
		if hasPrev && ev.Sequence <= prev {
			return &OrderingError{
				PartitionID: c.partitionID,
				Previous:    prev,
				Sequence:    ev.Sequence,
			}
		}

		prev, hasPrev = ev.Sequence, true
	}

	return nil
}

// Advance moves the cursor past the last event in batch.
//
// The batch must already have been validated with Check().
func (c *Cursor) Advance(batch []Event) {
	if len(batch) == 0 {
		panic("can not advance past an empty batch")
	}

	last := batch[len(batch)-1]
	c.Restore(last.Offset, last.Sequence)
}
