package eventstream

import (
	"fmt"
	"time"
)

// PositionKind enumerates the ways in which a start position may be expressed.
type PositionKind int

const (
	// PositionEarliest starts at the first event that is still retained by
	// the partition.
	PositionEarliest PositionKind = iota

	// PositionLatest starts after the last event in the partition at the time
	// the link is opened, that is, only "new" events are received.
	PositionLatest

	// PositionOffset starts at (or after) a specific offset.
	PositionOffset

	// PositionSequence starts at (or after) a specific sequence number.
	PositionSequence

	// PositionEnqueuedTime starts at the first event enqueued after a specific
	// time.
	PositionEnqueuedTime
)

// Position describes where in a partition a receiver begins reading.
//
// The zero value is equivalent to Earliest().
type Position struct {
	Kind         PositionKind
	Offset       Offset
	Sequence     int64
	EnqueuedTime time.Time

	// Inclusive indicates whether the event at Offset or Sequence is itself
	// included. It is ignored by the other kinds.
	Inclusive bool
}

// Earliest returns a position at the beginning of a partition.
func Earliest() Position {
	return Position{Kind: PositionEarliest}
}

// Latest returns a position at the end of a partition.
func Latest() Position {
	return Position{Kind: PositionLatest}
}

// AtOffset returns a position at the given offset.
func AtOffset(o Offset, inclusive bool) Position {
	return Position{
		Kind:      PositionOffset,
		Offset:    o,
		Inclusive: inclusive,
	}
}

// AtSequence returns a position at the given sequence number.
func AtSequence(n int64, inclusive bool) Position {
	if n < 0 {
		panic("sequence number must not be negative")
	}

	return Position{
		Kind:      PositionSequence,
		Sequence:  n,
		Inclusive: inclusive,
	}
}

// EnqueuedAfter returns a position at the first event that was enqueued after
// t.
//
// EnqueuedAfter(time.Now()) is the equivalent of starting "now".
func EnqueuedAfter(t time.Time) Position {
	return Position{
		Kind:         PositionEnqueuedTime,
		EnqueuedTime: t,
	}
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	switch p.Kind {
	case PositionEarliest:
		return "earliest"
	case PositionLatest:
		return "latest"
	case PositionOffset:
		return fmt.Sprintf("offset %s%s", p.Offset, inclusivity(p.Inclusive))
	case PositionSequence:
		return fmt.Sprintf("sequence %d%s", p.Sequence, inclusivity(p.Inclusive))
	case PositionEnqueuedTime:
		return "enqueued after " + p.EnqueuedTime.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("<unknown position kind %d>", p.Kind)
	}
}

func inclusivity(inclusive bool) string {
	if inclusive {
		return " (inclusive)"
	}

	return " (exclusive)"
}
