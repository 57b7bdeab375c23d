package eventstream

import "time"

// Offset is an opaque token identifying the position of an event within its
// partition.
//
// Offsets are assigned by the transport. They are ordered within a partition
// but the ordering is not necessarily lexical, and should not be relied upon by
// clients. Use the sequence number for comparisons.
type Offset string

// Event is an event consumed from a partition.
//
// Events are immutable. The slices and maps it contains must not be modified
// after the event has been created.
type Event struct {
	// Payload is the application-defined event body.
	Payload []byte

	// Offset is the transport-assigned position of the event.
	Offset Offset

	// Sequence is the sequence number of the event within its partition.
	// The first event in a partition has a sequence number of 0 and each
	// subsequent event has a strictly greater sequence number.
	Sequence int64

	// EnqueuedAt is the time at which the transport accepted the event.
	EnqueuedAt time.Time

	// PartitionKey is the key used to route the event to its partition, if any.
	PartitionKey string

	// Properties contains optional application-defined meta-data.
	Properties map[string]string
}

// EventData is an event to be published to a stream.
type EventData struct {
	// Payload is the application-defined event body.
	Payload []byte

	// Properties contains optional application-defined meta-data.
	Properties map[string]string
}
