// Package counter provides an event handler that counts the events received
// from a single partition.
package counter

import (
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub/eventstream"
)

// Handler is an eventstream.Handler that counts the events it receives from a
// single partition.
//
// Errors are ignored.
type Handler struct {
	PartitionID string

	// Logger is the target for a log message about each event. If it is nil,
	// logging.DefaultLogger is used.
	Logger logging.Logger

	m         sync.Mutex
	count     int
	sequences []int64
	changed   chan struct{}
}

// HandleEvents counts the events in batch.
func (h *Handler) HandleEvents(_ context.Context, batch []eventstream.Event) error {
	h.m.Lock()
	defer h.m.Unlock()

	for _, ev := range batch {
		h.count++
		h.sequences = append(h.sequences, ev.Sequence)

		logging.Log(
			h.Logger,
			"Partition(%s): Counter: %d, Offset: %s, SeqNo: %d, EnqueueTime: %s, PKey: %s",
			h.PartitionID,
			h.count,
			ev.Offset,
			ev.Sequence,
			ev.EnqueuedAt.Format(time.RFC3339Nano),
			ev.PartitionKey,
		)
	}

	if h.changed != nil {
		close(h.changed)
		h.changed = nil
	}

	return nil
}

// HandleError does nothing.
func (h *Handler) HandleError(context.Context, error) {}

// Count returns the number of events received.
func (h *Handler) Count() int {
	h.m.Lock()
	defer h.m.Unlock()

	return h.count
}

// Sequences returns the sequence numbers of the events received, in the order
// they were received.
func (h *Handler) Sequences() []int64 {
	h.m.Lock()
	defer h.m.Unlock()

	return append([]int64(nil), h.sequences...)
}

// WaitFor blocks until at least n events have been received or ctx is
// canceled.
func (h *Handler) WaitFor(ctx context.Context, n int) error {
	for {
		h.m.Lock()

		if h.count >= n {
			h.m.Unlock()
			return nil
		}

		if h.changed == nil {
			h.changed = make(chan struct{})
		}
		ch := h.changed

		h.m.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
