package fixtures

import (
	"context"

	"github.com/dogmatiq/eventhub/eventstream"
)

// HandlerStub is a test implementation of the eventstream.Handler interface.
type HandlerStub struct {
	HandleEventsFunc func(context.Context, []eventstream.Event) error
	HandleErrorFunc  func(context.Context, error)
}

// HandleEvents handles a batch of events.
//
// If h.HandleEventsFunc is non-nil, it returns h.HandleEventsFunc(ctx, batch),
// otherwise it returns nil.
func (h *HandlerStub) HandleEvents(ctx context.Context, batch []eventstream.Event) error {
	if h.HandleEventsFunc != nil {
		return h.HandleEventsFunc(ctx, batch)
	}

	return nil
}

// HandleError is notified of receive errors.
//
// If h.HandleErrorFunc is non-nil, it calls h.HandleErrorFunc(ctx, err).
func (h *HandlerStub) HandleError(ctx context.Context, err error) {
	if h.HandleErrorFunc != nil {
		h.HandleErrorFunc(ctx, err)
	}
}
