package fixtures

import (
	"sync"

	"github.com/dogmatiq/eventhub/eventstream"
)

// ReceiverStub is a test implementation of the group.Receiver interface.
type ReceiverStub struct {
	ID string

	SetHandlerFunc func(eventstream.Handler) error
	CloseFunc      func() error

	m       sync.Mutex
	handler eventstream.Handler
	closed  bool
	done    chan struct{}
	err     error
}

// PartitionID returns r.ID.
func (r *ReceiverStub) PartitionID() string {
	return r.ID
}

// SetHandler records h as the receiver's handler.
//
// If r.SetHandlerFunc is non-nil, it returns r.SetHandlerFunc(h) instead.
func (r *ReceiverStub) SetHandler(h eventstream.Handler) error {
	if r.SetHandlerFunc != nil {
		return r.SetHandlerFunc(h)
	}

	r.m.Lock()
	defer r.m.Unlock()

	r.handler = h

	return nil
}

// Handler returns the handler set by SetHandler().
func (r *ReceiverStub) Handler() eventstream.Handler {
	r.m.Lock()
	defer r.m.Unlock()

	return r.handler
}

// Close marks the receiver as closed.
//
// If r.CloseFunc is non-nil, its result is returned, although the receiver is
// still marked as closed.
func (r *ReceiverStub) Close() error {
	r.stop(nil)

	if r.CloseFunc != nil {
		return r.CloseFunc()
	}

	return nil
}

// Fail closes the receiver as though it failed with err.
func (r *ReceiverStub) Fail(err error) {
	r.stop(err)
}

// IsClosed returns true if Close() or Fail() has been called.
func (r *ReceiverStub) IsClosed() bool {
	r.m.Lock()
	defer r.m.Unlock()

	return r.closed
}

// Done returns a channel that is closed when the receiver is closed.
func (r *ReceiverStub) Done() <-chan struct{} {
	r.m.Lock()
	defer r.m.Unlock()

	return r.doneChan()
}

// Err returns the error passed to Fail().
func (r *ReceiverStub) Err() error {
	r.m.Lock()
	defer r.m.Unlock()

	return r.err
}

func (r *ReceiverStub) stop(err error) {
	r.m.Lock()
	defer r.m.Unlock()

	if r.closed {
		return
	}

	r.closed = true
	r.err = err
	close(r.doneChan())
}

func (r *ReceiverStub) doneChan() chan struct{} {
	if r.done == nil {
		r.done = make(chan struct{})
	}

	return r.done
}
