package memorytransport

import (
	"context"
	"sync"

	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/transport"
)

// link is an implementation of transport.Link that reads from an in-memory
// partition.
type link struct {
	session   *session
	partition *partition
	start     int
	index     int
	max       int

	once   sync.Once
	closed chan struct{}
}

// Receive returns the next batch of events.
//
// If the end of the partition is reached it blocks until an event is appended,
// ctx is canceled or the link is closed.
func (l *link) Receive(ctx context.Context) ([]eventstream.Event, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-l.closed:
			return nil, transport.ErrLinkClosed
		default:
		}

		batch, ready := l.read()

		if ready == nil {
			l.index += len(batch)
			return batch, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-l.closed:
			return nil, transport.ErrLinkClosed
		case <-ready:
			continue
		}
	}
}

// Start returns the sequence number of the first event the link delivers.
func (l *link) Start() (int64, bool) {
	return int64(l.start), true
}

// Close closes the link.
//
// It returns transport.ErrLinkClosed if the link is already closed.
// Any current or future calls to Receive() return transport.ErrLinkClosed.
func (l *link) Close() error {
	if !l.close() {
		return transport.ErrLinkClosed
	}

	l.session.forget(l)

	return nil
}

// close closes the link without removing it from the session. It returns false
// if the link was already closed.
func (l *link) close() bool {
	ok := false

	l.once.Do(func() {
		ok = true
		close(l.closed)
		l.release()
	})

	return ok
}

// release decrements the hub's open link count.
func (l *link) release() {
	h := l.session.hub

	h.m.Lock()
	h.links--
	h.m.Unlock()
}

// read returns the next batch, or a channel that is closed when one may be
// available.
func (l *link) read() ([]eventstream.Event, <-chan struct{}) {
	h := l.session.hub

	h.m.Lock()
	defer h.m.Unlock()

	return l.partition.read(l.index, l.max)
}
