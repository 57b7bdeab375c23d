package fixtures

import (
	"context"

	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/transport"
)

// DialerStub is a test implementation of the transport.Dialer interface.
type DialerStub struct {
	transport.Dialer

	DialFunc func(context.Context, transport.Endpoint, transport.Credentials) (transport.Session, error)
}

// Dial returns a new session.
//
// If d.DialFunc is non-nil, it returns d.DialFunc(ctx, ep, creds), otherwise it
// dispatches to the embedded dialer.
func (d *DialerStub) Dial(
	ctx context.Context,
	ep transport.Endpoint,
	creds transport.Credentials,
) (transport.Session, error) {
	if d.DialFunc != nil {
		return d.DialFunc(ctx, ep, creds)
	}

	return d.Dialer.Dial(ctx, ep, creds)
}

// SessionStub is a test implementation of the transport.Session interface.
type SessionStub struct {
	transport.Session

	PartitionIDsFunc func(context.Context) ([]string, error)
	OpenLinkFunc     func(context.Context, transport.LinkRequest) (transport.Link, error)
	PublishFunc      func(context.Context, transport.Destination, ...eventstream.EventData) error
	CloseFunc        func() error
}

// PartitionIDs returns the IDs of the hub's partitions.
//
// If s.PartitionIDsFunc is non-nil, it returns s.PartitionIDsFunc(ctx),
// otherwise it dispatches to the embedded session.
func (s *SessionStub) PartitionIDs(ctx context.Context) ([]string, error) {
	if s.PartitionIDsFunc != nil {
		return s.PartitionIDsFunc(ctx)
	}

	return s.Session.PartitionIDs(ctx)
}

// OpenLink opens a link to a single partition.
//
// If s.OpenLinkFunc is non-nil, it returns s.OpenLinkFunc(ctx, req),
// otherwise it dispatches to the embedded session.
func (s *SessionStub) OpenLink(ctx context.Context, req transport.LinkRequest) (transport.Link, error) {
	if s.OpenLinkFunc != nil {
		return s.OpenLinkFunc(ctx, req)
	}

	return s.Session.OpenLink(ctx, req)
}

// Publish appends events to the hub.
//
// If s.PublishFunc is non-nil, it returns s.PublishFunc(ctx, d, events...),
// otherwise it dispatches to the embedded session.
func (s *SessionStub) Publish(
	ctx context.Context,
	d transport.Destination,
	events ...eventstream.EventData,
) error {
	if s.PublishFunc != nil {
		return s.PublishFunc(ctx, d, events...)
	}

	return s.Session.Publish(ctx, d, events...)
}

// Close closes the session.
//
// If s.CloseFunc is non-nil, it returns s.CloseFunc(), otherwise it
// dispatches to the embedded session, if any.
func (s *SessionStub) Close() error {
	if s.CloseFunc != nil {
		return s.CloseFunc()
	}

	if s.Session != nil {
		return s.Session.Close()
	}

	return nil
}

// LinkStub is a test implementation of the transport.Link interface.
type LinkStub struct {
	transport.Link

	ReceiveFunc func(context.Context) ([]eventstream.Event, error)
	StartFunc   func() (int64, bool)
	CloseFunc   func() error
}

// Receive returns the next batch of events.
//
// If l.ReceiveFunc is non-nil, it returns l.ReceiveFunc(ctx), otherwise it
// dispatches to the embedded link.
func (l *LinkStub) Receive(ctx context.Context) ([]eventstream.Event, error) {
	if l.ReceiveFunc != nil {
		return l.ReceiveFunc(ctx)
	}

	return l.Link.Receive(ctx)
}

// Start returns the sequence number of the first event the link delivers.
//
// If l.StartFunc is non-nil, it returns l.StartFunc(), otherwise it dispatches
// to the embedded link, if any. A stub without either does not report its
// start position.
func (l *LinkStub) Start() (int64, bool) {
	if l.StartFunc != nil {
		return l.StartFunc()
	}

	if l.Link != nil {
		return l.Link.Start()
	}

	return 0, false
}

// Close closes the link.
//
// If l.CloseFunc is non-nil, it returns l.CloseFunc(), otherwise it
// dispatches to the embedded link, if any.
func (l *LinkStub) Close() error {
	if l.CloseFunc != nil {
		return l.CloseFunc()
	}

	if l.Link != nil {
		return l.Link.Close()
	}

	return nil
}
