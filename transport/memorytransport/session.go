package memorytransport

import (
	"context"
	"sync"

	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/transport"
)

// session is an implementation of transport.Session for an in-memory hub.
type session struct {
	hub *Hub

	m      sync.Mutex
	closed bool
	links  map[*link]struct{}
}

func (s *session) PartitionIDs(ctx context.Context) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	return s.hub.PartitionIDs(), nil
}

func (s *session) OpenLink(
	ctx context.Context,
	req transport.LinkRequest,
) (transport.Link, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	h := s.hub

	h.m.Lock()
	p, ok := h.index[req.PartitionID]
	if !ok {
		h.m.Unlock()
		return nil, &transport.UnknownPartitionError{PartitionID: req.PartitionID}
	}

	index, err := p.resolve(req.Start)
	if err != nil {
		h.m.Unlock()
		return nil, err
	}

	h.links++
	h.m.Unlock()

	l := &link{
		session:   s,
		partition: p,
		start:     index,
		index:     index,
		max:       req.MaxBatchSize,
		closed:    make(chan struct{}),
	}

	s.m.Lock()
	defer s.m.Unlock()

	if s.closed {
		// CODE COVERAGE: The session was closed while the link was being
		// opened.
		l.release()
		return nil, transport.ErrSessionClosed
	}

	s.links[l] = struct{}{}

	return l, nil
}

func (s *session) Publish(
	ctx context.Context,
	d transport.Destination,
	events ...eventstream.EventData,
) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	_, err := s.hub.publish(d, events)
	return err
}

// Close closes the session and all of its links.
//
// It returns transport.ErrSessionClosed if the session is already closed.
func (s *session) Close() error {
	s.m.Lock()

	if s.closed {
		s.m.Unlock()
		return transport.ErrSessionClosed
	}

	s.closed = true
	links := s.links
	s.links = nil

	s.m.Unlock()

	for l := range links {
		l.close()
	}

	s.hub.m.Lock()
	s.hub.sessions--
	s.hub.m.Unlock()

	return nil
}

// check returns an error if the session may not be used.
func (s *session) check(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.m.Lock()
	defer s.m.Unlock()

	if s.closed {
		return transport.ErrSessionClosed
	}

	return nil
}

// forget removes l from the session's set of open links.
func (s *session) forget(l *link) {
	s.m.Lock()
	defer s.m.Unlock()

	delete(s.links, l)
}
