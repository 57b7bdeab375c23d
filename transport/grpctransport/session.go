package grpctransport

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"

	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/transport"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// session is a transport.Session that communicates with a Server.
type session struct {
	conn *grpc.ClientConn
	md   metadata.MD

	m      sync.Mutex
	closed bool
	links  map[*link]struct{}
}

func (s *session) PartitionIDs(ctx context.Context) ([]string, error) {
	if s.isClosed() {
		return nil, transport.ErrSessionClosed
	}

	res := &describeResponse{}
	if err := s.conn.Invoke(
		s.outgoing(ctx),
		describeMethod,
		&empty{},
		res,
		grpc.CallContentSubtype(codecName),
	); err != nil {
		return nil, fromStatus(err)
	}

	return res.PartitionIDs, nil
}

func (s *session) Publish(
	ctx context.Context,
	d transport.Destination,
	events ...eventstream.EventData,
) error {
	if s.isClosed() {
		return transport.ErrSessionClosed
	}

	req := &publishRequest{
		PartitionID:  d.PartitionID,
		PartitionKey: d.PartitionKey,
		Events:       events,
	}

	if err := s.conn.Invoke(
		s.outgoing(ctx),
		publishMethod,
		req,
		&empty{},
		grpc.CallContentSubtype(codecName),
	); err != nil {
		return fromStatus(err)
	}

	return nil
}

func (s *session) OpenLink(
	ctx context.Context,
	req transport.LinkRequest,
) (transport.Link, error) {
	if s.isClosed() {
		return nil, transport.ErrSessionClosed
	}

	// consumeCtx lives for the lifetime of the gRPC stream. It does NOT use ctx
	// as a parent, because ctx only spans the lifetime of this call.
	consumeCtx, cancelConsume := context.WithCancel(s.outgoing(context.Background()))

	done := make(chan struct{})

	// Abort the pending call if ctx is canceled before the link is open.
	go func() {
		select {
		case <-ctx.Done():
			cancelConsume()
		case <-done:
		}
	}()

	stream, header, err := s.openStream(consumeCtx, req)

	select {
	case <-ctx.Done():
		// cancelConsume() is called by the goroutine above.
		return nil, ctx.Err()

	case done <- struct{}{}:
		// The goroutine above will not call cancelConsume(), so we are now
		// responsible for doing so.
		if err != nil {
			cancelConsume()
			return nil, fromStatus(err)
		}

		l := &link{
			session: s,
			stream:  stream,
			cancel:  cancelConsume,
			batches: make(chan []eventstream.Event, 1),
		}

		if v := header.Get(linkStartHeader); len(v) != 0 {
			if seq, err := strconv.ParseInt(v[0], 10, 64); err == nil {
				l.start, l.hasStart = seq, true
			}
		}

		s.m.Lock()
		if s.closed {
			s.m.Unlock()
			cancelConsume()
			return nil, transport.ErrSessionClosed
		}
		s.links[l] = struct{}{}
		s.m.Unlock()

		go l.consume()

		return l, nil
	}
}

// openStream starts the Receive() operation and waits for the server to
// confirm that the link is open. It returns the header sent by the server.
func (s *session) openStream(
	ctx context.Context,
	req transport.LinkRequest,
) (grpc.ClientStream, metadata.MD, error) {
	stream, err := s.conn.NewStream(
		ctx,
		&serviceDesc.Streams[0],
		receiveMethod,
		grpc.CallContentSubtype(codecName),
	)
	if err != nil {
		return nil, nil, err
	}

	if err := stream.SendMsg(&receiveRequest{
		LinkName:      req.Name,
		ConsumerGroup: req.ConsumerGroup,
		PartitionID:   req.PartitionID,
		Start:         req.Start,
		MaxBatchSize:  req.MaxBatchSize,
	}); err != nil {
		return nil, nil, err
	}

	if err := stream.CloseSend(); err != nil {
		return nil, nil, err
	}

	md, err := stream.Header()
	if err != nil {
		return nil, nil, err
	}

	if len(md.Get(linkOpenedHeader)) == 0 {
		// The server finished the stream without sending the header, so
		// RecvMsg() yields the status error.
		err := stream.RecvMsg(&batch{})
		if err == nil || err == io.EOF {
			err = errors.New("server closed the stream before the link was opened")
		}

		return nil, nil, err
	}

	return stream, md, nil
}

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
		l.close(transport.ErrLinkClosed)
	}

	return s.conn.Close()
}

func (s *session) isClosed() bool {
	s.m.Lock()
	defer s.m.Unlock()

	return s.closed
}

func (s *session) forget(l *link) {
	s.m.Lock()
	defer s.m.Unlock()

	delete(s.links, l)
}

func (s *session) outgoing(ctx context.Context) context.Context {
	return metadata.NewOutgoingContext(ctx, s.md)
}
