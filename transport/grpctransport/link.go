package grpctransport

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/transport"
	"google.golang.org/grpc"
)

// errStreamEnded is returned by link.Receive() if the server finishes the
// stream without an error.
var errStreamEnded = errors.New("server ended the stream")

// link is a transport.Link that reads batches from a gRPC stream.
type link struct {
	session *session
	stream  grpc.ClientStream
	cancel  context.CancelFunc
	batches chan []eventstream.Event

	start    int64
	hasStart bool

	once sync.Once
	err  error
}

func (l *link) Receive(ctx context.Context) ([]eventstream.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case events, ok := <-l.batches:
		if ok {
			return events, nil
		}

		return nil, l.err
	}
}

func (l *link) Start() (int64, bool) {
	return l.start, l.hasStart
}

func (l *link) Close() error {
	if !l.close(transport.ErrLinkClosed) {
		return transport.ErrLinkClosed
	}

	l.session.forget(l)

	return nil
}

// consume receives batches from the stream and pipes them over l.batches.
//
// It exits when the stream's context is canceled or an error occurs while
// reading from the stream.
func (l *link) consume() {
	defer close(l.batches)

	for {
		if err := l.recv(); err != nil {
			l.close(err)
			return
		}
	}
}

func (l *link) recv() error {
	b := &batch{}

	// The stream is already bound to the consume context.
	if err := l.stream.RecvMsg(b); err != nil {
		if err == io.EOF {
			return errStreamEnded
		}

		return fromStatus(err)
	}

	if len(b.Events) == 0 {
		return nil
	}

	select {
	case l.batches <- b.Events:
		return nil
	case <-l.stream.Context().Done():
		return l.stream.Context().Err()
	}
}

// close closes the link. It returns false if the link was already closed.
func (l *link) close(cause error) bool {
	ok := false

	l.once.Do(func() {
		l.cancel()
		l.err = cause
		ok = true
	})

	return ok
}
