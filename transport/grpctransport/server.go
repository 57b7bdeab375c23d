package grpctransport

import (
	"context"
	"strconv"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub/internal/x/grpcx"
	"github.com/dogmatiq/eventhub/transport"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
)

// Server exposes an event hub via gRPC.
//
// Each RPC is served by a session dialed from the backend using the endpoint
// and credentials supplied by the client.
type Server struct {
	// Backend is the dialer used to open sessions with the underlying hub.
	Backend transport.Dialer

	// Logger is the target for log messages. If it is nil,
	// logging.DefaultLogger is used.
	Logger logging.Logger
}

// Register registers the server's service with s.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

func (s *Server) describe(ctx context.Context, _ *empty) (*describeResponse, error) {
	sess, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	ids, err := sess.PartitionIDs(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	return &describeResponse{PartitionIDs: ids}, nil
}

func (s *Server) publish(ctx context.Context, req *publishRequest) (*empty, error) {
	sess, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if len(req.Events) == 0 {
		return nil, grpcx.Errorf(codes.InvalidArgument, nil, "at least one event must be published")
	}

	if err := sess.Publish(
		ctx,
		transport.Destination{
			PartitionID:  req.PartitionID,
			PartitionKey: req.PartitionKey,
		},
		req.Events...,
	); err != nil {
		return nil, toStatus(err)
	}

	return &empty{}, nil
}

func (s *Server) receive(req *receiveRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()

	sess, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	link, err := sess.OpenLink(
		ctx,
		transport.LinkRequest{
			Name:          req.LinkName,
			ConsumerGroup: req.ConsumerGroup,
			PartitionID:   req.PartitionID,
			Start:         req.Start,
			MaxBatchSize:  req.MaxBatchSize,
		},
	)
	if err != nil {
		return toStatus(err)
	}
	defer link.Close()

	logging.Debug(
		s.logger(),
		"link %s opened on partition %s for consumer group %s at %s",
		req.LinkName,
		req.PartitionID,
		req.ConsumerGroup,
		req.Start,
	)

	// Send the header immediately so that the client knows the link was
	// opened successfully before any events are available.
	header := metadata.Pairs(linkOpenedHeader, "true")
	if seq, ok := link.Start(); ok {
		header.Set(linkStartHeader, strconv.FormatInt(seq, 10))
	}

	if err := stream.SendHeader(header); err != nil {
		return err
	}

	for {
		events, err := link.Receive(ctx)
		if err != nil {
			logging.Debug(
				s.logger(),
				"link %s on partition %s closed: %s",
				req.LinkName,
				req.PartitionID,
				err,
			)

			return toStatus(err)
		}

		if err := stream.SendMsg(&batch{Events: events}); err != nil {
			return err
		}
	}
}

// dial opens a backend session using the endpoint and credentials in the
// incoming request metadata.
func (s *Server) dial(ctx context.Context) (transport.Session, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	sess, err := s.Backend.Dial(
		ctx,
		transport.Endpoint{
			Hub: first(md, hubHeader),
		},
		transport.Credentials{
			KeyName: first(md, keyNameHeader),
			Key:     first(md, keyHeader),
		},
	)
	if err != nil {
		return nil, toStatus(err)
	}

	return sess, nil
}

func (s *Server) logger() logging.Logger {
	if s.Logger == nil {
		return logging.DefaultLogger
	}

	return s.Logger
}

func first(md metadata.MD, k string) string {
	if v := md.Get(k); len(v) != 0 {
		return v[0]
	}

	return ""
}
