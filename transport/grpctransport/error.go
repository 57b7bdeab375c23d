package grpctransport

import (
	"context"
	"errors"

	"github.com/dogmatiq/eventhub/internal/x/grpcx"
	"github.com/dogmatiq/eventhub/transport"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

const (
	hubResource       = "eventhub.hub"
	partitionResource = "eventhub.partition"
)

// toStatus converts an error produced by a backend session into a gRPC status
// error.
func toStatus(err error) error {
	var unknown *transport.UnknownPartitionError

	switch {
	case errors.Is(err, transport.ErrUnauthorized):
		return grpcx.Errorf(codes.Unauthenticated, nil, "%s", err)

	case errors.Is(err, transport.ErrUnknownHub):
		return grpcx.Errorf(
			codes.NotFound,
			[]proto.Message{
				&errdetails.ResourceInfo{ResourceType: hubResource},
			},
			"%s",
			err,
		)

	case errors.As(err, &unknown):
		return grpcx.Errorf(
			codes.NotFound,
			[]proto.Message{
				&errdetails.ResourceInfo{
					ResourceType: partitionResource,
					ResourceName: unknown.PartitionID,
				},
			},
			"%s",
			err,
		)

	case errors.Is(err, transport.ErrSessionClosed),
		errors.Is(err, transport.ErrLinkClosed):
		return grpcx.Errorf(codes.Unavailable, nil, "%s", err)

	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}

	return grpcx.Errorf(codes.Unknown, nil, "%s", err)
}

// fromStatus converts a gRPC status error returned by the server back into one
// of the errors defined by the transport package, if possible.
func fromStatus(err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch s.Code() {
	case codes.Unauthenticated:
		return transport.ErrUnauthorized

	case codes.NotFound:
		if info, ok := grpcx.Detail[*errdetails.ResourceInfo](err); ok {
			switch info.GetResourceType() {
			case hubResource:
				return transport.ErrUnknownHub
			case partitionResource:
				return &transport.UnknownPartitionError{
					PartitionID: info.GetResourceName(),
				}
			}
		}

	case codes.Canceled:
		return context.Canceled

	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}

	return err
}
