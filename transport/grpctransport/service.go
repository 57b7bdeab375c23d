package grpctransport

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName      = "eventhub.transport.v1.Session"
	describeMethod   = "/" + serviceName + "/Describe"
	publishMethod    = "/" + serviceName + "/Publish"
	receiveMethod    = "/" + serviceName + "/Receive"
	hubHeader        = "eventhub-hub"
	keyNameHeader    = "eventhub-key-name"
	keyHeader        = "eventhub-key"
	linkOpenedHeader = "eventhub-link-opened"
	linkStartHeader  = "eventhub-link-start"
)

// sessionService is the server-side interface of the session service.
type sessionService interface {
	describe(context.Context, *empty) (*describeResponse, error)
	publish(context.Context, *publishRequest) (*empty, error)
	receive(*receiveRequest, grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*sessionService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Describe",
			Handler: func(
				srv interface{},
				ctx context.Context,
				dec func(interface{}) error,
				interceptor grpc.UnaryServerInterceptor,
			) (interface{}, error) {
				req := &empty{}
				if err := dec(req); err != nil {
					return nil, err
				}

				call := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(sessionService).describe(ctx, req.(*empty))
				}

				if interceptor == nil {
					return call(ctx, req)
				}

				return interceptor(
					ctx,
					req,
					&grpc.UnaryServerInfo{Server: srv, FullMethod: describeMethod},
					call,
				)
			},
		},
		{
			MethodName: "Publish",
			Handler: func(
				srv interface{},
				ctx context.Context,
				dec func(interface{}) error,
				interceptor grpc.UnaryServerInterceptor,
			) (interface{}, error) {
				req := &publishRequest{}
				if err := dec(req); err != nil {
					return nil, err
				}

				call := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(sessionService).publish(ctx, req.(*publishRequest))
				}

				if interceptor == nil {
					return call(ctx, req)
				}

				return interceptor(
					ctx,
					req,
					&grpc.UnaryServerInfo{Server: srv, FullMethod: publishMethod},
					call,
				)
			},
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Receive",
			ServerStreams: true,
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				req := &receiveRequest{}
				if err := stream.RecvMsg(req); err != nil {
					return err
				}

				return srv.(sessionService).receive(req, stream)
			},
		},
	},
}
