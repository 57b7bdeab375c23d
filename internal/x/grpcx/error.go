package grpcx

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

// Errorf returns a new gRPC status error with the given detail messages.
func Errorf(
	code codes.Code,
	details []proto.Message,
	f string,
	v ...interface{},
) error {
	s := status.Newf(code, f, v...)

	if len(details) == 0 {
		return s.Err()
	}

	v1 := make([]protoadapt.MessageV1, len(details))
	for i, m := range details {
		v1[i] = protoadapt.MessageV1Of(m)
	}

	s, err := s.WithDetails(v1...)
	if err != nil {
		panic(err)
	}

	return s.Err()
}

// Detail returns the first detail message of type T within the gRPC status
// of err.
func Detail[T proto.Message](err error) (T, bool) {
	var zero T

	s, ok := status.FromError(err)
	if !ok {
		return zero, false
	}

	for _, d := range s.Details() {
		if m, ok := d.(T); ok {
			return m, true
		}
	}

	return zero, false
}
