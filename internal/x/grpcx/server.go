package grpcx

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
)

// Serve runs s on lis until ctx is canceled or the server fails.
//
// When ctx is canceled the server stops accepting new RPCs and waits up to
// grace for in-flight RPCs to finish before they are terminated. Long-lived
// streams, such as event deliveries, never finish on their own, so grace is
// best kept short.
//
// If the server stops because ctx is canceled the context error is returned.
// The caller must not stop s itself.
func Serve(
	ctx context.Context,
	lis net.Listener,
	s *grpc.Server,
	grace time.Duration,
) error {
	served := make(chan error, 1)

	go func() {
		served <- s.Serve(lis)
	}()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}

	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-stopped:
	case <-timer.C:
		s.Stop()
		<-stopped
	}

	<-served
	return ctx.Err()
}
