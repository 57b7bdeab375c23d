package grpctransport

import (
	"context"

	"github.com/dogmatiq/eventhub/transport"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Dialer is an implementation of transport.Dialer that connects to a Server
// via gRPC.
type Dialer struct {
	// DialOptions are passed to grpc.DialContext() when establishing the
	// connection. Transport credentials default to insecure.NewCredentials().
	DialOptions []grpc.DialOption
}

// Dial connects to the server at ep.Address and authenticates with creds.
func (d *Dialer) Dial(
	ctx context.Context,
	ep transport.Endpoint,
	creds transport.Credentials,
) (transport.Session, error) {
	options := append(
		[]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
		d.DialOptions...,
	)

	conn, err := grpc.DialContext(ctx, ep.Address, options...)
	if err != nil {
		return nil, err
	}

	s := &session{
		conn: conn,
		md: metadata.Pairs(
			hubHeader, ep.Hub,
			keyNameHeader, creds.KeyName,
			keyHeader, creds.Key,
		),
		links: map[*link]struct{}{},
	}

	// Describe() is used to verify the credentials before the session is
	// returned to the caller.
	if _, err := s.PartitionIDs(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}
