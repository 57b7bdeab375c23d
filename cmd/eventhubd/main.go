// Package main runs a development event hub server.
//
// It serves one or more in-memory hubs via the gRPC transport. Events are not
// persisted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dogmatiq/dodeca/config"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub/internal/x/grpcx"
	"github.com/dogmatiq/eventhub/internal/x/loggingx"
	"github.com/dogmatiq/eventhub/transport/grpctransport"
	"github.com/dogmatiq/eventhub/transport/memorytransport"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// shutdownGrace is the time allowed for in-flight publishes to complete when the
// server is shut down.
const shutdownGrace = 5 * time.Second

// newContext returns a cancelable context that is canceled when the process
// receives a SIGTERM or SIGINT.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	ctx, cancel := newContext()
	defer cancel()

	if err := run(ctx, config.Environment()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, cfg config.Bucket) error {
	zl, err := newZap(cfg)
	if err != nil {
		return err
	}
	defer zl.Sync() // nolint:errcheck

	logger := loggingx.Zap(zl)

	ns := &memorytransport.Namespace{}
	for _, name := range strings.Split(
		config.AsStringDefault(cfg, "EVENTHUB_HUBS", "default"),
		",",
	) {
		hub := newHub(cfg, strings.TrimSpace(name))
		ns.Add(hub)

		logging.Log(
			logger,
			"serving hub %q with %d partition(s)",
			hub.Name,
			len(hub.PartitionIDs()),
		)
	}

	addr := config.AsStringDefault(cfg, "EVENTHUB_LISTEN_ADDRESS", ":5671")
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", addr, err)
	}

	gs := grpc.NewServer()

	s := &grpctransport.Server{
		Backend: ns,
		Logger:  logger,
	}
	s.Register(gs)

	logging.Log(logger, "listening on %s", lis.Addr())

	return grpcx.Serve(ctx, lis, gs, shutdownGrace)
}

// newHub returns an empty hub configured by cfg.
func newHub(cfg config.Bucket, name string) *memorytransport.Hub {
	hub := &memorytransport.Hub{
		Name:           name,
		PartitionCount: config.AsIntDefault(cfg, "EVENTHUB_PARTITION_COUNT", memorytransport.DefaultPartitionCount),
	}

	if k := config.AsStringDefault(cfg, "EVENTHUB_KEY", ""); k != "" {
		hub.Keys = map[string]string{
			config.AsStringDefault(cfg, "EVENTHUB_KEY_NAME", "RootManageSharedAccessKey"): k,
		}
	}

	return hub
}

// newZap returns the zap logger configured by cfg.
func newZap(cfg config.Bucket) (*zap.Logger, error) {
	if config.AsBoolDefault(cfg, "DEBUG", false) {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
