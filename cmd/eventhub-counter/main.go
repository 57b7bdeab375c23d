// Package main exercises a consumer group against a running event hub.
//
// It publishes a fixed number of events to each partition, then repeatedly
// opens a receiver group, counts the events delivered to each partition and
// closes the group again.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dogmatiq/dodeca/config"
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub"
	"github.com/dogmatiq/eventhub/checkpoint/boltdb"
	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/group"
	"github.com/dogmatiq/eventhub/internal/counter"
	"github.com/dogmatiq/eventhub/internal/x/loggingx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, config.Environment()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, cfg config.Bucket) (err error) {
	zl, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer zl.Sync() // nolint:errcheck

	logger := loggingx.Zap(zl)

	options := append(
		eventhub.OptionsFromConfig(cfg),
		eventhub.WithLogger(logger),
	)

	path := config.AsStringDefault(cfg, "EVENTHUB_CHECKPOINT_DB", "")
	checkpointing := path != ""

	if checkpointing {
		store, openErr := boltdb.Open(ctx, path, 0, nil)
		if openErr != nil {
			return openErr
		}
		defer func() {
			err = multierr.Append(err, store.DB.Close())
		}()

		options = append(options, eventhub.WithCheckpointStore(store))
	}

	client, err := eventhub.Dial(
		ctx,
		eventhub.EndpointFromConfig(cfg),
		eventhub.CredentialsFromConfig(cfg),
		options...,
	)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, client.Close())
	}()

	start := eventstream.EnqueuedAfter(time.Now())
	if config.AsBoolDefault(cfg, "EVENTHUB_FROM_EARLIEST", false) {
		start = eventstream.Earliest()
	}

	n := config.AsIntDefault(cfg, "EVENTHUB_EVENTS_PER_PARTITION", 10)
	if err := publish(ctx, client, n); err != nil {
		return err
	}

	c := &iteration{
		Client:        client,
		ConsumerGroup: config.AsStringDefault(cfg, "EVENTHUB_CONSUMER_GROUP", "$Default"),
		Start:         start,
		Events:        n,
		Logger:        logger,
	}

	for i := 0; i < config.AsIntDefault(cfg, "EVENTHUB_ITERATIONS", 4); i++ {
		if err := c.Run(ctx); err != nil {
			return err
		}

		// Checkpointed events are not redelivered.
		if checkpointing {
			c.Events = 0
		}
	}

	return nil
}

// publish sends n events to each of the hub's partitions.
func publish(ctx context.Context, client *eventhub.Client, n int) error {
	sender, err := client.NewSender()
	if err != nil {
		return err
	}
	defer sender.Close()

	g, ctx := errgroup.WithContext(ctx)

	for _, id := range client.PartitionIDs() {
		id := id

		g.Go(func() error {
			var events []eventstream.EventData
			for i := 0; i < n; i++ {
				events = append(events, eventstream.EventData{
					Payload: []byte(fmt.Sprintf("event %d for partition %s", i, id)),
					Properties: map[string]string{
						"sender": sender.Name(),
					},
				})
			}

			return sender.SendToPartition(ctx, id, events...)
		})
	}

	return g.Wait()
}

// iteration opens a receiver group and waits for each partition to deliver a
// fixed number of events.
type iteration struct {
	Client        *eventhub.Client
	ConsumerGroup string
	Start         eventstream.Position
	Events        int
	Logger        logging.Logger
}

// Run opens the group, waits for the events, then closes the group.
func (c *iteration) Run(ctx context.Context) (err error) {
	counters := map[string]*counter.Handler{}

	grp, err := group.Open(
		ctx,
		group.ClientFactory(c.Client),
		c.ConsumerGroup,
		c.Client.PartitionIDs(),
		c.Start,
		func(id string) eventstream.Handler {
			h := &counter.Handler{
				PartitionID: id,
				Logger:      c.Logger,
			}
			counters[id] = h

			logging.Log(c.Logger, "created receiver on partition: %s", id)

			return h
		},
	)
	if err != nil {
		return err
	}

	defer func() {
		for _, r := range grp.Receivers() {
			logging.Log(c.Logger, "closing receivers: %s", r.PartitionID())
		}

		err = multierr.Append(err, grp.CloseAll())
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grp.Wait(gctx); gctx.Err() == nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()

		for _, h := range counters {
			if err := h.WaitFor(gctx, c.Events); err != nil {
				return err
			}
		}

		return nil
	})

	return g.Wait()
}
