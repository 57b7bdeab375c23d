package receiver

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub/checkpoint"
	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/transport"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
)

// deliver consumes the partition until ctx is canceled or the receiver gives
// up. It returns a *FatalTransportError in the latter case.
func (r *Receiver) deliver(ctx context.Context) error {
	counter := backoff.Counter{
		Strategy: r.opts.Backoff,
	}

	for {
		err := r.consume(ctx, &counter)

		if ctx.Err() != nil {
			return nil
		}

		var handlerErr *HandlerError
		if errors.As(err, &handlerErr) {
			r.notify(ctx, err)
		} else {
			r.failures++

			if transport.IsFatal(err) || r.failures >= r.opts.MaxConsecutiveFailures {
				fatal := &FatalTransportError{
					PartitionID: r.partitionID,
					Failures:    r.failures,
					Cause:       err,
				}

				logging.Log(r.logger, "%s", fatal)
				r.notify(ctx, fatal)

				return fatal
			}

			r.notify(ctx, &TransportError{
				PartitionID: r.partitionID,
				Attempt:     r.failures,
				Cause:       err,
			})
		}

		delay := counter.Fail(err)

		logging.Log(
			r.logger,
			"delaying next attempt for %s: %s",
			delay,
			err,
		)

		if err := linger.Sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

// consume opens a link at the cursor's position and delivers batches until
// an error occurs.
func (r *Receiver) consume(ctx context.Context, counter *backoff.Counter) (err error) {
	if err := r.restore(ctx); err != nil {
		return err
	}

	start := r.cursor.Position()

	link, err := r.session.OpenLink(
		ctx,
		transport.LinkRequest{
			Name:          r.opts.LinkName,
			ConsumerGroup: r.consumerGroup,
			PartitionID:   r.partitionID,
			Start:         start,
			MaxBatchSize:  r.opts.MaxBatchSize,
		},
	)
	if err != nil {
		return err
	}

	if seq, ok := link.Start(); ok && seq >= 0 {
		r.cursor.Pin(seq)
	}

	defer func() {
		cerr := link.Close()
		if cerr == nil || errors.Is(cerr, transport.ErrLinkClosed) {
			return
		}

		if ctx.Err() != nil {
			r.closeErr = cerr
		} else {
			logging.Log(r.logger, "unable to close link: %s", cerr)
		}
	}()

	logging.Debug(
		r.logger,
		"opened link %s at %s",
		r.opts.LinkName,
		start,
	)

	for {
		batch, err := link.Receive(ctx)
		if err != nil {
			return err
		}

		if err := r.cursor.Check(batch); err != nil {
			return err
		}

		// The transport is healthy again.
		r.failures = 0

		if err := r.handle(ctx, batch); err != nil {
			return err
		}

		counter.Reset()
	}
}

// restore moves the cursor to the persisted checkpoint, if there is one. It
// only loads the checkpoint once.
func (r *Receiver) restore(ctx context.Context) error {
	if r.restored || r.opts.Checkpoints == nil {
		return nil
	}

	cp, ok, err := r.opts.Checkpoints.Load(ctx, r.checkpointKey())
	if err != nil {
		return err
	}

	if ok {
		r.cursor.Restore(cp.Offset, cp.Sequence)

		logging.Log(
			r.logger,
			"resuming after checkpoint at sequence %d (offset %s)",
			cp.Sequence,
			cp.Offset,
		)
	}

	r.restored = true

	return nil
}

// handle delivers a validated batch to the current handler.
func (r *Receiver) handle(ctx context.Context, batch []eventstream.Event) error {
	if s := r.opts.Semaphore; s != nil {
		if err := s.Acquire(ctx, 1); err != nil {
			return err
		}
		defer s.Release(1)
	}

	if err := r.currentHandler().HandleEvents(ctx, batch); err != nil {
		return &HandlerError{
			PartitionID: r.partitionID,
			Cause:       err,
		}
	}

	r.cursor.Advance(batch)
	r.save(ctx)

	return nil
}

// save persists the cursor's position, if the receiver has a checkpoint store.
func (r *Receiver) save(ctx context.Context) {
	if r.opts.Checkpoints == nil {
		return
	}

	o, seq, _ := r.cursor.Last()

	if err := r.opts.Checkpoints.Save(
		ctx,
		r.checkpointKey(),
		checkpoint.Checkpoint{
			Offset:    o,
			Sequence:  seq,
			UpdatedAt: time.Now(),
		},
	); err != nil && ctx.Err() == nil {
		r.notify(ctx, &CheckpointError{
			PartitionID: r.partitionID,
			Cause:       err,
		})
	}
}

// notify passes err to the current handler.
func (r *Receiver) notify(ctx context.Context, err error) {
	logging.Debug(r.logger, "%s", err)
	r.currentHandler().HandleError(ctx, err)
}

func (r *Receiver) checkpointKey() checkpoint.Key {
	return checkpoint.Key{
		Hub:           r.opts.Hub,
		ConsumerGroup: r.consumerGroup,
		PartitionID:   r.partitionID,
	}
}
