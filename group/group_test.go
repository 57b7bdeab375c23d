package group_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dogmatiq/eventhub/eventstream"
	. "github.com/dogmatiq/eventhub/fixtures"
	. "github.com/dogmatiq/eventhub/group"
	"github.com/dogmatiq/eventhub/internal/counter"
	"github.com/dogmatiq/eventhub/receiver"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Open()", func() {
	var (
		ctx      context.Context
		m        sync.Mutex
		created  []*ReceiverStub
		factory  ReceiverFactory
		handlers map[string]eventstream.Handler
		newHandler HandlerFactory
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)

		created = nil
		handlers = map[string]eventstream.Handler{}

		factory = func(
			_ context.Context,
			_, partitionID string,
			_ eventstream.Position,
			_ ...receiver.Option,
		) (Receiver, error) {
			m.Lock()
			defer m.Unlock()

			r := &ReceiverStub{ID: partitionID}
			created = append(created, r)

			return r, nil
		}

		newHandler = func(partitionID string) eventstream.Handler {
			h := &counter.Handler{PartitionID: partitionID}
			handlers[partitionID] = h
			return h
		}
	})

	DescribeTable(
		"it creates one receiver per partition, in order",
		func(n int) {
			var ids []string
			for i := 0; i < n; i++ {
				ids = append(ids, fmt.Sprint(i))
			}

			g, err := Open(ctx, factory, "<group>", ids, eventstream.Earliest(), newHandler)
			Expect(err).ShouldNot(HaveOccurred())

			Expect(g.Len()).To(Equal(n))
			Expect(g.ConsumerGroup()).To(Equal("<group>"))

			for i, r := range g.Receivers() {
				Expect(r.PartitionID()).To(Equal(ids[i]))

				byID, ok := g.Receiver(ids[i])
				Expect(ok).To(BeTrue())
				Expect(byID).To(BeIdenticalTo(r))
			}
		},
		Entry("1 partition", 1),
		Entry("2 partitions", 2),
		Entry("4 partitions", 4),
		Entry("32 partitions", 32),
	)

	It("attaches a separate handler to each receiver", func() {
		g, err := Open(ctx, factory, "<group>", []string{"0", "1"}, eventstream.Earliest(), newHandler)
		Expect(err).ShouldNot(HaveOccurred())

		r0, _ := g.Receiver("0")
		r1, _ := g.Receiver("1")

		Expect(r0.(*ReceiverStub).Handler()).To(BeIdenticalTo(handlers["0"]))
		Expect(r1.(*ReceiverStub).Handler()).To(BeIdenticalTo(handlers["1"]))
		Expect(handlers["0"]).NotTo(BeIdenticalTo(handlers["1"]))
	})

	It("passes the consumer group, start position and options to the factory", func() {
		start := eventstream.AtOffset("41", true)
		option := receiver.WithMaxBatchSize(10)

		var (
			group    string
			position eventstream.Position
			options  []receiver.Option
		)

		factory = func(
			_ context.Context,
			consumerGroup, partitionID string,
			start eventstream.Position,
			opts ...receiver.Option,
		) (Receiver, error) {
			group, position, options = consumerGroup, start, opts
			return &ReceiverStub{ID: partitionID}, nil
		}

		_, err := Open(ctx, factory, "<group>", []string{"0"}, start, newHandler, option)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(group).To(Equal("<group>"))
		Expect(position).To(Equal(start))
		Expect(options).To(HaveLen(1))
	})

	It("returns an error if no partitions are given", func() {
		_, err := Open(ctx, factory, "<group>", nil, eventstream.Earliest(), newHandler)
		Expect(err).To(MatchError("consumer group <group>: at least one partition is required"))
		Expect(created).To(BeEmpty())
	})

	It("returns an error if a partition is given more than once", func() {
		_, err := Open(ctx, factory, "<group>", []string{"0", "1", "0"}, eventstream.Earliest(), newHandler)
		Expect(err).To(MatchError("consumer group <group>: partition 0 is specified more than once"))
		Expect(created).To(BeEmpty())
	})

	It("panics if the receiver factory is nil", func() {
		Expect(func() {
			Open(ctx, nil, "<group>", []string{"0"}, eventstream.Earliest(), newHandler)
		}).To(PanicWith("receiver factory must not be nil"))
	})

	It("panics if the handler factory is nil", func() {
		Expect(func() {
			Open(ctx, factory, "<group>", []string{"0"}, eventstream.Earliest(), nil)
		}).To(PanicWith("handler factory must not be nil"))
	})

	When("a receiver can not be created", func() {
		BeforeEach(func() {
			next := factory
			factory = func(
				ctx context.Context,
				consumerGroup, partitionID string,
				start eventstream.Position,
				opts ...receiver.Option,
			) (Receiver, error) {
				if partitionID == "2" {
					return nil, errors.New("<error>")
				}

				return next(ctx, consumerGroup, partitionID, start, opts...)
			}
		})

		It("closes the receivers that were already created", func() {
			_, err := Open(ctx, factory, "<group>", []string{"0", "1", "2", "3"}, eventstream.Earliest(), newHandler)
			Expect(err).To(Equal(&PartialGroupFailure{
				PartitionID: "2",
				Index:       2,
				Cause:       errors.New("<error>"),
			}))
			Expect(err).To(MatchError("unable to open receiver 3 of the group (partition 2): <error>"))

			Expect(created).To(HaveLen(2))
			for _, r := range created {
				Expect(r.IsClosed()).To(BeTrue())
			}
		})

		It("includes errors that occur while closing the other receivers", func() {
			next := factory
			factory = func(
				ctx context.Context,
				consumerGroup, partitionID string,
				start eventstream.Position,
				opts ...receiver.Option,
			) (Receiver, error) {
				r, err := next(ctx, consumerGroup, partitionID, start, opts...)
				if err != nil {
					return nil, err
				}

				if partitionID == "1" {
					r.(*ReceiverStub).CloseFunc = func() error {
						return errors.New("<close error>")
					}
				}

				return r, nil
			}

			_, err := Open(ctx, factory, "<group>", []string{"0", "1", "2", "3"}, eventstream.Earliest(), newHandler)

			var failure *PartialGroupFailure
			Expect(errors.As(err, &failure)).To(BeTrue())
			Expect(failure.CloseErr).To(MatchError("<close error>"))

			for _, r := range created {
				Expect(r.IsClosed()).To(BeTrue())
			}
		})
	})

	When("a handler can not be attached", func() {
		It("closes every receiver that was created, including the failed one", func() {
			next := factory
			factory = func(
				ctx context.Context,
				consumerGroup, partitionID string,
				start eventstream.Position,
				opts ...receiver.Option,
			) (Receiver, error) {
				r, err := next(ctx, consumerGroup, partitionID, start, opts...)
				if partitionID == "1" {
					r.(*ReceiverStub).SetHandlerFunc = func(eventstream.Handler) error {
						return receiver.ErrNotOpen
					}
				}
				return r, err
			}

			_, err := Open(ctx, factory, "<group>", []string{"0", "1", "2"}, eventstream.Earliest(), newHandler)
			Expect(err).To(Equal(&PartialGroupFailure{
				PartitionID: "1",
				Index:       1,
				Cause:       receiver.ErrNotOpen,
			}))

			Expect(created).To(HaveLen(2))
			for _, r := range created {
				Expect(r.IsClosed()).To(BeTrue())
			}
		})
	})

	It("returns the context error if ctx is canceled", func() {
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Open(cancelCtx, factory, "<group>", []string{"0"}, eventstream.Earliest(), newHandler)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})

var _ = Describe("type Group", func() {
	var (
		ctx       context.Context
		receivers []*ReceiverStub
		group     *Group
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)

		receivers = nil

		var err error
		group, err = Open(
			ctx,
			func(
				_ context.Context,
				_, partitionID string,
				_ eventstream.Position,
				_ ...receiver.Option,
			) (Receiver, error) {
				r := &ReceiverStub{ID: partitionID}
				receivers = append(receivers, r)
				return r, nil
			},
			"<group>",
			[]string{"0", "1", "2", "3"},
			eventstream.Earliest(),
			func(string) eventstream.Handler { return &HandlerStub{} },
		)
		Expect(err).ShouldNot(HaveOccurred())
	})

	Describe("func CloseAll()", func() {
		It("closes every receiver", func() {
			err := group.CloseAll()
			Expect(err).ShouldNot(HaveOccurred())

			for _, r := range receivers {
				Expect(r.IsClosed()).To(BeTrue())
			}
		})

		It("continues closing receivers after a failure and reports an aggregate error", func() {
			receivers[1].CloseFunc = func() error {
				return errors.New("<error>")
			}

			err := group.CloseAll()
			Expect(err).To(Equal(&AggregateCloseError{
				Failures: []*CloseFailure{
					{PartitionID: "1", Cause: errors.New("<error>")},
				},
			}))
			Expect(err).To(MatchError("1 receiver(s) failed to close: partition 1: <error>"))

			var agg *AggregateCloseError
			Expect(errors.As(err, &agg)).To(BeTrue())
			Expect(agg.PartitionIDs()).To(Equal([]string{"1"}))

			for _, r := range receivers {
				Expect(r.IsClosed()).To(BeTrue())
			}
		})

		It("reports every receiver that fails to close", func() {
			receivers[0].CloseFunc = func() error { return errors.New("<error-0>") }
			receivers[3].CloseFunc = func() error { return errors.New("<error-3>") }

			err := group.CloseAll()

			var agg *AggregateCloseError
			Expect(errors.As(err, &agg)).To(BeTrue())
			Expect(agg.PartitionIDs()).To(Equal([]string{"0", "3"}))
			Expect(err).To(MatchError(ContainSubstring("<error-3>")))
		})
	})

	Describe("func Wait()", func() {
		It("returns nil once every receiver is closed", func() {
			result := make(chan error, 1)
			go func() {
				result <- group.Wait(ctx)
			}()

			Consistently(result).ShouldNot(Receive())

			group.CloseAll()

			Eventually(result).Should(Receive(BeNil()))
		})

		It("returns the error of the first receiver that fails", func() {
			result := make(chan error, 1)
			go func() {
				result <- group.Wait(ctx)
			}()

			receivers[2].Fail(errors.New("<error>"))

			Eventually(result).Should(Receive(MatchError("<error>")))
		})

		It("returns the context error if ctx is canceled", func() {
			waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			err := group.Wait(waitCtx)
			Expect(err).To(Equal(context.DeadlineExceeded))
		})
	})
})
