package group_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub"
	"github.com/dogmatiq/eventhub/eventstream"
	. "github.com/dogmatiq/eventhub/fixtures"
	. "github.com/dogmatiq/eventhub/group"
	"github.com/dogmatiq/eventhub/internal/counter"
	"github.com/dogmatiq/eventhub/receiver"
	"github.com/dogmatiq/eventhub/transport"
	"github.com/dogmatiq/eventhub/transport/memorytransport"
	"github.com/dogmatiq/linger/backoff"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func ClientFactory()", func() {
	const eventsPerPartition = 10

	var (
		ctx      context.Context
		hub      *memorytransport.Hub
		client   *eventhub.Client
		counters map[string]*counter.Handler
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		DeferCleanup(cancel)

		hub = &memorytransport.Hub{Name: "<hub>"}

		var err error
		client, err = eventhub.Dial(
			ctx,
			transport.Endpoint{Hub: "<hub>"},
			transport.Credentials{},
			eventhub.WithDialer(hub),
			eventhub.WithLogger(logging.DiscardLogger{}),
			eventhub.WithBackoff(backoff.Constant(time.Millisecond)),
		)
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(func() { client.Close() })

		for _, id := range client.PartitionIDs() {
			for i := 0; i < eventsPerPartition; i++ {
				_, err := hub.Append(id, eventstream.EventData{
					Payload: []byte(fmt.Sprintf("<event %s/%d>", id, i)),
				})
				Expect(err).ShouldNot(HaveOccurred())
			}
		}
	})

	open := func(options ...receiver.Option) *Group {
		counters = map[string]*counter.Handler{}

		g, err := Open(
			ctx,
			ClientFactory(client),
			"<group>",
			client.PartitionIDs(),
			eventstream.Earliest(),
			func(id string) eventstream.Handler {
				c := &counter.Handler{
					PartitionID: id,
					Logger:      logging.DiscardLogger{},
				}
				counters[id] = c
				return c
			},
			options...,
		)
		Expect(err).ShouldNot(HaveOccurred())

		return g
	}

	expectAllEvents := func() {
		for id, c := range counters {
			err := c.WaitFor(ctx, eventsPerPartition)
			Expect(err).ShouldNot(HaveOccurred(), "partition %s", id)
		}

		Consistently(func() []int {
			var counts []int
			for _, id := range client.PartitionIDs() {
				counts = append(counts, counters[id].Count())
			}
			return counts
		}, 50*time.Millisecond).Should(HaveEach(eventsPerPartition))

		for id, c := range counters {
			Expect(c.Sequences()).To(
				Equal([]int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}),
				"partition %s",
				id,
			)
		}
	}

	It("delivers every event of every partition exactly once and in order", func() {
		g := open()
		defer g.CloseAll()

		Expect(g.Len()).To(Equal(len(client.PartitionIDs())))
		expectAllEvents()
	})

	It("keeps the partitions independent when the receivers run concurrently", func() {
		g := open(receiver.WithMaxBatchSize(1))
		defer g.CloseAll()

		expectAllEvents()

		for id := range counters {
			r, ok := g.Receiver(id)
			Expect(ok).To(BeTrue())
			Expect(r.Err()).ShouldNot(HaveOccurred())
		}
	})

	It("releases every link when the group is closed", func() {
		for i := 0; i < 4; i++ {
			g := open()
			expectAllEvents()

			Expect(hub.OpenLinks()).To(Equal(len(client.PartitionIDs())))

			err := g.CloseAll()
			Expect(err).ShouldNot(HaveOccurred())
			Expect(hub.OpenLinks()).To(Equal(0), "iteration %d", i)

			for _, r := range g.Receivers() {
				Expect(r.Done()).To(BeClosed())
			}
		}

		Expect(hub.OpenSessions()).To(Equal(1))
	})

	It("fails to open the group if any partition is unknown to the hub", func() {
		_, err := Open(
			ctx,
			ClientFactory(client),
			"<group>",
			[]string{"0", "1", "7"},
			eventstream.Earliest(),
			func(string) eventstream.Handler { return &HandlerStub{} },
		)

		var failure *PartialGroupFailure
		Expect(errors.As(err, &failure)).To(BeTrue())
		Expect(failure.Index).To(Equal(2))
		Expect(failure.Cause).To(Equal(&eventhub.InvalidPartitionError{
			PartitionID: "7",
			Known:       []string{"0", "1", "2", "3"},
		}))

		Eventually(hub.OpenLinks).Should(Equal(0))
	})
})
