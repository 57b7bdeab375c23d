package memorytransport_test

import (
	"context"
	"time"

	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/transport"
	. "github.com/dogmatiq/eventhub/transport/memorytransport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Hub", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		now    time.Time
		hub    *Hub
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 1*time.Second)
		DeferCleanup(cancel)

		now = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

		hub = &Hub{
			Name:           "<hub>",
			PartitionCount: 2,
			Keys: map[string]string{
				"<key-name>": "<key>",
			},
			Now: func() time.Time {
				now = now.Add(1 * time.Second)
				return now
			},
		}
	})

	dial := func() transport.Session {
		s, err := hub.Dial(
			ctx,
			transport.Endpoint{Hub: "<hub>"},
			transport.Credentials{KeyName: "<key-name>", Key: "<key>"},
		)
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(func() { s.Close() })
		return s
	}

	open := func(s transport.Session, p eventstream.Position, max int) transport.Link {
		l, err := s.OpenLink(ctx, transport.LinkRequest{
			Name:          "<link>",
			ConsumerGroup: "<group>",
			PartitionID:   "0",
			Start:         p,
			MaxBatchSize:  max,
		})
		Expect(err).ShouldNot(HaveOccurred())
		return l
	}

	appendEvents := func(n int) []eventstream.Event {
		var data []eventstream.EventData
		for i := 0; i < n; i++ {
			data = append(data, eventstream.EventData{Payload: []byte("<payload>")})
		}

		events, err := hub.Append("0", data...)
		Expect(err).ShouldNot(HaveOccurred())
		return events
	}

	Describe("func Dial()", func() {
		It("returns an error if the credentials are not recognized", func() {
			_, err := hub.Dial(
				ctx,
				transport.Endpoint{Hub: "<hub>"},
				transport.Credentials{KeyName: "<key-name>", Key: "<wrong>"},
			)
			Expect(err).To(Equal(transport.ErrUnauthorized))
		})

		It("returns an error if the hub name does not match", func() {
			_, err := hub.Dial(
				ctx,
				transport.Endpoint{Hub: "<other>"},
				transport.Credentials{KeyName: "<key-name>", Key: "<key>"},
			)
			Expect(err).To(Equal(transport.ErrUnknownHub))
		})

		It("returns an error if the context is canceled", func() {
			cancel()

			_, err := hub.Dial(ctx, transport.Endpoint{}, transport.Credentials{})
			Expect(err).To(Equal(context.Canceled))
		})

		It("tracks the number of open sessions", func() {
			s := dial()
			Expect(hub.OpenSessions()).To(Equal(1))

			err := s.Close()
			Expect(err).ShouldNot(HaveOccurred())
			Expect(hub.OpenSessions()).To(Equal(0))
		})
	})

	Describe("func PartitionIDs()", func() {
		It("returns sequential partition IDs", func() {
			Expect(hub.PartitionIDs()).To(Equal([]string{"0", "1"}))
		})

		It("uses the default partition count if none is specified", func() {
			hub.PartitionCount = 0
			Expect(hub.PartitionIDs()).To(HaveLen(DefaultPartitionCount))
		})
	})

	Describe("func Append()", func() {
		It("assigns increasing offsets and sequence numbers", func() {
			events := appendEvents(3)

			Expect(events).To(HaveLen(3))
			for i, ev := range events {
				Expect(ev.Sequence).To(BeEquivalentTo(i))
			}

			Expect(events[0].Offset).To(Equal(eventstream.Offset("0")))
			Expect(events[1].Offset).To(Equal(eventstream.Offset("41")))
			Expect(events[2].Offset).To(Equal(eventstream.Offset("82")))
			Expect(events[1].EnqueuedAt).To(BeTemporally(">", events[0].EnqueuedAt))
		})

		It("returns an error if the partition does not exist", func() {
			_, err := hub.Append("99", eventstream.EventData{})
			Expect(err).To(Equal(&transport.UnknownPartitionError{PartitionID: "99"}))
		})
	})

	Describe("type session", func() {
		Describe("func Publish()", func() {
			It("routes events with the same partition key to the same partition", func() {
				s := dial()

				for i := 0; i < 4; i++ {
					err := s.Publish(
						ctx,
						transport.Destination{PartitionKey: "<key>"},
						eventstream.EventData{},
					)
					Expect(err).ShouldNot(HaveOccurred())
				}

				p0, err := hub.Events("0")
				Expect(err).ShouldNot(HaveOccurred())
				p1, err := hub.Events("1")
				Expect(err).ShouldNot(HaveOccurred())

				Expect(len(p0) * len(p1)).To(Equal(0))
				Expect(len(p0) + len(p1)).To(Equal(4))

				for _, ev := range append(p0, p1...) {
					Expect(ev.PartitionKey).To(Equal("<key>"))
				}
			})

			It("distributes unrouted events across partitions", func() {
				s := dial()

				for i := 0; i < 4; i++ {
					err := s.Publish(ctx, transport.Destination{}, eventstream.EventData{})
					Expect(err).ShouldNot(HaveOccurred())
				}

				p0, _ := hub.Events("0")
				p1, _ := hub.Events("1")
				Expect(p0).To(HaveLen(2))
				Expect(p1).To(HaveLen(2))
			})

			It("returns an error if the session is closed", func() {
				s := dial()
				s.Close()

				err := s.Publish(ctx, transport.Destination{}, eventstream.EventData{})
				Expect(err).To(Equal(transport.ErrSessionClosed))
			})
		})

		Describe("func OpenLink()", func() {
			It("returns an error if the partition does not exist", func() {
				s := dial()

				_, err := s.OpenLink(ctx, transport.LinkRequest{PartitionID: "99"})
				Expect(err).To(Equal(&transport.UnknownPartitionError{PartitionID: "99"}))
			})

			DescribeTable(
				"it honours the start position",
				func(p eventstream.Position, expect int64) {
					appendEvents(5)
					s := dial()
					l := open(s, p, 1)
					defer l.Close()

					batch, err := l.Receive(ctx)
					Expect(err).ShouldNot(HaveOccurred())
					Expect(batch).To(HaveLen(1))
					Expect(batch[0].Sequence).To(Equal(expect))
				},
				Entry("earliest", eventstream.Earliest(), int64(0)),
				Entry("inclusive sequence", eventstream.AtSequence(2, true), int64(2)),
				Entry("exclusive sequence", eventstream.AtSequence(2, false), int64(3)),
				Entry("inclusive offset", eventstream.AtOffset("82", true), int64(2)),
				Entry("exclusive offset", eventstream.AtOffset("82", false), int64(3)),
				Entry(
					"enqueued time",
					eventstream.EnqueuedAfter(time.Date(2020, 1, 1, 0, 0, 3, 0, time.UTC)),
					int64(3),
				),
			)

			It("only receives new events when starting at the latest position", func() {
				appendEvents(5)
				s := dial()
				l := open(s, eventstream.Latest(), 0)
				defer l.Close()

				appendEvents(1)

				batch, err := l.Receive(ctx)
				Expect(err).ShouldNot(HaveOccurred())
				Expect(batch).To(HaveLen(1))
				Expect(batch[0].Sequence).To(BeEquivalentTo(5))
			})

			It("returns an error if the offset is malformed", func() {
				s := dial()

				_, err := s.OpenLink(ctx, transport.LinkRequest{
					PartitionID: "0",
					Start:       eventstream.AtOffset("<malformed>", true),
				})
				Expect(err).Should(HaveOccurred())
			})
		})

		Describe("func Close()", func() {
			It("closes the session's links", func() {
				s := dial()
				l := open(s, eventstream.Earliest(), 0)
				Expect(hub.OpenLinks()).To(Equal(1))

				err := s.Close()
				Expect(err).ShouldNot(HaveOccurred())
				Expect(hub.OpenLinks()).To(Equal(0))

				_, err = l.Receive(ctx)
				Expect(err).To(Equal(transport.ErrLinkClosed))
			})

			It("returns an error if the session is already closed", func() {
				s := dial()
				s.Close()

				err := s.Close()
				Expect(err).To(Equal(transport.ErrSessionClosed))
			})
		})
	})

	Describe("type link", func() {
		Describe("func Start()", func() {
			DescribeTable(
				"it reports the sequence number resolved from the start position",
				func(p eventstream.Position, expect int64) {
					appendEvents(3)
					l := open(dial(), p, 0)
					defer l.Close()

					appendEvents(2)

					seq, ok := l.Start()
					Expect(ok).To(BeTrue())
					Expect(seq).To(Equal(expect))
				},
				Entry("earliest", eventstream.Earliest(), int64(0)),
				Entry("latest", eventstream.Latest(), int64(3)),
				Entry("inclusive sequence", eventstream.AtSequence(1, true), int64(1)),
				Entry("exclusive sequence", eventstream.AtSequence(1, false), int64(2)),
				Entry("exclusive offset", eventstream.AtOffset("41", false), int64(2)),
			)
		})

		Describe("func Receive()", func() {
			It("limits the batch size", func() {
				appendEvents(5)
				s := dial()
				l := open(s, eventstream.Earliest(), 2)
				defer l.Close()

				var sequences []int64
				for len(sequences) < 5 {
					batch, err := l.Receive(ctx)
					Expect(err).ShouldNot(HaveOccurred())
					Expect(len(batch)).To(BeNumerically("<=", 2))

					for _, ev := range batch {
						sequences = append(sequences, ev.Sequence)
					}
				}

				Expect(sequences).To(Equal([]int64{0, 1, 2, 3, 4}))
			})

			It("blocks until an event is appended", func() {
				s := dial()
				l := open(s, eventstream.Earliest(), 0)
				defer l.Close()

				go func() {
					defer GinkgoRecover()
					time.Sleep(20 * time.Millisecond)
					appendEvents(1)
				}()

				batch, err := l.Receive(ctx)
				Expect(err).ShouldNot(HaveOccurred())
				Expect(batch).To(HaveLen(1))
			})

			It("returns an error if the context is canceled while blocking", func() {
				s := dial()
				l := open(s, eventstream.Earliest(), 0)
				defer l.Close()

				ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
				defer cancel()

				_, err := l.Receive(ctx)
				Expect(err).To(Equal(context.DeadlineExceeded))
			})

			It("returns an error if the link is closed while blocking", func() {
				s := dial()
				l := open(s, eventstream.Earliest(), 0)

				go func() {
					time.Sleep(20 * time.Millisecond)
					l.Close()
				}()

				_, err := l.Receive(ctx)
				Expect(err).To(Equal(transport.ErrLinkClosed))
			})
		})

		Describe("func Close()", func() {
			It("returns an error if the link is already closed", func() {
				s := dial()
				l := open(s, eventstream.Earliest(), 0)

				err := l.Close()
				Expect(err).ShouldNot(HaveOccurred())
				Expect(hub.OpenLinks()).To(Equal(0))

				err = l.Close()
				Expect(err).To(Equal(transport.ErrLinkClosed))
				Expect(hub.OpenLinks()).To(Equal(0))
			})
		})
	})
})
