package checkpointtest

import (
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/eventhub/checkpoint"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// Out is a container for values that are provided by the store-specific
// "before" function to the test-suite.
type Out struct {
	// Store is the checkpoint store to be tested.
	Store checkpoint.Store

	// TestTimeout is the maximum duration allowed for each test.
	TestTimeout time.Duration
}

// DefaultTestTimeout is the default test timeout.
const DefaultTestTimeout = 3 * time.Second

// Declare declares generic behavioral tests for a specific checkpoint store
// implementation.
func Declare(
	before func(context.Context) Out,
	after func(),
) {
	var (
		ctx    context.Context
		cancel func()
		out    Out

		key = checkpoint.Key{
			Hub:           "<hub>",
			ConsumerGroup: "<group>",
			PartitionID:   "0",
		}

		updatedAt = time.Date(2020, 4, 1, 12, 30, 45, 123456789, time.UTC)
	)

	ginkgo.BeforeEach(func() {
		setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelSetup()

		out = before(setupCtx)

		if out.TestTimeout <= 0 {
			out.TestTimeout = DefaultTestTimeout
		}

		ctx, cancel = context.WithTimeout(context.Background(), out.TestTimeout)
	})

	ginkgo.AfterEach(func() {
		if after != nil {
			after()
		}

		if cancel != nil {
			cancel()
		}
	})

	ginkgo.Describe("type Store", func() {
		ginkgo.Describe("func Load()", func() {
			ginkgo.It("returns false if there is no checkpoint", func() {
				_, ok, err := out.Store.Load(ctx, key)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("returns the saved checkpoint", func() {
				cp := checkpoint.Checkpoint{
					Offset:    "<offset>",
					Sequence:  123,
					UpdatedAt: updatedAt,
				}

				err := out.Store.Save(ctx, key, cp)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				loaded, ok, err := out.Store.Load(ctx, key)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(loaded.Offset).To(gomega.Equal(cp.Offset))
				gomega.Expect(loaded.Sequence).To(gomega.Equal(cp.Sequence))
				gomega.Expect(loaded.UpdatedAt.Equal(cp.UpdatedAt)).To(gomega.BeTrue())
			})

			ginkgo.It("does not return checkpoints saved for other keys", func() {
				others := []checkpoint.Key{
					{Hub: "<other>", ConsumerGroup: key.ConsumerGroup, PartitionID: key.PartitionID},
					{Hub: key.Hub, ConsumerGroup: "<other>", PartitionID: key.PartitionID},
					{Hub: key.Hub, ConsumerGroup: key.ConsumerGroup, PartitionID: "1"},
				}

				for _, k := range others {
					err := out.Store.Save(ctx, k, checkpoint.Checkpoint{Offset: "<offset>", Sequence: 1})
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				}

				_, ok, err := out.Store.Load(ctx, key)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("returns an error if the context is canceled", func() {
				cancel()

				_, _, err := out.Store.Load(ctx, key)
				gomega.Expect(err).To(gomega.Equal(context.Canceled))
			})
		})

		ginkgo.Describe("func Save()", func() {
			ginkgo.It("replaces an existing checkpoint", func() {
				err := out.Store.Save(ctx, key, checkpoint.Checkpoint{Offset: "<offset-1>", Sequence: 1, UpdatedAt: updatedAt})
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = out.Store.Save(ctx, key, checkpoint.Checkpoint{Offset: "<offset-2>", Sequence: 2, UpdatedAt: updatedAt})
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				loaded, ok, err := out.Store.Load(ctx, key)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(loaded.Offset).To(gomega.BeEquivalentTo("<offset-2>"))
				gomega.Expect(loaded.Sequence).To(gomega.BeEquivalentTo(2))
			})

			ginkgo.It("can be called concurrently for different partitions", func() {
				var g sync.WaitGroup

				for _, id := range []string{"0", "1", "2", "3"} {
					k := key
					k.PartitionID = id

					g.Add(1)
					go func() {
						defer ginkgo.GinkgoRecover()
						defer g.Done()

						for seq := int64(0); seq < 10; seq++ {
							err := out.Store.Save(ctx, k, checkpoint.Checkpoint{Offset: "<offset>", Sequence: seq})
							gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
						}
					}()
				}

				g.Wait()

				for _, id := range []string{"0", "1", "2", "3"} {
					k := key
					k.PartitionID = id

					loaded, ok, err := out.Store.Load(ctx, k)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					gomega.Expect(ok).To(gomega.BeTrue())
					gomega.Expect(loaded.Sequence).To(gomega.BeEquivalentTo(9))
				}
			})

			ginkgo.It("returns an error if the context is canceled", func() {
				cancel()

				err := out.Store.Save(ctx, key, checkpoint.Checkpoint{})
				gomega.Expect(err).To(gomega.Equal(context.Canceled))
			})
		})
	})
}
