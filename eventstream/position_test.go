package eventstream_test

import (
	"time"

	. "github.com/dogmatiq/eventhub/eventstream"
	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("type Position", func() {
	ginkgo.It("is equivalent to Earliest() when zero", func() {
		Expect(Position{}).To(Equal(Earliest()))
	})

	ginkgo.Describe("func AtSequence()", func() {
		ginkgo.It("panics if the sequence number is negative", func() {
			Expect(func() {
				AtSequence(-1, true)
			}).To(PanicWith("sequence number must not be negative"))
		})
	})

	ginkgo.DescribeTable(
		"func String()",
		func(p Position, expect string) {
			Expect(p.String()).To(Equal(expect))
		},
		ginkgo.Entry("earliest", Earliest(), "earliest"),
		ginkgo.Entry("latest", Latest(), "latest"),
		ginkgo.Entry("offset", AtOffset("128", true), "offset 128 (inclusive)"),
		ginkgo.Entry("sequence", AtSequence(3, false), "sequence 3 (exclusive)"),
		ginkgo.Entry(
			"enqueued time",
			EnqueuedAfter(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)),
			"enqueued after 2020-01-02T03:04:05Z",
		),
	)
})
