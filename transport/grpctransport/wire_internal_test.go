package grpctransport

import (
	"time"

	"github.com/dogmatiq/eventhub/eventstream"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/protobuf/encoding/protowire"
)

var _ = Describe("type codec", func() {
	It("preserves all event fields", func() {
		in := &batch{
			Events: []eventstream.Event{
				{
					Payload:      []byte("<payload>"),
					Offset:       "128",
					Sequence:     3,
					EnqueuedAt:   time.Unix(0, 1_600_000_000_123_456_789),
					PartitionKey: "<key>",
					Properties:   map[string]string{"<a>": "<1>", "<b>": ""},
				},
			},
		}

		data, err := codec{}.Marshal(in)
		Expect(err).ShouldNot(HaveOccurred())

		out := &batch{}
		err = codec{}.Unmarshal(data, out)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(out.Events).To(HaveLen(1))
		ev := out.Events[0]
		Expect(ev.Payload).To(Equal(in.Events[0].Payload))
		Expect(ev.Offset).To(Equal(in.Events[0].Offset))
		Expect(ev.Sequence).To(Equal(in.Events[0].Sequence))
		Expect(ev.EnqueuedAt.Equal(in.Events[0].EnqueuedAt)).To(BeTrue())
		Expect(ev.PartitionKey).To(Equal(in.Events[0].PartitionKey))
		Expect(ev.Properties).To(Equal(in.Events[0].Properties))
	})

	It("preserves the start position of a receive request", func() {
		in := &receiveRequest{
			LinkName:      "<link>",
			ConsumerGroup: "<group>",
			PartitionID:   "2",
			Start:         eventstream.AtOffset("41", true),
			MaxBatchSize:  10,
		}

		out := &receiveRequest{}
		err := out.unmarshal(in.marshal(nil))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(out).To(Equal(in))
	})

	It("ignores unknown fields", func() {
		data := (&describeResponse{PartitionIDs: []string{"0"}}).marshal(nil)
		data = protowire.AppendTag(data, 99, protowire.VarintType)
		data = protowire.AppendVarint(data, 123)

		out := &describeResponse{}
		err := codec{}.Unmarshal(data, out)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(out.PartitionIDs).To(Equal([]string{"0"}))
	})

	It("returns an error if the data is malformed", func() {
		out := &batch{}
		err := codec{}.Unmarshal([]byte{0x0a, 0xff}, out)
		Expect(err).Should(HaveOccurred())
	})

	It("returns an error when marshaling an unsupported type", func() {
		_, err := codec{}.Marshal("<string>")
		Expect(err).To(MatchError("can not marshal string"))
	})
})
