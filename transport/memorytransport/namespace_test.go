package memorytransport_test

import (
	"context"

	"github.com/dogmatiq/eventhub/transport"
	. "github.com/dogmatiq/eventhub/transport/memorytransport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Namespace", func() {
	var ns *Namespace

	BeforeEach(func() {
		ns = &Namespace{}
		ns.Add(
			&Hub{Name: "<hub-b>"},
			&Hub{Name: "<hub-a>"},
		)
	})

	Describe("func Add()", func() {
		It("panics if the hub is unnamed", func() {
			Expect(func() {
				ns.Add(&Hub{})
			}).To(PanicWith("hub name must not be empty"))
		})

		It("panics if the name is already in use", func() {
			Expect(func() {
				ns.Add(&Hub{Name: "<hub-a>"})
			}).To(PanicWith(`namespace already contains a hub named "<hub-a>"`))
		})
	})

	Describe("func Names()", func() {
		It("returns the sorted hub names", func() {
			Expect(ns.Names()).To(Equal([]string{"<hub-a>", "<hub-b>"}))
		})
	})

	Describe("func Dial()", func() {
		It("dials the named hub", func() {
			s, err := ns.Dial(
				context.Background(),
				transport.Endpoint{Hub: "<hub-a>"},
				transport.Credentials{},
			)
			Expect(err).ShouldNot(HaveOccurred())
			defer s.Close()

			h, _ := ns.Hub("<hub-a>")
			Expect(h.OpenSessions()).To(Equal(1))
		})

		It("returns an error if the hub does not exist", func() {
			_, err := ns.Dial(
				context.Background(),
				transport.Endpoint{Hub: "<unknown>"},
				transport.Credentials{},
			)
			Expect(err).To(Equal(transport.ErrUnknownHub))
		})
	})
})
