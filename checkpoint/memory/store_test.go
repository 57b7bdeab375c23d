package memory_test

import (
	"context"

	"github.com/dogmatiq/eventhub/checkpoint/internal/checkpointtest"
	. "github.com/dogmatiq/eventhub/checkpoint/memory"
	"github.com/onsi/ginkgo/v2"
)

var _ = ginkgo.Describe("type Store", func() {
	checkpointtest.Declare(
		func(ctx context.Context) checkpointtest.Out {
			return checkpointtest.Out{
				Store: &Store{},
			}
		},
		nil,
	)
})
