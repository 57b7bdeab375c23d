package loggingx_test

import (
	. "github.com/dogmatiq/eventhub/internal/x/loggingx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("func Zap()", func() {
	It("writes messages at the info level", func() {
		core, logs := observer.New(zapcore.InfoLevel)
		logger := Zap(zap.New(core))

		logger.Log("<message %d>", 1)
		logger.LogString("<message 2>")
		logger.Debug("<debug %d>", 3)

		Expect(logger.IsDebug()).To(BeFalse())

		entries := logs.AllUntimed()
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Message).To(Equal("<message 1>"))
		Expect(entries[0].Level).To(Equal(zapcore.InfoLevel))
		Expect(entries[1].Message).To(Equal("<message 2>"))
	})

	It("writes debug messages when the debug level is enabled", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := Zap(zap.New(core))

		logger.Debug("<debug %d>", 1)
		logger.DebugString("<debug 2>")

		Expect(logger.IsDebug()).To(BeTrue())

		entries := logs.AllUntimed()
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Message).To(Equal("<debug 1>"))
		Expect(entries[0].Level).To(Equal(zapcore.DebugLevel))
	})
})
