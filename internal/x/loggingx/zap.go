package loggingx

import (
	"github.com/dogmatiq/dodeca/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap returns a logger that writes to a zap logger.
//
// Messages are written at the info level, debug messages at the debug level.
func Zap(l *zap.Logger) logging.Logger {
	return &zapLogger{
		target: l.WithOptions(zap.AddCallerSkip(1)).Sugar(),
		debug:  l.Core().Enabled(zapcore.DebugLevel),
	}
}

type zapLogger struct {
	target *zap.SugaredLogger
	debug  bool
}

func (z *zapLogger) Log(f string, v ...interface{}) {
	z.target.Infof(f, v...)
}

func (z *zapLogger) LogString(s string) {
	z.target.Info(s)
}

func (z *zapLogger) Debug(f string, v ...interface{}) {
	z.target.Debugf(f, v...)
}

func (z *zapLogger) DebugString(s string) {
	z.target.Debug(s)
}

func (z *zapLogger) IsDebug() bool {
	return z.debug
}
