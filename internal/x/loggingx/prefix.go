package loggingx

import (
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
)

// WithPrefix returns a logger that writes to target, starting each message
// with the prefix produced by formatting f with v.
//
// Messages are formatted before the prefix is added, so the prefix may contain
// '%' characters. Prefixing an already prefixed logger appends to its prefix
// rather than wrapping it again.
func WithPrefix(target logging.Logger, f string, v ...interface{}) logging.Logger {
	prefix := fmt.Sprintf(f, v...)

	if p, ok := target.(prefixed); ok {
		p.prefix += prefix
		return p
	}

	return prefixed{target, prefix}
}

type prefixed struct {
	target logging.Logger
	prefix string
}

func (p prefixed) Log(f string, v ...interface{}) {
	p.LogString(fmt.Sprintf(f, v...))
}

func (p prefixed) LogString(s string) {
	p.target.LogString(p.prefix + s)
}

func (p prefixed) Debug(f string, v ...interface{}) {
	if p.target.IsDebug() {
		p.DebugString(fmt.Sprintf(f, v...))
	}
}

func (p prefixed) DebugString(s string) {
	p.target.DebugString(p.prefix + s)
}

func (p prefixed) IsDebug() bool {
	return p.target.IsDebug()
}
