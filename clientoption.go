package eventhub

import (
	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub/checkpoint"
	"github.com/dogmatiq/eventhub/transport"
	"github.com/dogmatiq/eventhub/transport/grpctransport"
	"github.com/dogmatiq/linger/backoff"
)

var (
	// DefaultDialer is the default dialer used to establish sessions.
	//
	// It is overridden by the WithDialer() option.
	DefaultDialer transport.Dialer = &grpctransport.Dialer{}

	// DefaultLogger is the default target for log messages produced by the
	// client and its receivers.
	//
	// It is overridden by the WithLogger() option.
	DefaultLogger = logging.DefaultLogger
)

// ClientOption configures the behavior of a client.
type ClientOption func(*clientOptions)

// WithDialer returns a client option that sets the dialer used to establish a
// session with the event hub.
//
// If this option is omitted or d is nil, DefaultDialer is used.
func WithDialer(d transport.Dialer) ClientOption {
	return func(opts *clientOptions) {
		opts.Dialer = d
	}
}

// WithLogger returns a client option that sets the target for log messages.
//
// If this option is omitted or l is nil, DefaultLogger is used.
func WithLogger(l logging.Logger) ClientOption {
	return func(opts *clientOptions) {
		opts.Logger = l
	}
}

// WithBackoff returns a client option that sets the strategy receivers use to
// delay reconnecting after a failure.
//
// If this option is omitted or s is nil, receiver.DefaultBackoff is used.
func WithBackoff(s backoff.Strategy) ClientOption {
	return func(opts *clientOptions) {
		opts.Backoff = s
	}
}

// WithMaxConsecutiveFailures returns a client option that sets the number of
// consecutive transport failures after which a receiver closes itself.
//
// If this option is omitted or n is zero,
// receiver.DefaultMaxConsecutiveFailures is used.
func WithMaxConsecutiveFailures(n int) ClientOption {
	if n < 0 {
		panic("max consecutive failures must not be negative")
	}

	return func(opts *clientOptions) {
		opts.MaxConsecutiveFailures = n
	}
}

// WithMaxBatchSize returns a client option that sets the maximum number of
// events that receivers deliver to their handlers at once.
//
// If this option is omitted or n is zero, receiver.DefaultMaxBatchSize is
// used.
func WithMaxBatchSize(n int) ClientOption {
	if n < 0 {
		panic("max batch size must not be negative")
	}

	return func(opts *clientOptions) {
		opts.MaxBatchSize = n
	}
}

// WithCheckpointStore returns a client option that makes receivers persist
// their positions in s.
//
// Receivers resume from the persisted checkpoint, if any, instead of their
// start position.
func WithCheckpointStore(s checkpoint.Store) ClientOption {
	return func(opts *clientOptions) {
		opts.Checkpoints = s
	}
}

// WithConcurrencyLimit returns a client option that limits the number of
// handler calls that run concurrently across all of the client's receivers.
//
// If this option is omitted or n is zero, there is no limit.
func WithConcurrencyLimit(n uint) ClientOption {
	return func(opts *clientOptions) {
		opts.ConcurrencyLimit = n
	}
}

// clientOptions is a container for a fully-resolved set of client options.
type clientOptions struct {
	Dialer                 transport.Dialer
	Logger                 logging.Logger
	Backoff                backoff.Strategy
	MaxConsecutiveFailures int
	MaxBatchSize           int
	Checkpoints            checkpoint.Store
	ConcurrencyLimit       uint
}

// resolveClientOptions returns a fully-populated set of client options built
// from the given set of option functions.
func resolveClientOptions(options ...ClientOption) *clientOptions {
	opts := &clientOptions{}

	for _, o := range options {
		o(opts)
	}

	if opts.Dialer == nil {
		opts.Dialer = DefaultDialer
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	return opts
}
