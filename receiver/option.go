package receiver

import (
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventhub/checkpoint"
	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var (
	// DefaultMaxConsecutiveFailures is the default number of consecutive
	// transport failures after which a receiver gives up.
	DefaultMaxConsecutiveFailures = 5

	// DefaultMaxBatchSize is the default maximum number of events delivered
	// to a handler in a single batch.
	DefaultMaxBatchSize = 100

	// DefaultBackoff is the default strategy used to delay reconnecting after
	// a failure.
	DefaultBackoff backoff.Strategy = backoff.WithTransforms(
		backoff.Exponential(100*time.Millisecond),
		linger.FullJitter,
		linger.Limiter(0, 30*time.Second),
	)
)

// Option configures the behavior of a receiver.
type Option func(*options)

// WithLogger returns an option that sets the target for log messages.
//
// If this option is omitted or l is nil, logging.DefaultLogger is used.
func WithLogger(l logging.Logger) Option {
	return func(opts *options) {
		opts.Logger = l
	}
}

// WithBackoff returns an option that sets the strategy used to delay
// reconnecting after a failure.
//
// If this option is omitted or s is nil, DefaultBackoff is used.
func WithBackoff(s backoff.Strategy) Option {
	return func(opts *options) {
		opts.Backoff = s
	}
}

// WithMaxConsecutiveFailures returns an option that sets the number of
// consecutive transport failures after which the receiver closes itself.
//
// If this option is omitted or n is zero, DefaultMaxConsecutiveFailures is
// used.
func WithMaxConsecutiveFailures(n int) Option {
	if n < 0 {
		panic("max consecutive failures must not be negative")
	}

	return func(opts *options) {
		opts.MaxConsecutiveFailures = n
	}
}

// WithMaxBatchSize returns an option that sets the maximum number of events
// delivered to the handler at once.
//
// If this option is omitted or n is zero, DefaultMaxBatchSize is used.
func WithMaxBatchSize(n int) Option {
	if n < 0 {
		panic("max batch size must not be negative")
	}

	return func(opts *options) {
		opts.MaxBatchSize = n
	}
}

// WithCheckpointStore returns an option that persists the receiver's position
// in s after each batch is handled.
//
// hub is the name of the event hub, used to build the checkpoint key. If a
// checkpoint already exists, the receiver resumes after it, regardless of the
// start position.
func WithCheckpointStore(s checkpoint.Store, hub string) Option {
	return func(opts *options) {
		opts.Checkpoints = s
		opts.Hub = hub
	}
}

// WithSemaphore returns an option that limits the number of concurrent calls
// to HandleEvents() across all receivers that share s.
func WithSemaphore(s *semaphore.Weighted) Option {
	return func(opts *options) {
		opts.Semaphore = s
	}
}

// WithLinkName returns an option that sets the name used for the receiver's
// transport links.
//
// If this option is omitted, a random UUID is used.
func WithLinkName(n string) Option {
	return func(opts *options) {
		opts.LinkName = n
	}
}

// WithCloseHook returns an option that sets a function that is called once
// the receiver is closed, whether by Close() or because of a fatal error.
//
// fn must not call Close().
func WithCloseHook(fn func(*Receiver)) Option {
	return func(opts *options) {
		opts.CloseHook = fn
	}
}

type options struct {
	Logger                 logging.Logger
	Backoff                backoff.Strategy
	MaxConsecutiveFailures int
	MaxBatchSize           int
	Checkpoints            checkpoint.Store
	Hub                    string
	Semaphore              *semaphore.Weighted
	LinkName               string
	CloseHook              func(*Receiver)
}

func resolveOptions(opts []Option) options {
	var o options

	for _, opt := range opts {
		opt(&o)
	}

	if o.Logger == nil {
		o.Logger = logging.DefaultLogger
	}

	if o.Backoff == nil {
		o.Backoff = DefaultBackoff
	}

	if o.MaxConsecutiveFailures == 0 {
		o.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}

	if o.MaxBatchSize == 0 {
		o.MaxBatchSize = DefaultMaxBatchSize
	}

	if o.LinkName == "" {
		o.LinkName = uuid.NewString()
	}

	return o
}
