package rail

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ib-77/framerail/internal/logging"
)

const (
	DefaultQueueDepth = 2
	MaxQueueDepth     = 64
	maxLines          = 64
)

type OptionKey string

const (
	QueueOptionKey OptionKey = "rail_queue_options"
	DrainOptionKey OptionKey = "rail_drain_options"
)

type QueueOptions struct {
	Depth int
}

type DrainOptions struct {
	Drain bool
}

// WithQueueDepthContext carries a queue depth for Start calls that do not
// set WithQueueDepth.
func WithQueueDepthContext(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, QueueOptionKey, QueueOptions{Depth: depth})
}

// WithDrainContext carries the shutdown drain policy for Start calls that do
// not set WithDrain.
func WithDrainContext(ctx context.Context, drain bool) context.Context {
	return context.WithValue(ctx, DrainOptionKey, DrainOptions{Drain: drain})
}

func GetQueueDepth(ctx context.Context, defaultDepth int) int {
	options, ok := ctx.Value(QueueOptionKey).(QueueOptions)
	if ok {
		return options.Depth
	}
	return defaultDepth
}

func IsDrainEnabled(ctx context.Context, defaultDrain bool) bool {
	options, ok := ctx.Value(DrainOptionKey).(DrainOptions)
	if ok {
		return options.Drain
	}
	return defaultDrain
}

type options struct {
	depth      int
	depthSet   bool
	drain      bool
	drainSet   bool
	registerer prometheus.Registerer
	logger     *slog.Logger
	runID      uuid.UUID
}

// Option configures Start.
type Option func(*options)

// WithQueueDepth sets the capacity of every inter-stage queue (1..64).
func WithQueueDepth(depth int) Option {
	return func(o *options) {
		o.depth = depth
		o.depthSet = true
	}
}

// WithDrain chooses whether Stop processes frames already queued (true, the
// default) or discards them.
func WithDrain(drain bool) Option {
	return func(o *options) {
		o.drain = drain
		o.drainSet = true
	}
}

// WithRegisterer registers the engine's Prometheus collectors on r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRunID fixes the run id stamped on tokens instead of a random one.
func WithRunID(id uuid.UUID) Option {
	return func(o *options) { o.runID = id }
}

func resolveOptions(ctx context.Context, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if !o.depthSet {
		o.depth = GetQueueDepth(ctx, DefaultQueueDepth)
	}
	if !o.drainSet {
		o.drain = IsDrainEnabled(ctx, true)
	}
	if o.logger == nil {
		o.logger = logging.New("rail")
	}
	if o.runID == uuid.Nil {
		o.runID = uuid.New()
	}
	return o
}
