package engine

import (
	"log/slog"

	"github.com/born-ml/blitz/internal/parallel"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	par           parallel.Config
	logger        *slog.Logger
	vendor        any
	deviceThreads int
	contexts      int
}

func defaultOptions() *options {
	return &options{
		par:    parallel.DefaultConfig(),
		logger: slog.Default(),
	}
}

// WithWorkers sets the host worker count. n <= 1 disables host fan-out.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.par.NumWorkers = n
		o.par.Enabled = n > 1
	}
}

// WithParallel replaces the host fan-out configuration.
func WithParallel(cfg parallel.Config) Option {
	return func(o *options) {
		o.par = cfg
	}
}

// WithLogger sets the logger. Per-call records are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithVendor registers a vendor convolution capability, a conv.Vendor of
// the engine's element type. Only the accelerator uses it.
func WithVendor(vendor any) Option {
	return func(o *options) {
		o.vendor = vendor
	}
}

// WithDeviceThreads sets the accelerator's device thread count.
func WithDeviceThreads(n int) Option {
	return func(o *options) {
		o.deviceThreads = n
	}
}

// WithContexts sets the coprocessor's worker context count.
func WithContexts(n int) Option {
	return func(o *options) {
		o.contexts = n
	}
}
