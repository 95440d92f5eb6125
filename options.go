package annidx

import (
	"log/slog"

	"github.com/hupe1980/annidx/hnsw"
	"github.com/hupe1980/annidx/ivf"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	seed             *int64
	hnswOptFns       []func(*hnsw.Options)
	ivfOptFns        []func(*ivf.Options)
}

// Option configures NewHNSW and NewIVF.
type Option func(*options)

// WithMetricsCollector configures the metrics collector for operations.
// Pass nil to disable metrics.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := annidx.NewJSONLogger(slog.LevelInfo)
//	idx, _ := annidx.NewHNSW(128, 16, 200, annidx.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithSeed makes level sampling (HNSW) and random centroid initialization (IVF) reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// WithHNSW passes engine options through to hnsw.New.
// They are applied after the facade's own settings.
func WithHNSW(optFns ...func(*hnsw.Options)) Option {
	return func(o *options) {
		o.hnswOptFns = append(o.hnswOptFns, optFns...)
	}
}

// WithIVF passes engine options through to ivf.New.
// They are applied after the facade's own settings.
func WithIVF(optFns ...func(*ivf.Options)) Option {
	return func(o *options) {
		o.ivfOptFns = append(o.ivfOptFns, optFns...)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
