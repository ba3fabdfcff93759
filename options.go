package graphcheck

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/graphcheck/index"
	"github.com/hupe1980/graphcheck/internal/checker"
	"github.com/hupe1980/graphcheck/internal/resource"
	"github.com/hupe1980/graphcheck/labelscan"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/token"
)

type options struct {
	threads             int
	flags               checker.Flags
	memory              checker.Memory
	smallIndexThreshold int64
	metricsCollector    MetricsCollector
	logger              *Logger
	sinks               []report.Sink
	reporter            *report.Reporter
	tokens              *token.Tokens
	schema              *index.Schema
	indexes             []index.Accessor
	labelScan           *labelscan.Store
	typeScan            *labelscan.Store
	resources           *resource.Controller
	tracerProvider      trace.TracerProvider
}

// Option configures a Checker.
type Option func(*options)

// Flags selects the checks of a run.
type Flags = checker.Flags

// DefaultFlags enables the graph and the index checks.
func DefaultFlags() Flags { return checker.DefaultFlags() }

// WithThreads sets the number of goroutines checking records. Chain checks
// use all but two of them as workers. Values below 1 mean 1.
func WithThreads(n int) Option {
	return func(o *options) {
		o.threads = n
	}
}

// WithFlags selects the checks to run.
func WithFlags(f Flags) Option {
	return func(o *options) {
		o.flags = f
	}
}

// WithMemory describes the memory of the machine. The node cache gets what
// the page cache and the heap leave over; a machine size of zero is detected.
//
// Example:
//
//	gc, _ := graphcheck.New(stores, graphcheck.WithMemory(4<<30, 1<<30, 0))
func WithMemory(pageCache, heap, machine int64) Option {
	return func(o *options) {
		o.memory = checker.Memory{PageCache: pageCache, Heap: heap, Machine: machine}
	}
}

// WithSmallIndexThreshold sets the size below which an index is checked
// entry by entry.
func WithSmallIndexThreshold(n int64) Option {
	return func(o *options) {
		o.smallIndexThreshold = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &graphcheck.BasicMetricsCollector{}
//	gc, _ := graphcheck.New(stores, graphcheck.WithMetricsCollector(metrics))
//	// ... run ...
//	stats := metrics.GetStats()
//	fmt.Printf("Passes: %d, Records: %d\n", stats.PassCount, stats.Records)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for runs.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := graphcheck.NewJSONLogger(slog.LevelInfo)
//	gc, _ := graphcheck.New(stores, graphcheck.WithLogger(logger))
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

// WithSinks adds destinations for the inconsistencies of every run. The
// Checker closes them on Close.
func WithSinks(sinks ...report.Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, sinks...)
	}
}

// WithReporter makes every run report to r instead of a reporter built from
// the sinks. The caller keeps ownership of r.
func WithReporter(r *report.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithTokens sets the token tables. By default they are loaded from the
// token stores on every run.
func WithTokens(t *token.Tokens) Option {
	return func(o *options) {
		o.tokens = t
	}
}

// WithSchema sets the existence constraints and index descriptors.
func WithSchema(s *index.Schema) Option {
	return func(o *options) {
		o.schema = s
	}
}

// WithIndexes sets the indexes checked for compliance.
func WithIndexes(indexes ...index.Accessor) Option {
	return func(o *options) {
		o.indexes = indexes
	}
}

// WithLabelScanStore compares nodes against a label scan store.
func WithLabelScanStore(s *labelscan.Store) Option {
	return func(o *options) {
		o.labelScan = s
	}
}

// WithRelationshipTypeScanStore compares relationships against a
// relationship type scan store, keyed by relationship id.
func WithRelationshipTypeScanStore(s *labelscan.Store) Option {
	return func(o *options) {
		o.typeScan = s
	}
}

// WithResourceController charges cache memory to rc, bounds concurrent
// tasks by its worker limit and throttles prefetch reads.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithTracerProvider traces runs and passes with tp. The global provider is
// used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		threads:          1,
		flags:            checker.DefaultFlags(),
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
