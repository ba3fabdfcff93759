package graphcheck

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/graphcheck/blobstore"
	"github.com/hupe1980/graphcheck/index"
	"github.com/hupe1980/graphcheck/internal/checker"
	"github.com/hupe1980/graphcheck/internal/nodecache"
	"github.com/hupe1980/graphcheck/internal/resource"
	"github.com/hupe1980/graphcheck/labelscan"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
	"github.com/hupe1980/graphcheck/token"
)

// ErrRunning is returned by Run while another run of the same Checker is in progress.
var ErrRunning = errors.New("consistency check already running")

const tracerName = "github.com/hupe1980/graphcheck"

// Checker checks the consistency of one graph store. A Checker may run
// several times, one run at a time.
type Checker struct {
	stores     *store.Stores
	ownsStores bool
	opts       options

	mu      sync.Mutex
	core    *checker.Checker
	closed  bool
	running sync.WaitGroup
}

// New returns a Checker for stores. The caller keeps ownership of stores.
func New(stores *store.Stores, optFns ...Option) (*Checker, error) {
	if stores == nil || stores.Nodes == nil {
		return nil, fmt.Errorf("%w: no stores", ErrInvalidConfig)
	}
	o := applyOptions(optFns)
	o.threads = max(1, o.threads)
	if o.memory.PageCache < 0 || o.memory.Heap < 0 {
		return nil, fmt.Errorf("%w: negative memory size", ErrInvalidConfig)
	}
	if o.smallIndexThreshold < 0 {
		return nil, fmt.Errorf("%w: negative small index threshold", ErrInvalidConfig)
	}
	if o.memory.Machine <= 0 {
		o.memory.Machine = resource.MachineMemory()
	}
	return &Checker{stores: stores, opts: o}, nil
}

// Open opens the store files, the schema, the indexes and, when present,
// the label scan store in bs. Options override what was loaded. Close
// closes the stores.
func Open(ctx context.Context, bs blobstore.BlobStore, optFns ...Option) (*Checker, error) {
	stores, err := store.Open(ctx, bs)
	if err != nil {
		return nil, err
	}
	c, err := open(ctx, bs, stores, optFns)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	c.ownsStores = true
	return c, nil
}

func open(ctx context.Context, bs blobstore.BlobStore, stores *store.Stores, optFns []Option) (*Checker, error) {
	schema, err := index.LoadSchema(ctx, bs)
	if err != nil {
		return nil, err
	}
	indexes, err := index.LoadAll(ctx, bs, schema)
	if err != nil {
		return nil, err
	}
	loaded := []Option{WithSchema(schema), WithIndexes(indexes...)}
	for name, with := range map[string]func(*labelscan.Store) Option{
		labelscan.FileName:         WithLabelScanStore,
		labelscan.TypeScanFileName: WithRelationshipTypeScanStore,
	} {
		scan, err := labelscan.LoadFile(ctx, bs, name)
		switch {
		case errors.Is(err, blobstore.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			loaded = append(loaded, with(scan))
		}
	}
	return New(stores, append(loaded, optFns...)...)
}

// Stores returns the checked stores.
func (c *Checker) Stores() *store.Stores { return c.stores }

// Plan describes how a run divides the node id space.
type Plan struct {
	HighNodeID         int64
	HighRelationshipID int64
	NodesPerRange      int64
	Ranges             int
	PageCache          int64
	Heap               int64
	Machine            int64
}

// Plan returns the range plan of the next run.
func (c *Checker) Plan() Plan {
	m := c.opts.memory
	l := checker.NewMemoryLimiter(m.PageCache, m.Heap, m.Machine, nodecache.RowBytes, c.stores.Nodes.HighID())
	return Plan{
		HighNodeID:         l.HighNodeID(),
		HighRelationshipID: c.stores.Relationships.HighID(),
		NodesPerRange:      l.NodesPerRange(),
		Ranges:             l.NumberOfRanges(),
		PageCache:          m.PageCache,
		Heap:               m.Heap,
		Machine:            m.Machine,
	}
}

// Run checks every node range. Inconsistencies go to the sinks and are
// counted in the returned summary; the error is reserved for failures that
// stop the run. A cancelled run returns its partial summary and ErrCancelled.
func (c *Checker) Run(ctx context.Context) (*report.Summary, error) {
	runID := uuid.NewString()
	logger := c.opts.logger.WithRun(runID)

	tokens := c.opts.tokens
	if tokens == nil {
		var err error
		if tokens, err = token.LoadAll(ctx, c.stores); err != nil {
			return nil, fmt.Errorf("load tokens: %w", err)
		}
	}
	reporter := c.opts.reporter
	if reporter == nil {
		sinks := append(slices.Clone(c.opts.sinks), metricsSink{mc: c.opts.metricsCollector})
		reporter = report.NewReporter(sinks, report.WithRunID(runID), report.WithSinkLogger(logger.Logger))
	}

	tp := c.opts.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "graphcheck.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("threads", c.opts.threads),
		attribute.Int64("high_node_id", c.stores.Nodes.HighID()),
		attribute.Int64("high_relationship_id", c.stores.Relationships.HighID()),
	))
	defer span.End()

	core, err := checker.New(checker.Config{
		Stores:              c.stores,
		Tokens:              tokens,
		Reporter:            reporter,
		LabelScan:           c.opts.labelScan,
		TypeScan:            c.opts.typeScan,
		Schema:              c.opts.schema,
		Indexes:             c.opts.indexes,
		Flags:               c.opts.flags,
		Threads:             c.opts.threads,
		Memory:              c.opts.memory,
		SmallIndexThreshold: c.opts.smallIndexThreshold,
		Resources:           c.opts.resources,
		Logger:              logger.Logger,
		Observer:            &runObserver{tracer: tracer, metrics: c.opts.metricsCollector, logger: logger},
	})
	if err != nil {
		return nil, translateError(err)
	}
	if err := c.begin(core); err != nil {
		return nil, err
	}
	defer c.end()

	start := time.Now()
	res, err := core.Run(ctx)
	summary := reporter.Summary()
	if summary.RunID == "" {
		summary.RunID = runID
	}
	summary.Counts = res.Counts
	summary.Ranges = res.Ranges
	summary.Cancelled = res.Cancelled
	summary.Duration = time.Since(start)

	err = translateError(err)
	if err == nil && res.Cancelled {
		err = ErrCancelled
	}
	span.SetAttributes(
		attribute.Int64("inconsistencies", summary.Total),
		attribute.Int("ranges", summary.Ranges),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	logger.LogRun(ctx, &summary, err)
	return &summary, err
}

func (c *Checker) begin(core *checker.Checker) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrClosed
	case c.core != nil:
		return ErrRunning
	}
	c.core = core
	c.running.Add(1)
	return nil
}

func (c *Checker) end() {
	c.mu.Lock()
	c.core = nil
	c.mu.Unlock()
	c.running.Done()
}

// Cancel stops the current run at the next record boundary. Work already
// queued is drained and the run returns ErrCancelled.
func (c *Checker) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.core != nil {
		c.core.Cancel()
	}
}
