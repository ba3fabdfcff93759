package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/graphcheck/index"
	"github.com/hupe1980/graphcheck/internal/arena"
	"github.com/hupe1980/graphcheck/internal/labelcache"
	"github.com/hupe1980/graphcheck/internal/nodecache"
	"github.com/hupe1980/graphcheck/internal/resource"
	"github.com/hupe1980/graphcheck/labelscan"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
	"github.com/hupe1980/graphcheck/token"
)

// Pass names.
const (
	PassNodes              = "nodes"
	PassRelationships      = "relationships"
	PassUnusedReferences   = "unused_relationship_references"
	PassChainForward       = "relationship_chains_forward"
	PassChainBackward      = "relationship_chains_backward"
	PassSingleRelationship = "single_relationship_chains"
)

// DefaultSmallIndexThreshold is the entry count below which an index is
// checked entity by entity.
const DefaultSmallIndexThreshold = 10_000

// ErrNoStores is returned by New without stores.
var ErrNoStores = errors.New("checker: no stores")

// Flags selects what is checked.
type Flags struct {
	CheckGraph   bool
	CheckIndexes bool
}

// DefaultFlags checks everything.
func DefaultFlags() Flags {
	return Flags{CheckGraph: true, CheckIndexes: true}
}

// Observer is told about every pass and every checked range.
type Observer interface {
	PassStarted(ctx context.Context, pass string, r Range) context.Context
	PassFinished(ctx context.Context, pass string, r Range, d time.Duration, records int64, err error)
	RangeChecked(ctx context.Context, r Range, index, total int, d time.Duration)
}

// logObserver is the Observer of a run configured without one.
type logObserver struct {
	logger *slog.Logger
}

func (o logObserver) PassStarted(ctx context.Context, pass string, r Range) context.Context {
	o.logger.DebugContext(ctx, "pass started", slog.String("pass", pass), slog.String("range", r.String()))
	return ctx
}

func (o logObserver) PassFinished(ctx context.Context, pass string, r Range, d time.Duration, records int64, err error) {
	if err != nil {
		o.logger.ErrorContext(ctx, "pass failed", slog.String("pass", pass), slog.String("range", r.String()), slog.Any("error", err))
		return
	}
	o.logger.InfoContext(ctx, "pass completed",
		slog.String("pass", pass),
		slog.String("range", r.String()),
		slog.Duration("duration", d),
		slog.Int64("records", records))
}

func (o logObserver) RangeChecked(ctx context.Context, r Range, index, total int, d time.Duration) {
	o.logger.InfoContext(ctx, "range checked",
		slog.String("range", r.String()),
		slog.Int("index", index),
		slog.Int("ranges", total),
		slog.Duration("duration", d))
}

// Memory is the resource budget of a run.
type Memory struct {
	PageCache int64
	Heap      int64
	// Machine is the total machine memory; zero or less means unknown.
	Machine int64
}

// Config holds the collaborators of a run.
type Config struct {
	Stores    *store.Stores
	Tokens    *token.Tokens
	Reporter  *report.Reporter
	LabelScan *labelscan.Store
	// TypeScan maps relationship types to relationship ids.
	TypeScan  *labelscan.Store
	Schema    *index.Schema
	Indexes   []index.Accessor

	Flags               Flags
	Threads             int
	Memory              Memory
	SmallIndexThreshold int64
	// Resources charges cache memory, bounds tasks and throttles prefetch
	// reads. Nil means unlimited.
	Resources *resource.Controller
	Logger    *slog.Logger
	Observer  Observer
}

// Result is the outcome of a run.
type Result struct {
	Counts    report.Counts
	Ranges    int
	Cancelled bool
}

// PassError is a failure of one pass on one range.
type PassError struct {
	Pass  string
	Range Range
	Err   error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("%s pass on nodes %s: %v", e.Pass, e.Range, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// Checker runs the passes over every node range.
type Checker struct {
	cfg       Config
	limiter   *MemoryLimiter
	execution *ParallelExecution
	cancel    *Cancellation
	logger    *slog.Logger
	counts    *counts

	cache  *nodecache.Cache
	labels *labelcache.DynamicNodeLabelsCache

	mandatoryNodes, mandatoryRelationships map[int32][]int32
	nodeIndexes, relationshipIndexes       []index.Accessor

	highNodeID, highRelationshipID int64
}

// New prepares a run. It does not allocate the caches yet.
func New(cfg Config) (*Checker, error) {
	if cfg.Stores == nil || cfg.Stores.Nodes == nil {
		return nil, ErrNoStores
	}
	if cfg.Reporter == nil {
		cfg.Reporter = report.NewReporter(nil)
	}
	if cfg.Tokens == nil {
		cfg.Tokens = &token.Tokens{}
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.SmallIndexThreshold <= 0 {
		cfg.SmallIndexThreshold = DefaultSmallIndexThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Observer == nil {
		cfg.Observer = logObserver{logger: logger}
	}
	var workers WorkerLimiter
	if cfg.Resources != nil {
		workers = cfg.Resources
	}
	c := &Checker{
		cfg:                    cfg,
		execution:              NewParallelExecution(cfg.Threads, workers),
		cancel:                 &Cancellation{},
		logger:                 logger,
		counts:                 newCounts(),
		mandatoryNodes:         cfg.Schema.MandatoryKeys(index.Node),
		mandatoryRelationships: cfg.Schema.MandatoryKeys(index.Relationship),
		nodeIndexes:            smallIndexes(cfg.Indexes, index.Node, cfg.SmallIndexThreshold),
		relationshipIndexes:    smallIndexes(cfg.Indexes, index.Relationship, cfg.SmallIndexThreshold),
		highNodeID:             cfg.Stores.Nodes.HighID(),
		highRelationshipID:     cfg.Stores.Relationships.HighID(),
	}
	c.limiter = NewMemoryLimiter(cfg.Memory.PageCache, cfg.Memory.Heap, cfg.Memory.Machine, nodecache.RowBytes, c.highNodeID)
	return c, nil
}

// Limiter returns the range plan of the run.
func (c *Checker) Limiter() *MemoryLimiter { return c.limiter }

// Cancel stops the run at the next record boundary.
func (c *Checker) Cancel() { c.cancel.Cancel() }

// Run checks every range. Inconsistencies go to the reporter; the returned
// error is a store, resource or context failure.
func (c *Checker) Run(ctx context.Context) (Result, error) {
	stop := c.cancel.Bind(ctx)
	defer stop()

	var err error
	if c.cache, err = nodecache.New(c.limiter.NodesPerRange(), c.memory()); err != nil {
		return Result{}, err
	}
	defer func() { _ = c.cache.Close() }()
	if c.labels, err = labelcache.New(arena.DefaultChunkSize, c.memory()); err != nil {
		return Result{}, err
	}
	defer c.labels.Close()

	c.logger.Info("consistency check started",
		slog.Int64("high_node_id", c.highNodeID),
		slog.Int64("high_relationship_id", c.highRelationshipID),
		slog.Int("ranges", c.limiter.NumberOfRanges()),
		slog.Int64("nodes_per_range", c.limiter.NodesPerRange()),
		slog.Int("threads", c.cfg.Threads))

	res := Result{}
	total := c.limiter.NumberOfRanges()
	for r := range c.limiter.Ranges() {
		if c.cancel.Cancelled() {
			break
		}
		start := time.Now()
		if err := c.checkRange(ctx, r); err != nil {
			return c.result(res), err
		}
		if c.cancel.Cancelled() {
			break
		}
		res.Ranges++
		c.logger.DebugContext(ctx, "dynamic label cache", slog.Any("labels", c.labels))
		c.cfg.Observer.RangeChecked(ctx, r, res.Ranges, total, time.Since(start))
	}
	return c.result(res), nil
}

func (c *Checker) result(res Result) Result {
	res.Counts = c.counts.snapshot()
	res.Cancelled = c.cancel.Cancelled()
	return res
}

// memory returns the cache memory acquirer, or nil.
func (c *Checker) memory() *resource.Controller {
	return c.cfg.Resources
}

func (c *Checker) checkRange(ctx context.Context, r Range) error {
	c.cache.Clear()
	if err := c.labels.Clear(); err != nil {
		return err
	}
	flags := c.cfg.Flags
	graph := flags.CheckGraph
	if graph || (flags.CheckIndexes && len(c.nodeIndexes) > 0) || c.cfg.LabelScan != nil {
		if err := c.pass(ctx, PassNodes, r, c.checkNodes); err != nil {
			return err
		}
	}
	if graph || (flags.CheckIndexes && (len(c.relationshipIndexes) > 0 || c.cfg.TypeScan != nil)) {
		if err := c.pass(ctx, PassRelationships, r, c.checkRelationships); err != nil {
			return err
		}
	}
	if graph {
		if err := c.pass(ctx, PassUnusedReferences, r, c.checkUnusedReferences); err != nil {
			return err
		}
		for _, p := range []struct {
			name string
			fn   func(context.Context, Range) (int64, error)
		}{
			{PassChainForward, c.chainPass(store.Forward)},
			{PassSingleRelationship, c.checkSingleRelationshipChains},
			{PassChainBackward, c.chainPass(store.Backward)},
		} {
			if err := c.pass(ctx, p.name, r, p.fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Checker) pass(ctx context.Context, name string, r Range, fn func(context.Context, Range) (int64, error)) error {
	if c.cancel.Cancelled() {
		return nil
	}
	ctx = c.cfg.Observer.PassStarted(ctx, name, r)
	start := time.Now()
	records, err := fn(ctx, r)
	if err != nil && c.cancel.Cancelled() && errors.Is(err, context.Canceled) {
		err = nil
	}
	c.cfg.Observer.PassFinished(ctx, name, r, time.Since(start), records, err)
	if err != nil {
		return &PassError{Pass: name, Range: r, Err: err}
	}
	return nil
}
