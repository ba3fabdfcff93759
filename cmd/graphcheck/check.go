package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/hupe1980/graphcheck"
	"github.com/hupe1980/graphcheck/internal/config"
	"github.com/hupe1980/graphcheck/internal/resource"
	"github.com/hupe1980/graphcheck/report"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <location>",
		Short: "Check a store for inconsistencies",
		Long: `Check the node, relationship, property and label index records of the
store at <location> and report every inconsistency found.

<location> is a directory, s3://bucket/prefix or minio://endpoint/bucket/prefix.
The exit status is 0 for a consistent store, 1 when inconsistencies were
found and 2 when the check could not complete.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sizes, err := loadConfig(v, args[0])
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, sizes)
		},
	}

	f := cmd.Flags()
	f.Int("threads", 0, "Number of checker threads (default: number of CPUs)")
	f.Bool("check-graph", true, "Check node, relationship and property records")
	f.Bool("check-indexes", true, "Check the label scan store and small indexes")
	f.Int64("small-index-threshold", 10_000, "Indexes with fewer entries are checked entry by entry")
	f.String("memory-limit", "", "Hard limit for off-heap checker caches")
	f.String("io-limit", "", "Store read throughput limit per second")
	f.String("report", "", "Write inconsistencies as JSON lines; a .zst or .lz4 suffix compresses")
	f.String("report-sqlite", "", "Write inconsistencies into a SQLite database")
	bindFlags(v, f, map[string]string{
		"threads":               "threads",
		"check_graph":           "check-graph",
		"check_indexes":         "check-indexes",
		"small_index_threshold": "small-index-threshold",
		"memory_limit":          "memory-limit",
		"io_limit":              "io-limit",
		"report":                "report",
		"report_sqlite":         "report-sqlite",
	})
	return cmd
}

func runCheck(ctx context.Context, out, logOut io.Writer, cfg config.Config, sizes config.Sizes) error {
	logger := newLogger(cfg, logOut)

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes: sizes.MemoryLimit,
		MaxWorkers:       int64(cfg.Threads),
	})
	bs, err := openStoreLocation(ctx, cfg, sizes, rc)
	if err != nil {
		return err
	}

	sinks, err := openSinks(ctx, cfg, logger.Logger)
	if err != nil {
		return err
	}

	chk, err := graphcheck.Open(ctx, bs,
		graphcheck.WithThreads(cfg.Threads),
		graphcheck.WithFlags(graphcheck.Flags{CheckGraph: cfg.CheckGraph, CheckIndexes: cfg.CheckIndexes}),
		graphcheck.WithMemory(sizes.PageCache, sizes.Heap, sizes.MachineMemory),
		graphcheck.WithSmallIndexThreshold(cfg.SmallIndexThreshold),
		graphcheck.WithLogger(logger),
		graphcheck.WithSinks(sinks...),
		graphcheck.WithResourceController(rc),
		graphcheck.WithTracerProvider(otel.GetTracerProvider()),
	)
	if err != nil {
		return errors.Join(err, closeSinks(sinks))
	}

	plan := chk.Plan()
	fmt.Fprintf(out, "checking %s: %s nodes, %s relationships, %d range(s) of %s nodes\n",
		cfg.Location,
		humanize.Comma(plan.HighNodeID),
		humanize.Comma(plan.HighRelationshipID),
		plan.Ranges,
		humanize.Comma(plan.NodesPerRange))

	summary, runErr := chk.Run(ctx)
	closeErr := chk.Close()
	if summary != nil {
		fmt.Fprintln(out, summary)
		if peak := rc.PeakMemoryUsage(); peak > 0 {
			fmt.Fprintf(out, "peak cache memory: %s\n", humanize.IBytes(uint64(peak)))
		}
	}
	if err := errors.Join(runErr, closeErr); err != nil {
		return err
	}
	if !summary.Consistent() {
		return fmt.Errorf("%w: %d errors, %d warnings",
			errInconsistent, summary.Total-summary.Warnings, summary.Warnings)
	}
	return nil
}

// openSinks opens the report outputs named by cfg. Inconsistencies are
// also logged at debug level.
func openSinks(ctx context.Context, cfg config.Config, logger *slog.Logger) ([]report.Sink, error) {
	var sinks []report.Sink
	fail := func(err error) ([]report.Sink, error) {
		return nil, errors.Join(err, closeSinks(sinks))
	}

	if cfg.Report != "" {
		l, err := parseLocation(cfg.Report)
		if err != nil {
			return fail(err)
		}
		dir, name := l.split()
		bs, err := dir.open(ctx, cfg.Remote)
		if err != nil {
			return fail(fmt.Errorf("open report location: %w", err))
		}
		s, err := report.CreateJSONLSink(ctx, bs, name)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if cfg.ReportSQLite != "" {
		s, err := report.NewSQLiteSink(ctx, cfg.ReportSQLite)
		if err != nil {
			return fail(fmt.Errorf("open sqlite report: %w", err))
		}
		sinks = append(sinks, s)
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		sinks = append(sinks, report.NewSlogSink(logger))
	}
	return sinks, nil
}

func closeSinks(sinks []report.Sink) error {
	var errs []error
	for _, s := range sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
