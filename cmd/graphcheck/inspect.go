package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/graphcheck"
	"github.com/hupe1980/graphcheck/internal/config"
	"github.com/hupe1980/graphcheck/internal/resource"
)

func newInspectCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <location>",
		Short: "Print store high ids and the range plan of a check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sizes, err := loadConfig(v, args[0])
			if err != nil {
				return err
			}
			return runInspect(cmd.Context(), cmd.OutOrStdout(), cfg, sizes)
		},
	}
}

func runInspect(ctx context.Context, out io.Writer, cfg config.Config, sizes config.Sizes) error {
	rc := resource.NewController(resource.Config{})
	bs, err := openStoreLocation(ctx, cfg, sizes, rc)
	if err != nil {
		return err
	}
	chk, err := graphcheck.Open(ctx, bs,
		graphcheck.WithThreads(cfg.Threads),
		graphcheck.WithMemory(sizes.PageCache, sizes.Heap, sizes.MachineMemory),
	)
	if err != nil {
		return err
	}
	defer chk.Close()

	fmt.Fprintf(out, "store %s\n", cfg.Location)
	high := chk.Stores().HighIDs()
	for _, name := range slices.Sorted(maps.Keys(high)) {
		fmt.Fprintf(out, "  %-40s %s\n", name, humanize.Comma(high[name]))
	}

	plan := chk.Plan()
	fmt.Fprintln(out, "plan")
	fmt.Fprintf(out, "  %-40s %s\n", "page cache", humanize.IBytes(uint64(plan.PageCache)))
	fmt.Fprintf(out, "  %-40s %s\n", "heap", humanize.IBytes(uint64(plan.Heap)))
	fmt.Fprintf(out, "  %-40s %s\n", "machine memory", humanize.IBytes(uint64(plan.Machine)))
	fmt.Fprintf(out, "  %-40s %s\n", "nodes per range", humanize.Comma(plan.NodesPerRange))
	fmt.Fprintf(out, "  %-40s %d\n", "ranges", plan.Ranges)
	return nil
}
