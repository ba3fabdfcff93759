package checker

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// WorkerLimiter hands out worker slots.
type WorkerLimiter interface {
	AcquireWorker(ctx context.Context) error
	ReleaseWorker()
}

// RangeTask checks the ids [from, to). last is set for the task holding the
// end of the partitioned range.
type RangeTask func(ctx context.Context, from, to int64, last bool) error

// ParallelExecution runs the tasks of a pass on a bounded number of
// goroutines. The first failing task cancels the others.
type ParallelExecution struct {
	threads int
	limiter WorkerLimiter
}

// NewParallelExecution returns an executor using threads goroutines. If
// limiter is set, every task also holds one of its worker slots.
func NewParallelExecution(threads int, limiter WorkerLimiter) *ParallelExecution {
	return &ParallelExecution{threads: max(1, threads), limiter: limiter}
}

// Threads returns the number of goroutines used for a pass.
func (p *ParallelExecution) Threads() int { return p.threads }

// Run runs tasks and returns the first error.
func (p *ParallelExecution) Run(ctx context.Context, name string, tasks ...func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.threads)
	for _, task := range tasks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s: panic: %v\n%s", name, r, debug.Stack())
				}
			}()
			if p.limiter != nil {
				if err := p.limiter.AcquireWorker(gctx); err != nil {
					return err
				}
				defer p.limiter.ReleaseWorker()
			}
			return task(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Partition splits [from, to) into one contiguous piece per thread and runs
// task on each piece.
func (p *ParallelExecution) Partition(ctx context.Context, name string, from, to int64, task RangeTask) error {
	pieces := p.pieces(from, to)
	tasks := make([]func(context.Context) error, len(pieces))
	for i, piece := range pieces {
		last := i == len(pieces)-1
		tasks[i] = func(ctx context.Context) error {
			return task(ctx, piece[0], piece[1], last)
		}
	}
	return p.Run(ctx, name, tasks...)
}

func (p *ParallelExecution) pieces(from, to int64) [][2]int64 {
	if to <= from {
		return [][2]int64{{from, from}}
	}
	n := to - from
	step := max(1, (n+int64(p.threads)-1)/int64(p.threads))
	var out [][2]int64
	for start := from; start < to; start += step {
		out = append(out, [2]int64{start, min(to, start+step)})
	}
	return out
}
