package checker

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/graphcheck/internal/nodecache"
	"github.com/hupe1980/graphcheck/store"
)

// QueueCapacity is the number of batches that may wait for one chain worker.
const QueueCapacity = 20

// ChainWorkers returns the number of chain workers for threads goroutines:
// one goroutine is left to the producer and one to the prefetcher.
func ChainWorkers(threads int) int {
	return max(1, threads-2)
}

// partition returns the worker owning node.
func partition(node int64, workers int) int {
	if node < 0 {
		node = -node
	}
	return int(node % int64(workers))
}

func (c *Checker) chainPass(dir store.Direction) func(context.Context, Range) (int64, error) {
	return func(ctx context.Context, r Range) (int64, error) {
		return c.checkChains(ctx, r, dir)
	}
}

// checkChains verifies the chain pointers of all relationships touching r.
// A single producer scans the whole relationship store in dir and hands the
// relationships to the workers owning their endpoints. Forward scans check
// pointers to lower ids, backward scans pointers to higher ids.
func (c *Checker) checkChains(ctx context.Context, r Range, dir store.Direction) (int64, error) {
	c.cache.Clear()
	rels := c.cfg.Stores.Relationships
	if rels.HighID() == 0 || r.Size() == 0 {
		return 0, nil
	}
	workers := ChainWorkers(c.cfg.Threads)
	queues := make([]chan *RelationshipBatch, workers)
	for i := range queues {
		queues[i] = make(chan *RelationshipBatch, QueueCapacity)
	}

	g, gctx := errgroup.WithContext(ctx)

	startPage := int64(0)
	if dir == store.Backward {
		startPage = rels.PageOf(rels.HighID() - 1)
	}
	cur := rels.OpenCursor(startPage)
	var opts []store.PrefetchOption
	if c.cfg.Resources != nil {
		opts = append(opts, store.WithIOLimiter(c.cfg.Resources))
	}
	prefetcher := store.NewPrefetcher(rels, cur, dir, opts...)
	prefetchCtx, stopPrefetch := context.WithCancel(gctx)
	defer stopPrefetch()
	g.Go(func() error { return prefetcher.Run(prefetchCtx) })

	var records atomic.Int64
	g.Go(func() error {
		defer stopPrefetch()
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		n, err := c.produce(gctx, r, dir, cur, queues)
		records.Add(n)
		return err
	})
	for i := range workers {
		w := &chainWorker{c: c, r: r, dir: dir, id: i, workers: workers}
		g.Go(func() error { return w.run(gctx, queues[i]) })
	}
	err := g.Wait()
	return records.Load(), err
}

func (c *Checker) produce(ctx context.Context, r Range, dir store.Direction, cur *store.Cursor[store.Relationship], queues []chan *RelationshipBatch) (int64, error) {
	workers := len(queues)
	batches := make([]*RelationshipBatch, workers)
	send := func(w int) error {
		b := batches[w]
		batches[w] = nil
		select {
		case queues[w] <- b:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	add := func(w int, rel *store.Relationship) error {
		if batches[w] == nil {
			batches[w] = newRelationshipBatch()
		}
		batches[w].Add(rel)
		if batches[w].Full() {
			return send(w)
		}
		return nil
	}

	high := c.cfg.Stores.Relationships.HighID()
	id, step, end := int64(0), int64(1), high
	if dir == store.Backward {
		id, step, end = high-1, -1, -1
	}
	var records int64
	for ; id != end && !c.cancel.Cancelled(); id += step {
		rel, err := cur.Get(ctx, id, store.LoadCheck)
		if err != nil {
			return records, err
		}
		records++
		if !rel.InUse {
			continue
		}
		first := -1
		if r.Contains(rel.FirstNode) {
			first = partition(rel.FirstNode, workers)
			if err := add(first, &rel); err != nil {
				return records, err
			}
		}
		if r.Contains(rel.SecondNode) {
			if w := partition(rel.SecondNode, workers); w != first {
				if err := add(w, &rel); err != nil {
					return records, err
				}
			}
		}
	}
	for w, b := range batches {
		if b != nil && b.Len() > 0 {
			if err := send(w); err != nil {
				return records, err
			}
		}
	}
	return records, nil
}

// chainWorker checks the chains of the nodes of its partition. It is the
// only writer of their cache rows.
type chainWorker struct {
	c       *Checker
	r       Range
	dir     store.Direction
	id      int
	workers int
}

func (w *chainWorker) run(ctx context.Context, q <-chan *RelationshipBatch) error {
	var rel store.Relationship
	for {
		select {
		case b, ok := <-q:
			if !ok {
				return nil
			}
			// Batches are drained even after cancellation so the producer never blocks.
			for b.Next(&rel) && !w.c.cancel.Cancelled() {
				if err := w.check(ctx, &rel); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *chainWorker) owns(node int64) bool {
	return w.r.Contains(node) && partition(node, w.workers) == w.id
}

func (w *chainWorker) check(ctx context.Context, rel *store.Relationship) error {
	source, target := w.owns(rel.FirstNode), w.owns(rel.SecondNode)
	if source && target && rel.FirstNode == rel.SecondNode {
		return w.checkNode(ctx, rel, rel.FirstNode, true, true)
	}
	if source {
		if err := w.checkNode(ctx, rel, rel.FirstNode, true, false); err != nil {
			return err
		}
	}
	if target {
		return w.checkNode(ctx, rel, rel.SecondNode, false, true)
	}
	return nil
}

// checkNode checks the links of rel on node's chain and makes rel the
// node's cached relationship.
func (w *chainWorker) checkNode(ctx context.Context, rel *store.Relationship, node int64, source, target bool) error {
	off := node - w.r.From
	wasInUse := w.c.cache.Link(off).InUse
	for _, side := range [2]struct{ on, target bool }{{source, false}, {target, true}} {
		if !side.on {
			continue
		}
		for _, l := range linksOf(side.target) {
			if err := w.checkLink(ctx, l, rel, off); err != nil {
				return err
			}
		}
		w.cacheLink(off, rel, side.target, wasInUse)
	}
	return nil
}

func (w *chainWorker) checkLink(ctx context.Context, l *RelationshipLink, rel *store.Relationship, off int64) error {
	if l.EndOfChain(rel) {
		return nil
	}
	target := l.Pointer(rel)
	if (w.dir == store.Forward && target > rel.ID) || (w.dir == store.Backward && target <= rel.ID) {
		return nil
	}
	rep := w.c.cfg.Reporter.Relationship(rel.ID)
	row := w.c.cache.Link(off)
	if !row.InUse {
		l.DoesNotReferenceBack(rep, target)
		return nil
	}
	// The row holds the opposite pointer of the last relationship seen on
	// the node; a prev of a first-in-chain relationship is its degree.
	if row.RelationshipID == target && row.PrevOrNext != l.next && (row.PrevOrNext || !row.FirstInChain) {
		if row.Reference != rel.ID {
			l.DoesNotReferenceBack(rep, target)
		}
		return nil
	}
	other, err := w.c.cfg.Stores.Relationships.Get(ctx, target, store.LoadCheck)
	if err != nil {
		return err
	}
	l.Check(rep, rel, &other)
	return nil
}

// cacheLink stores the pointer of rel that the next relationship in scan
// order will want to see: prev when scanning forward, next when backward.
func (w *chainWorker) cacheLink(off int64, rel *store.Relationship, target, wasInUse bool) {
	s := sideOf(rel, target)
	ref := s.prev
	if w.dir == store.Backward {
		ref = s.next
	}
	w.c.cache.PutLink(off, nodecache.LinkRow{
		InUse:          true,
		SourceOrTarget: target,
		PrevOrNext:     w.dir == store.Backward,
		FirstInChain:   s.first,
		HasMultiple:    wasInUse,
		RelationshipID: rel.ID,
		Reference:      ref,
	})
}

// checkSingleRelationshipChains runs after the forward scan. A node touched
// by exactly one relationship must be its chain's only member: first in
// chain with degree 1, or at least a prev pointer the link checks followed.
func (c *Checker) checkSingleRelationshipChains(ctx context.Context, r Range) (int64, error) {
	var records atomic.Int64
	err := c.execution.Partition(ctx, PassSingleRelationship, r.From, r.To, func(ctx context.Context, from, to int64, _ bool) error {
		for id := from; id < to && !c.cancel.Cancelled(); id++ {
			records.Add(1)
			row := c.cache.Link(id - r.From)
			if !row.InUse || row.HasMultiple || singleChainOK(row.FirstInChain, row.Reference) {
				continue
			}
			rel, err := c.cfg.Stores.Relationships.Get(ctx, row.RelationshipID, store.LoadCheck)
			if err != nil {
				return err
			}
			s := sideOf(&rel, row.SourceOrTarget)
			if !rel.InUse || s.node != id || singleChainOK(s.first, s.prev) {
				continue
			}
			link := SourcePrev
			if row.SourceOrTarget {
				link = TargetPrev
			}
			link.DoesNotReferenceBack(c.cfg.Reporter.Relationship(rel.ID), s.prev)
		}
		return nil
	})
	return records.Load(), err
}

// SingleChainDegree is the prev field of a relationship alone in its chain.
const SingleChainDegree = 1

// singleChainOK reports whether the prev field of the only relationship of a
// node is consistent. A first-in-chain relationship holds the degree, which
// may be left unset as NULL; otherwise prev must point somewhere.
func singleChainOK(first bool, prev int64) bool {
	if first {
		return prev == SingleChainDegree || prev == store.Null
	}
	return prev != store.Null
}
