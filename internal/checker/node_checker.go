package checker

import (
	"context"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/hupe1980/graphcheck/index"
	"github.com/hupe1980/graphcheck/internal/nodecache"
	"github.com/hupe1980/graphcheck/labelscan"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
)

// checkNodes checks the nodes of r and fills the node cache for the
// relationship passes.
func (c *Checker) checkNodes(ctx context.Context, r Range) (int64, error) {
	var records atomic.Int64
	err := c.execution.Partition(ctx, PassNodes, r.From, r.To, func(ctx context.Context, from, to int64, last bool) error {
		t := newNodeTask(c, r, last && r.Last)
		defer c.counts.merge(t.counter)
		n, err := t.run(ctx, from, to)
		records.Add(n)
		return err
	})
	return records.Load(), err
}

type nodeTask struct {
	c       *Checker
	r       Range
	toEnd   bool
	props   *propertyChainReader
	labels  *dynamicChainReader
	schema  *schemaCompliance
	values  map[int32]store.Value
	counter *counter
	buf     []int32
}

func newNodeTask(c *Checker, r Range, toEnd bool) *nodeTask {
	return &nodeTask{
		c:       c,
		r:       r,
		toEnd:   toEnd,
		props:   newPropertyChainReader(c),
		labels:  newDynamicChainReader(c.cfg.Stores.NodeLabels, report.EntityNodeLabel, c.cfg.Reporter),
		schema:  newSchemaCompliance(c.mandatoryNodes, c.nodeIndexes),
		values:  make(map[int32]store.Value),
		counter: newCounter(),
	}
}

func (t *nodeTask) run(ctx context.Context, from, to int64) (int64, error) {
	c := t.c
	flags := c.cfg.Flags
	nodes := c.cfg.Stores.Nodes
	end := to
	if t.toEnd {
		end = labelscan.Unbounded
	}
	var scan *labelScanWalker
	if flags.CheckIndexes && c.cfg.LabelScan != nil {
		scan = newLabelScanWalker(c.cfg.LabelScan.AllNodeLabelRanges(from, end))
		defer scan.close()
	}

	cur := nodes.OpenCursor(nodes.PageOf(max(0, from)))
	var records int64
	for id := from; id < to && !c.cancel.Cancelled(); id++ {
		node, err := cur.Get(ctx, id, store.LoadCheck)
		if err != nil {
			return records, err
		}
		records++
		scanRange, indexed := scan.at(id)
		if !node.InUse {
			if len(indexed) > 0 {
				c.cfg.Reporter.LabelScan(scanRange.ID).NodeNotInUse(id)
			}
			continue
		}
		t.counter.nodes++
		if err := t.check(ctx, &node, scanRange, indexed); err != nil {
			return records, err
		}
	}
	if c.cancel.Cancelled() {
		return records, nil
	}
	if t.toEnd {
		scan.rest(to, func(rng *labelscan.NodeLabelRange, node int64) {
			c.cfg.Reporter.LabelScan(rng.ID).NodeNotInUse(node)
		})
	}
	if flags.CheckIndexes {
		t.checkIndexEntries(from, end)
	}
	return records, nil
}

func (t *nodeTask) check(ctx context.Context, node *store.Node, scanRange *labelscan.NodeLabelRange, indexed []int32) error {
	c := t.c
	graph := c.cfg.Flags.CheckGraph
	rep := c.cfg.Reporter.Node(node.ID)

	raw, err := t.readLabels(ctx, node, rep)
	if err != nil {
		return err
	}
	labels, fixed := normalizeLabels(rep, raw, graph)
	if graph {
		for _, l := range labels {
			switch {
			case l < 0:
				rep.IllegalLabel(int64(l))
			case !c.cfg.Tokens.Labels.Valid(l):
				rep.LabelNotInUse(int64(l))
			}
		}
	}
	if c.cfg.LabelScan != nil && c.cfg.Flags.CheckIndexes {
		rangeID := node.ID / labelscan.RangeSize
		if scanRange != nil {
			rangeID = scanRange.ID
		}
		compareTokens(index.MatchComplete, labels, indexed,
			func(l int32) { rep.LabelNotInIndex(int64(l)) },
			func(l int32) { c.cfg.Reporter.LabelScan(rangeID).NodeDoesNotHaveExpectedLabel(node.ID, l) })
	}

	if graph || len(t.schema.indexes) > 0 {
		ok, err := t.props.read(ctx, rep.EntityReport, node.NextProp, t.values)
		if err != nil {
			return err
		}
		if ok {
			t.schema.checkExistence(rep.EntityReport, labels, t.values)
			if c.cfg.Flags.CheckIndexes {
				t.schema.checkIndexed(rep.EntityReport, node.ID, labels, t.values)
			}
		}
	}

	row, err := t.nodeRow(ctx, node, rep, graph)
	if err != nil {
		return err
	}
	if err := t.encodeLabels(&row, node, labels, fixed); err != nil {
		return err
	}
	c.cache.PutNode(node.ID-t.r.From, row)
	return nil
}

// readLabels returns the labels of node as stored, or nil if they cannot be read.
func (t *nodeTask) readLabels(ctx context.Context, node *store.Node, rep report.NodeReport) ([]int32, error) {
	if !node.Labels.IsDynamic() {
		return node.Labels.InlineLabels(t.buf[:0]), nil
	}
	first := node.Labels.DynamicID()
	payload, ok, err := t.labels.read(ctx, first, chainCallbacks{
		firstNotInUse: rep.DynamicLabelRecordNotInUse,
		cycle:         rep.DynamicRecordChainCycle,
	})
	if err != nil || !ok {
		return nil, err
	}
	owner, labels, err := store.DecodeNodeLabels(payload)
	if err != nil {
		t.c.cfg.Reporter.Dynamic(report.EntityNodeLabel, first).InvalidLength(len(payload))
		return nil, nil
	}
	if owner != node.ID {
		rep.DynamicLabelRecordOwnerMismatch(first, owner)
	}
	return labels, nil
}

// normalizeLabels returns labels sorted and without duplicates, reporting an
// unsorted list once and every duplicated label once. fixed tells whether the
// result differs from the stored list.
func normalizeLabels(rep report.NodeReport, labels []int32, emit bool) (out []int32, fixed bool) {
	for i := 1; i < len(labels); i++ {
		if labels[i] < labels[i-1] {
			if emit {
				rep.LabelsOutOfOrder(int64(slices.Max(labels[:i])), int64(labels[i]))
			}
			fixed = true
			break
		}
	}
	out = slices.Clone(labels)
	slices.Sort(out)
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] && (i < 2 || out[i-2] != out[i]) {
			if emit {
				rep.LabelDuplicate(int64(out[i]))
			}
			fixed = true
		}
	}
	return slices.Compact(out), fixed
}

// nodeRow validates the relationship (or group) pointer of node. A pointer
// beyond the store is reported and cached as NULL.
func (t *nodeTask) nodeRow(ctx context.Context, node *store.Node, rep report.NodeReport, graph bool) (nodecache.NodeRow, error) {
	s := t.c.cfg.Stores
	row := nodecache.NodeRow{InUse: true, Dense: node.Dense, NextRel: node.NextRel}
	if row.NextRel == store.Null {
		return row, nil
	}
	if node.Dense {
		if row.NextRel < 0 || row.NextRel >= s.Groups.HighID() {
			if graph {
				rep.RelationshipGroupNotInUse(row.NextRel)
			}
			row.NextRel = store.Null
			return row, nil
		}
		g, err := s.Groups.Get(ctx, row.NextRel, store.LoadCheck)
		if err != nil {
			return row, err
		}
		row.CheckMark = !g.InUse || g.OwningNode != node.ID
		return row, nil
	}
	if row.NextRel < 0 || row.NextRel >= t.c.highRelationshipID {
		if graph {
			rep.RelationshipNotInUse(row.NextRel)
		}
		row.NextRel = store.Null
		return row, nil
	}
	row.CheckMark = true
	return row, nil
}

func (t *nodeTask) encodeLabels(row *nodecache.NodeRow, node *store.Node, labels []int32, fixed bool) error {
	switch {
	case len(labels) == 0:
		row.Encoding = nodecache.LabelsNone
	case len(labels) == 1:
		row.Encoding, row.Labels = nodecache.LabelsSingle, uint64(uint32(labels[0]))
	case !node.Labels.IsDynamic() && !fixed:
		row.Encoding, row.Labels = nodecache.LabelsInline, uint64(node.Labels)
	default:
		off, err := t.c.labels.Put(labels)
		if err != nil {
			return err
		}
		row.Encoding, row.Labels = nodecache.LabelsDynamic, off
	}
	return nil
}

// cachedLabels appends the sorted labels held in a node row to dst.
func (c *Checker) cachedLabels(row nodecache.NodeRow, dst []int32) []int32 {
	switch row.Encoding {
	case nodecache.LabelsSingle:
		return append(dst, int32(uint32(row.Labels)))
	case nodecache.LabelsInline:
		return store.LabelField(row.Labels).InlineLabels(dst)
	case nodecache.LabelsDynamic:
		return c.labels.Get(row.Labels, dst)
	}
	return dst
}

// checkIndexEntries scans the entries of small node indexes in [from, end)
// and checks them against the node cache.
func (t *nodeTask) checkIndexEntries(from, end int64) {
	c := t.c
	for _, idx := range c.nodeIndexes {
		desc := idx.Descriptor()
		for id := range idx.AllEntries(from, end) {
			if c.cancel.Cancelled() {
				return
			}
			rep := c.cfg.Reporter.IndexEntry(desc.ID, id)
			if !t.r.Contains(id) || !c.cache.InUse(id-t.r.From) {
				rep.NodeNotInUse()
				continue
			}
			t.buf = c.cachedLabels(c.cache.Node(id-t.r.From), t.buf[:0])
			if desc.Matches(t.buf) {
				continue
			}
			for _, want := range desc.Tokens {
				if !slices.Contains(t.buf, want) {
					rep.NodeDoesNotHaveExpectedLabel(want)
					if desc.Match == index.MatchPartialAny {
						break
					}
				}
			}
		}
	}
}

// labelScanWalker steps through label scan ranges in node id order.
type labelScanWalker struct {
	next func() (*labelscan.NodeLabelRange, bool)
	stop func()
	cur  *labelscan.NodeLabelRange
}

func newLabelScanWalker(ranges iter.Seq[*labelscan.NodeLabelRange]) *labelScanWalker {
	next, stop := iter.Pull(ranges)
	w := &labelScanWalker{next: next, stop: stop}
	w.cur, _ = next()
	return w
}

// at returns the range covering id and the labels it holds for id.
func (w *labelScanWalker) at(id int64) (*labelscan.NodeLabelRange, []int32) {
	if w == nil {
		return nil, nil
	}
	for w.cur != nil && w.cur.From()+labelscan.RangeSize <= id {
		w.cur, _ = w.next()
	}
	if w.cur == nil || w.cur.From() > id {
		return nil, nil
	}
	return w.cur, w.cur.Labels(id)
}

// rest calls fn for every labelled node from id on.
func (w *labelScanWalker) rest(id int64, fn func(*labelscan.NodeLabelRange, int64)) {
	if w == nil {
		return
	}
	for ; w.cur != nil; w.cur, _ = w.next() {
		for _, n := range w.cur.Nodes() {
			if n >= id {
				fn(w.cur, n)
			}
		}
	}
}

func (w *labelScanWalker) close() {
	if w != nil {
		w.stop()
	}
}
