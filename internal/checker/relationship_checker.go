package checker

import (
	"context"
	"sync/atomic"

	"github.com/hupe1980/graphcheck/index"
	"github.com/hupe1980/graphcheck/labelscan"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
)

// endpointReports are the report calls of one relationship endpoint.
type endpointReports struct {
	illegal              func(report.RelationshipReport)
	notInUse             func(report.RelationshipReport, int64)
	doesNotReferenceBack func(report.RelationshipReport, int64)
	hasNoRelationships   func(report.RelationshipReport, int64)
	notFirstInChain      func(report.NodeReport, int64)
}

var (
	sourceEndpoint = endpointReports{
		illegal:              report.RelationshipReport.IllegalSourceNode,
		notInUse:             report.RelationshipReport.SourceNodeNotInUse,
		doesNotReferenceBack: report.RelationshipReport.SourceNodeDoesNotReferenceBack,
		hasNoRelationships:   report.RelationshipReport.SourceNodeHasNoRelationships,
		notFirstInChain:      report.NodeReport.RelationshipNotFirstInSourceChain,
	}
	targetEndpoint = endpointReports{
		illegal:              report.RelationshipReport.IllegalTargetNode,
		notInUse:             report.RelationshipReport.TargetNodeNotInUse,
		doesNotReferenceBack: report.RelationshipReport.TargetNodeDoesNotReferenceBack,
		hasNoRelationships:   report.RelationshipReport.TargetNodeHasNoRelationships,
		notFirstInChain:      report.NodeReport.RelationshipNotFirstInTargetChain,
	}
)

// checkRelationships checks every relationship against the nodes of r. The
// first range also checks what does not depend on nodes.
func (c *Checker) checkRelationships(ctx context.Context, r Range) (int64, error) {
	var records atomic.Int64
	err := c.execution.Partition(ctx, PassRelationships, 0, c.highRelationshipID, func(ctx context.Context, from, to int64, last bool) error {
		t := newRelationshipTask(c, r, last)
		defer c.counts.merge(t.counter)
		n, err := t.run(ctx, from, to)
		records.Add(n)
		return err
	})
	if err != nil {
		return records.Load(), err
	}
	if r.First && c.cfg.Flags.CheckIndexes && !c.cancel.Cancelled() {
		if err := c.checkRelationshipIndexEntries(ctx); err != nil {
			return records.Load(), err
		}
	}
	return records.Load(), nil
}

type relationshipTask struct {
	c       *Checker
	r       Range
	toEnd   bool
	props   *propertyChainReader
	schema  *schemaCompliance
	values  map[int32]store.Value
	counter *counter
}

func newRelationshipTask(c *Checker, r Range, toEnd bool) *relationshipTask {
	return &relationshipTask{
		c:       c,
		r:       r,
		toEnd:   toEnd,
		props:   newPropertyChainReader(c),
		schema:  newSchemaCompliance(c.mandatoryRelationships, c.relationshipIndexes),
		values:  make(map[int32]store.Value),
		counter: newCounter(),
	}
}

func (t *relationshipTask) run(ctx context.Context, from, to int64) (int64, error) {
	c := t.c
	graph := c.cfg.Flags.CheckGraph
	rels := c.cfg.Stores.Relationships
	// The type scan is compared once, on the first node range. The last
	// piece reads it to the end so entries beyond the store are reported.
	var scan *labelScanWalker
	if t.r.First && c.cfg.Flags.CheckIndexes && c.cfg.TypeScan != nil {
		end := to
		if t.toEnd {
			end = labelscan.Unbounded
		}
		scan = newLabelScanWalker(c.cfg.TypeScan.AllNodeLabelRanges(from, end))
		defer scan.close()
	}

	cur := rels.OpenCursor(rels.PageOf(from))
	var records int64
	for id := from; id < to && !c.cancel.Cancelled(); id++ {
		rel, err := cur.Get(ctx, id, store.LoadCheck)
		if err != nil {
			return records, err
		}
		records++
		scanRange, indexed := scan.at(id)
		if !rel.InUse {
			if len(indexed) > 0 {
				c.cfg.Reporter.TypeScan(scanRange.ID).RelationshipNotInUse(id)
			}
			continue
		}
		if scan != nil {
			t.checkTypeScan(&rel, scanRange, indexed)
		}
		sourceInRange := t.r.Contains(rel.FirstNode)
		targetInRange := t.r.Contains(rel.SecondNode)
		if graph {
			if sourceInRange || (rel.FirstNode < 0 && t.r.First) {
				if err := t.checkVsNode(ctx, &rel, rel.FirstNode, rel.FirstInFirstChain, sourceEndpoint); err != nil {
					return records, err
				}
			}
			if targetInRange || (rel.SecondNode < 0 && t.r.First) {
				if err := t.checkVsNode(ctx, &rel, rel.SecondNode, rel.FirstInSecondChain, targetEndpoint); err != nil {
					return records, err
				}
			}
		}
		if t.r.First {
			if err := t.checkOnce(ctx, &rel); err != nil {
				return records, err
			}
		}
		if sourceInRange {
			t.counter.startNodes++
		}
		if targetInRange {
			t.counter.endNodes++
		}
	}
	if t.toEnd && !c.cancel.Cancelled() {
		scan.rest(to, func(rng *labelscan.NodeLabelRange, rel int64) {
			c.cfg.Reporter.TypeScan(rng.ID).RelationshipNotInUse(rel)
		})
	}
	return records, nil
}

// checkTypeScan compares the type of rel with the types the scan store
// holds for it.
func (t *relationshipTask) checkTypeScan(rel *store.Relationship, scanRange *labelscan.NodeLabelRange, indexed []int32) {
	rep := t.c.cfg.Reporter
	rangeID := rel.ID / labelscan.RangeSize
	if scanRange != nil {
		rangeID = scanRange.ID
	}
	var types []int32
	if rel.Type >= 0 {
		types = []int32{rel.Type}
	}
	compareTokens(index.MatchComplete, types, indexed,
		func(typ int32) { rep.Relationship(rel.ID).RelationshipTypeNotInIndex(int64(typ)) },
		func(typ int32) { rep.TypeScan(rangeID).RelationshipDoesNotHaveExpectedType(rel.ID, typ) })
}

// checkOnce runs the checks that do not depend on the node range.
func (t *relationshipTask) checkOnce(ctx context.Context, rel *store.Relationship) error {
	c := t.c
	rep := c.cfg.Reporter.Relationship(rel.ID)
	if c.cfg.Flags.CheckGraph {
		if rel.FirstNode >= c.highNodeID {
			rep.SourceNodeNotInUse(rel.FirstNode)
		}
		if rel.SecondNode >= c.highNodeID {
			rep.TargetNodeNotInUse(rel.SecondNode)
		}
	}

	tokens := []int32{rel.Type}
	if c.cfg.Flags.CheckGraph || len(t.schema.indexes) > 0 {
		ok, err := t.props.read(ctx, rep.EntityReport, rel.NextProp, t.values)
		if err != nil {
			return err
		}
		if ok {
			t.schema.checkExistence(rep.EntityReport, tokens, t.values)
			if c.cfg.Flags.CheckIndexes {
				t.schema.checkIndexed(rep.EntityReport, rel.ID, tokens, t.values)
			}
		}
	}

	if c.cfg.Flags.CheckGraph {
		switch {
		case rel.Type < 0:
			rep.IllegalRelationshipType()
		case !c.cfg.Tokens.RelationshipTypes.Valid(rel.Type):
			rep.RelationshipTypeNotInUse(int64(rel.Type))
		}
	}
	t.counter.relationships++
	t.counter.byType[rel.Type]++
	return nil
}

// checkVsNode checks one endpoint against the cached node. A sparse node
// must point at the relationship that claims to be first in its chain.
func (t *relationshipTask) checkVsNode(ctx context.Context, rel *store.Relationship, node int64, firstInChain bool, e endpointReports) error {
	c := t.c
	rep := c.cfg.Reporter.Relationship(rel.ID)
	if node < 0 {
		e.illegal(rep)
		return nil
	}
	off := node - t.r.From
	row := c.cache.Node(off)
	switch {
	case !row.InUse:
		e.notInUse(rep, node)
		return nil
	case row.NextRel == store.Null:
		e.hasNoRelationships(rep, node)
		return nil
	case row.Dense:
		return nil
	}

	if firstInChain {
		if row.NextRel != rel.ID {
			e.doesNotReferenceBack(rep, node)
			actual, err := c.cfg.Stores.Relationships.Get(ctx, row.NextRel, store.LoadCheck)
			if err != nil {
				return err
			}
			nodeRep := c.cfg.Reporter.Node(node)
			switch {
			case !actual.InUse:
				nodeRep.RelationshipNotInUse(row.NextRel)
			case actual.FirstNode != node && actual.SecondNode != node:
				nodeRep.RelationshipForOtherNode(row.NextRel)
			}
		}
		c.cache.ClearCheckMark(off)
	} else if row.NextRel == rel.ID {
		e.notFirstInChain(c.cfg.Reporter.Node(node), rel.ID)
	}
	return nil
}

// checkUnusedReferences reports nodes of r whose first relationship or group
// never referenced them back.
func (c *Checker) checkUnusedReferences(ctx context.Context, r Range) (int64, error) {
	var records atomic.Int64
	err := c.execution.Partition(ctx, PassUnusedReferences, r.From, r.To, func(ctx context.Context, from, to int64, _ bool) error {
		s := c.cfg.Stores
		for id := from; id < to && !c.cancel.Cancelled(); id++ {
			records.Add(1)
			row := c.cache.Node(id - r.From)
			if !row.InUse || !row.CheckMark || row.NextRel == store.Null {
				continue
			}
			rep := c.cfg.Reporter.Node(id)
			if !row.Dense {
				rel, err := s.Relationships.Get(ctx, row.NextRel, store.LoadCheck)
				if err != nil {
					return err
				}
				if !rel.InUse {
					rep.RelationshipNotInUse(row.NextRel)
				} else {
					rep.RelationshipForOtherNode(row.NextRel)
				}
				continue
			}
			g, err := s.Groups.Get(ctx, row.NextRel, store.LoadCheck)
			if err != nil {
				return err
			}
			if !g.InUse {
				rep.RelationshipGroupNotInUse(row.NextRel)
			} else if g.OwningNode != id {
				rep.RelationshipGroupHasOtherOwner(row.NextRel)
			}
		}
		return nil
	})
	return records.Load(), err
}

// checkRelationshipIndexEntries checks every entry of the small relationship
// indexes against the relationship store.
func (c *Checker) checkRelationshipIndexEntries(ctx context.Context) error {
	rels := c.cfg.Stores.Relationships
	for _, idx := range c.relationshipIndexes {
		desc := idx.Descriptor()
		for id := range idx.AllEntries(0, labelscan.Unbounded) {
			if c.cancel.Cancelled() {
				return nil
			}
			rel, err := rels.Get(ctx, id, store.LoadCheck)
			if err != nil {
				return err
			}
			rep := c.cfg.Reporter.IndexEntry(desc.ID, id)
			if !rel.InUse {
				rep.RelationshipNotInUse()
				continue
			}
			if !desc.Matches([]int32{rel.Type}) && len(desc.Tokens) > 0 {
				rep.RelationshipDoesNotHaveExpectedType(desc.Tokens[0])
			}
		}
	}
	return nil
}
