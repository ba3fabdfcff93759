package checker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/index"
	"github.com/hupe1980/graphcheck/internal/storetest"
	"github.com/hupe1980/graphcheck/labelscan"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
)

func relByID(rels []store.Relationship, id int64) *store.Relationship {
	for i := range rels {
		if rels[i].ID == id {
			return &rels[i]
		}
	}
	return nil
}

func TestChecker_RelationshipEndpoints(t *testing.T) {
	// Relationship 0 connects nodes 0 and 1 in the first node range,
	// relationship 1 nodes 2 and 3 in the second. Relationship 5 is free.
	tests := []struct {
		name string
		edit func(nodes []store.Node, rels []store.Relationship)
		want []finding
	}{
		{
			name: "consistent",
		},
		{
			name: "illegal source",
			edit: func(nodes []store.Node, rels []store.Relationship) {
				relByID(rels, 0).FirstNode = -5
				nodes[0].NextRel = store.Null
			},
			want: []finding{{report.RelIllegalSourceNode, 0}},
		},
		{
			name: "illegal target",
			edit: func(nodes []store.Node, rels []store.Relationship) {
				relByID(rels, 0).SecondNode = -5
				nodes[1].NextRel = store.Null
			},
			want: []finding{{report.RelIllegalTargetNode, 0}},
		},
		{
			name: "source not in use",
			edit: func(nodes []store.Node, _ []store.Relationship) {
				nodes[0].InUse = false
			},
			want: []finding{{report.RelSourceNodeNotInUse, 0}},
		},
		{
			name: "target not in use",
			edit: func(nodes []store.Node, _ []store.Relationship) {
				nodes[1].InUse = false
			},
			want: []finding{{report.RelTargetNodeNotInUse, 0}},
		},
		{
			name: "source beyond high id",
			edit: func(nodes []store.Node, rels []store.Relationship) {
				relByID(rels, 1).FirstNode = 9
				nodes[2].NextRel = store.Null
			},
			want: []finding{{report.RelSourceNodeNotInUse, 1}},
		},
		{
			name: "target beyond high id",
			edit: func(nodes []store.Node, rels []store.Relationship) {
				relByID(rels, 1).SecondNode = 9
				nodes[3].NextRel = store.Null
			},
			want: []finding{{report.RelTargetNodeNotInUse, 1}},
		},
		{
			name: "source has no relationships",
			edit: func(nodes []store.Node, _ []store.Relationship) {
				nodes[0].NextRel = store.Null
			},
			want: []finding{{report.RelSourceNodeHasNoRelationships, 0}},
		},
		{
			name: "target has no relationships",
			edit: func(nodes []store.Node, _ []store.Relationship) {
				nodes[3].NextRel = store.Null
			},
			want: []finding{{report.RelTargetNodeHasNoRelationships, 1}},
		},
		{
			name: "not first in source chain",
			edit: func(_ []store.Node, rels []store.Relationship) {
				relByID(rels, 0).FirstInFirstChain = false
			},
			want: []finding{
				{report.NodeRelationshipNotFirstInSourceChain, 0},
				{report.NodeRelationshipForOtherNode, 0},
				{report.RelSourcePrevDoesNotReferenceBack, 0},
			},
		},
		{
			name: "not first in target chain",
			edit: func(_ []store.Node, rels []store.Relationship) {
				relByID(rels, 0).FirstInSecondChain = false
			},
			want: []finding{
				{report.NodeRelationshipNotFirstInTargetChain, 1},
				{report.NodeRelationshipForOtherNode, 1},
				{report.RelTargetPrevDoesNotReferenceBack, 0},
			},
		},
		{
			name: "source points at relationship of other nodes",
			edit: func(nodes []store.Node, _ []store.Relationship) {
				nodes[0].NextRel = 1
			},
			want: []finding{
				{report.RelSourceNodeDoesNotReferenceBack, 0},
				{report.NodeRelationshipForOtherNode, 0},
			},
		},
		{
			name: "target points at relationship of other nodes",
			edit: func(nodes []store.Node, _ []store.Relationship) {
				nodes[1].NextRel = 1
			},
			want: []finding{
				{report.RelTargetNodeDoesNotReferenceBack, 0},
				{report.NodeRelationshipForOtherNode, 1},
			},
		},
		{
			name: "source points at free relationship",
			edit: func(nodes []store.Node, _ []store.Relationship) {
				nodes[0].NextRel = 5
			},
			want: []finding{
				{report.RelSourceNodeDoesNotReferenceBack, 0},
				{report.NodeRelationshipNotInUse, 0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := storetest.NewGraph(4)
			g.Relationship(0, 1)
			g.Relationship(2, 3)
			b := g.Build(tt.edit)
			b.Relationship(store.Relationship{ID: 5, NextProp: store.Null})
			stores, tokens := storetest.Open(t, b)

			for _, threads := range []int{1, 4} {
				res, sink := run(t, Config{
					Stores:  stores,
					Tokens:  tokens,
					Threads: threads,
					Memory:  Memory{Machine: 32},
				})
				assert.Equal(t, 2, res.Ranges)
				assert.ElementsMatch(t, tt.want, findings(sink), "threads=%d", threads)
			}
		})
	}
}

func TestChecker_DenseNodeGroups(t *testing.T) {
	tests := []struct {
		name  string
		group store.RelationshipGroup
		next  int64
		want  []finding
	}{
		{
			name:  "owned group",
			group: store.RelationshipGroup{ID: 0, InUse: true, OwningNode: 0},
		},
		{
			name:  "group not in use",
			group: store.RelationshipGroup{ID: 0, OwningNode: 0},
			want:  []finding{{report.NodeRelationshipGroupNotInUse, 0}},
		},
		{
			name:  "group of other node",
			group: store.RelationshipGroup{ID: 0, InUse: true, OwningNode: 1},
			want:  []finding{{report.NodeRelationshipGroupHasOtherOwner, 0}},
		},
		{
			name:  "group beyond store",
			group: store.RelationshipGroup{ID: 0, InUse: true, OwningNode: 0},
			next:  7,
			want:  []finding{{report.NodeRelationshipGroupNotInUse, 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := store.NewBuilder()
			g := tt.group
			g.Next, g.FirstOut, g.FirstIn, g.FirstLoop = store.Null, store.Null, store.Null, store.Null
			b.Group(g)
			b.Node(store.Node{ID: 0, InUse: true, Dense: true, NextRel: tt.next, NextProp: store.Null})
			b.Node(store.Node{ID: 1, InUse: true, NextRel: store.Null, NextProp: store.Null})
			stores, tokens := storetest.Open(t, b)

			_, sink := run(t, Config{Stores: stores, Tokens: tokens, Threads: 2})
			assert.Equal(t, tt.want, findings(sink))
		})
	}
}

func TestChecker_TypeScan(t *testing.T) {
	g := storetest.NewGraph(3)
	g.Builder.RelationshipType(1, "OTHER")
	g.Relationship(0, 1)
	g.Relationship(1, 2)
	b := g.Build(func(_ []store.Node, rels []store.Relationship) {
		relByID(rels, 1).Type = 1
	})
	b.Relationship(store.Relationship{ID: 3, NextProp: store.Null})
	stores, tokens := storetest.Open(t, b)

	scan := labelscan.New()
	scan.Add(0, 0)
	scan.Add(1, 0)
	scan.Add(3, 0)
	scan.Add(70, 0)

	for _, threads := range []int{1, 3} {
		res, sink := run(t, Config{
			Stores:   stores,
			Tokens:   tokens,
			TypeScan: scan,
			Threads:  threads,
			Memory:   Memory{Machine: 32},
		})
		require.Equal(t, 2, res.Ranges)
		// Every finding is reported once although two node ranges are checked.
		assert.ElementsMatch(t, []finding{
			{report.RelRelationshipTypeNotInIndex, 1},
			{report.TypeScanRelationshipDoesNotHaveType, 0},
			{report.TypeScanRelationshipNotInUse, 0},
			{report.TypeScanRelationshipNotInUse, 70 / labelscan.RangeSize},
		}, findings(sink), "threads=%d", threads)
	}
}

func TestChecker_TypeScanSkippedWithoutIndexChecks(t *testing.T) {
	g := storetest.NewGraph(2)
	g.Relationship(0, 1)
	stores, tokens := storetest.Open(t, g.Build(nil))

	scan := labelscan.New()
	scan.Add(40, 0)

	sink := report.NewCollectingSink()
	c, err := New(Config{
		Stores:   stores,
		Tokens:   tokens,
		TypeScan: scan,
		Reporter: report.NewReporter([]report.Sink{sink}),
		Flags:    Flags{CheckGraph: true},
	})
	require.NoError(t, err)
	_, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, findings(sink))
}

func TestChecker_RelationshipSchema(t *testing.T) {
	g := storetest.NewGraph(2)
	g.Builder.RelationshipType(1, "OTHER")
	g.Builder.PropertyKey(0, "since").PropertyKey(1, "weight")
	g.Relationship(0, 1)
	g.Relationship(1, 0)
	b := g.Build(func(_ []store.Node, rels []store.Relationship) {
		relByID(rels, 0).NextProp = 0
		r := relByID(rels, 1)
		r.Type, r.NextProp = 1, 1
	})
	for id := range int64(2) {
		b.Property(store.Property{ID: id, InUse: true, Prev: store.Null, Next: store.Null, Blocks: []store.PropertyBlock{store.LongBlock(0, 2020)}})
	}
	stores, tokens := storetest.Open(t, b)

	since := store.Value{Type: store.PropertyLong, Long: 2020}
	idx := index.NewMemoryIndex(index.Descriptor{ID: 3, Entity: index.Relationship, Tokens: []int32{0}, Keys: []int32{0}})
	for _, id := range []int64{0, 1, 4} {
		require.NoError(t, idx.Add(id, since))
	}
	schema := &index.Schema{Constraints: []index.ExistenceConstraint{
		{Entity: index.Relationship, Token: 1, Keys: []int32{1}},
	}}

	_, sink := run(t, Config{
		Stores:  stores,
		Tokens:  tokens,
		Schema:  schema,
		Indexes: []index.Accessor{idx},
		Threads: 2,
	})
	assert.ElementsMatch(t, []finding{
		{report.MissingMandatoryProperty, 1},
		{report.IndexRelationshipDoesNotHaveExpectedType, 1},
		{report.IndexRelationshipNotInUse, 4},
	}, findings(sink))
}
