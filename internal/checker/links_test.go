package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/index"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
)

// chain on node 0: 9 -> 5 -> 2, each relationship pointing at node 1 or 2.
func chainOnNodeZero() map[int64]*store.Relationship {
	return map[int64]*store.Relationship{
		9: {ID: 9, InUse: true, FirstNode: 0, SecondNode: 1, FirstPrev: 3, FirstNext: 5, FirstInFirstChain: true, SecondPrev: 1, SecondNext: store.Null, FirstInSecondChain: true},
		5: {ID: 5, InUse: true, FirstNode: 2, SecondNode: 0, FirstPrev: 1, FirstNext: store.Null, FirstInFirstChain: true, SecondPrev: 9, SecondNext: 2},
		2: {ID: 2, InUse: true, FirstNode: 0, SecondNode: 2, FirstPrev: 5, FirstNext: store.Null, SecondPrev: 1, SecondNext: store.Null, FirstInSecondChain: true},
	}
}

func TestRelationshipLink_Pointers(t *testing.T) {
	rels := chainOnNodeZero()

	assert.Equal(t, int64(0), SourceNext.Node(rels[9]))
	assert.Equal(t, int64(5), SourceNext.Pointer(rels[9]))
	assert.Equal(t, int64(0), TargetPrev.Node(rels[5]))
	assert.Equal(t, int64(9), TargetPrev.Pointer(rels[5]))

	assert.True(t, SourcePrev.EndOfChain(rels[9]), "prev of a chain head holds the degree")
	assert.False(t, SourceNext.EndOfChain(rels[9]))
	assert.True(t, SourceNext.EndOfChain(rels[2]))
	assert.False(t, SourcePrev.EndOfChain(rels[2]))

	assert.Equal(t, [2]*RelationshipLink{TargetPrev, TargetNext}, linksOf(true))
	assert.Equal(t, "SOURCE_NEXT", SourceNext.String())
}

func TestRelationshipLink_ReferencesBack(t *testing.T) {
	rels := chainOnNodeZero()

	assert.True(t, SourceNext.ReferencesBack(rels[5], 0, 9))
	assert.True(t, TargetNext.ReferencesBack(rels[2], 0, 5))
	assert.True(t, TargetPrev.ReferencesBack(rels[9], 0, 5))
	assert.True(t, SourcePrev.ReferencesBack(rels[5], 0, 2))

	assert.False(t, SourceNext.ReferencesBack(rels[5], 0, 7))
	assert.False(t, SourceNext.ReferencesBack(rels[5], 2, 9), "wrong node")
	assert.False(t, TargetNext.ReferencesBack(rels[9], 0, 3), "a degree is not a pointer")
}

func TestRelationshipLink_Check(t *testing.T) {
	tests := []struct {
		name  string
		link  *RelationshipLink
		r     *store.Relationship
		other *store.Relationship
		want  []report.Kind
	}{
		{
			name:  "references back",
			link:  SourceNext,
			r:     &store.Relationship{ID: 9, FirstNode: 0, SecondNode: 1, FirstNext: 5},
			other: &store.Relationship{ID: 5, InUse: true, FirstNode: 2, SecondNode: 0, SecondPrev: 9},
		},
		{
			name:  "not in use",
			link:  SourceNext,
			r:     &store.Relationship{ID: 9, FirstNode: 0, FirstNext: 5},
			other: &store.Relationship{ID: 5},
			want:  []report.Kind{report.RelNotUsedRelationshipReferenced},
		},
		{
			name:  "other nodes",
			link:  TargetPrev,
			r:     &store.Relationship{ID: 9, FirstNode: 1, SecondNode: 0, SecondPrev: 5},
			other: &store.Relationship{ID: 5, InUse: true, FirstNode: 3, SecondNode: 4},
			want:  []report.Kind{report.RelTargetPrevReferencesOtherNodes},
		},
		{
			name:  "does not reference back",
			link:  TargetNext,
			r:     &store.Relationship{ID: 9, FirstNode: 1, SecondNode: 0, SecondNext: 5},
			other: &store.Relationship{ID: 5, InUse: true, FirstNode: 0, SecondNode: 4, FirstPrev: 8},
			want:  []report.Kind{report.RelTargetNextDoesNotReferenceBack},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := report.NewCollectingSink()
			rep := report.NewReporter([]report.Sink{sink})
			tt.link.Check(rep.Relationship(tt.r.ID), tt.r, tt.other)

			var got []report.Kind
			for _, in := range sink.Inconsistencies() {
				got = append(got, in.Kind)
				require.Equal(t, tt.r.ID, in.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSingleChainOK(t *testing.T) {
	assert.True(t, singleChainOK(true, SingleChainDegree))
	assert.True(t, singleChainOK(true, store.Null))
	assert.False(t, singleChainOK(true, 3))
	assert.True(t, singleChainOK(false, 4))
	assert.False(t, singleChainOK(false, store.Null))
}

func TestPartition(t *testing.T) {
	assert.Equal(t, 0, partition(0, 3))
	assert.Equal(t, 2, partition(5, 3))
	assert.Equal(t, 2, partition(-5, 3))
	assert.Equal(t, 0, partition(7, 1))
	assert.Equal(t, 1, ChainWorkers(1))
	assert.Equal(t, 1, ChainWorkers(3))
	assert.Equal(t, 6, ChainWorkers(8))
}

func TestCompareTokens(t *testing.T) {
	tests := []struct {
		name          string
		match         index.MatchType
		store, index  []int32
		wantStoreOnly []int32
		wantIndexOnly []int32
	}{
		{name: "equal", store: []int32{1, 2, 3}, index: []int32{1, 2, 3}},
		{name: "store only", store: []int32{1, 2, 4}, index: []int32{2}, wantStoreOnly: []int32{1, 4}},
		{name: "index only", store: []int32{2}, index: []int32{1, 2, 5}, wantIndexOnly: []int32{1, 5}},
		{name: "partial any hit", match: index.MatchPartialAny, store: []int32{2}, index: []int32{1, 2}},
		{name: "partial any miss", match: index.MatchPartialAny, store: []int32{3}, index: []int32{1, 2}, wantStoreOnly: []int32{3}, wantIndexOnly: []int32{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var storeOnly, indexOnly []int32
			compareTokens(tt.match, tt.store, tt.index,
				func(l int32) { storeOnly = append(storeOnly, l) },
				func(l int32) { indexOnly = append(indexOnly, l) })
			assert.Equal(t, tt.wantStoreOnly, storeOnly)
			assert.Equal(t, tt.wantIndexOnly, indexOnly)
		})
	}
}
