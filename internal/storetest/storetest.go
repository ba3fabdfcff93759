// Package storetest builds small record stores for tests.
package storetest

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/blobstore"
	"github.com/hupe1980/graphcheck/store"
	"github.com/hupe1980/graphcheck/token"
)

// Open writes the files of b to a memory blob store and opens them.
func Open(t testing.TB, b *store.Builder) (*store.Stores, *token.Tokens) {
	t.Helper()
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	require.NoError(t, b.Write(ctx, bs))
	s, err := store.Open(ctx, bs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	tokens, err := token.LoadAll(ctx, s)
	require.NoError(t, err)
	return s, tokens
}

// Graph lays out consistent sparse relationship chains. Each node's chain
// starts at its newest relationship, so next pointers descend.
type Graph struct {
	Builder *store.Builder
	nodes   int64
	rels    []store.Relationship
}

// NewGraph returns a graph of n nodes and relationship type 0.
func NewGraph(n int64) *Graph {
	b := store.NewBuilder()
	b.RelationshipType(0, "REL")
	return &Graph{Builder: b, nodes: n}
}

// Relationship connects source and target with the next free id, or with id
// when given.
func (g *Graph) Relationship(source, target int64, id ...int64) int64 {
	next := int64(len(g.rels))
	if len(g.rels) > 0 {
		next = g.rels[len(g.rels)-1].ID + 1
	}
	if len(id) > 0 {
		next = id[0]
	}
	g.rels = append(g.rels, store.Relationship{ID: next, InUse: true, FirstNode: source, SecondNode: target, NextProp: store.Null})
	return next
}

// Build computes the chain pointers and writes nodes and relationships.
// Edit may corrupt records before they are written.
func (g *Graph) Build(edit func(nodes []store.Node, rels []store.Relationship)) *store.Builder {
	slices.SortFunc(g.rels, func(a, b store.Relationship) int { return int(b.ID - a.ID) })
	chains := make([][]int, g.nodes)
	for i, r := range g.rels {
		chains[r.FirstNode] = append(chains[r.FirstNode], i)
		if r.SecondNode != r.FirstNode {
			chains[r.SecondNode] = append(chains[r.SecondNode], i)
		}
	}
	nodes := make([]store.Node, g.nodes)
	for n := range nodes {
		node := store.Node{ID: int64(n), InUse: true, NextRel: store.Null, NextProp: store.Null}
		chain := chains[n]
		for pos, i := range chain {
			prev, next := int64(len(chain)), store.Null
			if pos > 0 {
				prev = g.rels[chain[pos-1]].ID
			}
			if pos+1 < len(chain) {
				next = g.rels[chain[pos+1]].ID
			}
			r := &g.rels[i]
			if r.FirstNode == int64(n) {
				r.FirstPrev, r.FirstNext, r.FirstInFirstChain = prev, next, pos == 0
			}
			if r.SecondNode == int64(n) {
				r.SecondPrev, r.SecondNext, r.FirstInSecondChain = prev, next, pos == 0
			}
		}
		if len(chain) > 0 {
			node.NextRel = g.rels[chain[0]].ID
		}
		nodes[n] = node
	}
	if edit != nil {
		edit(nodes, g.rels)
	}
	for _, n := range nodes {
		g.Builder.Node(n)
	}
	for _, r := range g.rels {
		g.Builder.Relationship(r)
	}
	return g.Builder
}
