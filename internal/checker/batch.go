package checker

import "github.com/hupe1980/graphcheck/store"

const (
	// BatchSize is the number of relationships in one batch.
	BatchSize = 1000

	fieldsPerRelationship = 8

	flagFirstInFirstChain  = 1
	flagFirstInSecondChain = 2
)

// RelationshipBatch carries the chain fields of up to BatchSize
// relationships from the producer to one worker. It is filled once and
// drained once.
type RelationshipBatch struct {
	fields []int64
	write  int
	read   int
}

func newRelationshipBatch() *RelationshipBatch {
	return &RelationshipBatch{fields: make([]int64, BatchSize*fieldsPerRelationship)}
}

// Add appends the chain fields of r. It returns false when the batch is full.
func (b *RelationshipBatch) Add(r *store.Relationship) bool {
	if b.Full() {
		return false
	}
	var flags int64
	if r.FirstInFirstChain {
		flags |= flagFirstInFirstChain
	}
	if r.FirstInSecondChain {
		flags |= flagFirstInSecondChain
	}
	f := b.fields[b.write : b.write+fieldsPerRelationship]
	f[0], f[1], f[2] = r.ID, r.FirstNode, r.SecondNode
	f[3], f[4], f[5], f[6] = r.FirstPrev, r.FirstNext, r.SecondPrev, r.SecondNext
	f[7] = flags
	b.write += fieldsPerRelationship
	return true
}

// Full reports whether the batch has room for no more relationships.
func (b *RelationshipBatch) Full() bool {
	return b.write == len(b.fields)
}

// Len returns the number of relationships added.
func (b *RelationshipBatch) Len() int {
	return b.write / fieldsPerRelationship
}

// Next fills r with the next relationship and reports whether there was one.
func (b *RelationshipBatch) Next(r *store.Relationship) bool {
	if b.read >= b.write {
		return false
	}
	f := b.fields[b.read : b.read+fieldsPerRelationship]
	*r = store.Relationship{
		ID:                 f[0],
		InUse:              true,
		FirstNode:          f[1],
		SecondNode:         f[2],
		FirstPrev:          f[3],
		FirstNext:          f[4],
		SecondPrev:         f[5],
		SecondNext:         f[6],
		FirstInFirstChain:  f[7]&flagFirstInFirstChain != 0,
		FirstInSecondChain: f[7]&flagFirstInSecondChain != 0,
	}
	b.read += fieldsPerRelationship
	return true
}
