package checker

import (
	"fmt"
	"iter"
)

const gib = int64(1) << 30

// Range is a half-open interval of node ids.
type Range struct {
	From int64
	To   int64
	// First and Last tell whether the range starts or ends the id space.
	First bool
	Last  bool
}

// Contains reports whether id is in [From, To).
func (r Range) Contains(id int64) bool {
	return id >= r.From && id < r.To
}

// Size returns the number of ids in the range.
func (r Range) Size() int64 {
	return r.To - r.From
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.From, r.To)
}

// MemoryLimiter divides [0, highNodeID) into ranges whose node cache fits
// into the memory left over by the page cache and the heap.
type MemoryLimiter struct {
	highNodeID    int64
	nodesPerRange int64
}

// NewMemoryLimiter computes the range size. A machine size of zero or less
// means unknown and is assumed to be max(2*pageCache, 2GiB).
func NewMemoryLimiter(pageCache, heap, machine, bytesPerNode, highNodeID int64) *MemoryLimiter {
	occupied := pageCache + heap
	if machine <= 0 {
		machine = max(2*pageCache, 2*gib)
	}
	effective := max(machine, occupied)
	bytesPerNode = max(1, bytesPerNode)
	highNodeID = max(0, highNodeID)
	return &MemoryLimiter{
		highNodeID:    highNodeID,
		nodesPerRange: max(1, min(highNodeID, (effective-occupied)/bytesPerNode)),
	}
}

// NodesPerRange returns the maximum number of nodes in one range.
func (l *MemoryLimiter) NodesPerRange() int64 { return l.nodesPerRange }

// HighNodeID returns the exclusive end of the id space.
func (l *MemoryLimiter) HighNodeID() int64 { return l.highNodeID }

// NumberOfRanges returns how many ranges Ranges yields. An empty id space
// still has one empty range.
func (l *MemoryLimiter) NumberOfRanges() int {
	if l.highNodeID == 0 {
		return 1
	}
	return int((l.highNodeID + l.nodesPerRange - 1) / l.nodesPerRange)
}

// Ranges yields the ranges tiling [0, highNodeID) in ascending order. Every
// call starts over from zero.
func (l *MemoryLimiter) Ranges() iter.Seq[Range] {
	return func(yield func(Range) bool) {
		for from := int64(0); ; {
			to := min(l.highNodeID, from+l.nodesPerRange)
			r := Range{From: from, To: to, First: from == 0, Last: to == l.highNodeID}
			if !yield(r) || r.Last {
				return
			}
			from = to
		}
	}
}

func (l *MemoryLimiter) String() string {
	return fmt.Sprintf("%d nodes in %d ranges of at most %d", l.highNodeID, l.NumberOfRanges(), l.nodesPerRange)
}
