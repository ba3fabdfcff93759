package checker

import (
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
)

// RelationshipLink is one of the four chain pointers a relationship holds:
// prev or next, on the source or on the target node's chain.
type RelationshipLink struct {
	Name   string
	target bool
	next   bool

	doesNotReferenceBack func(report.RelationshipReport, int64)
	referencesOtherNodes func(report.RelationshipReport, int64)
}

var (
	SourcePrev = &RelationshipLink{
		Name:                 "SOURCE_PREV",
		doesNotReferenceBack: report.RelationshipReport.SourcePrevDoesNotReferenceBack,
		referencesOtherNodes: report.RelationshipReport.SourcePrevReferencesOtherNodes,
	}
	SourceNext = &RelationshipLink{
		Name:                 "SOURCE_NEXT",
		next:                 true,
		doesNotReferenceBack: report.RelationshipReport.SourceNextDoesNotReferenceBack,
		referencesOtherNodes: report.RelationshipReport.SourceNextReferencesOtherNodes,
	}
	TargetPrev = &RelationshipLink{
		Name:                 "TARGET_PREV",
		target:               true,
		doesNotReferenceBack: report.RelationshipReport.TargetPrevDoesNotReferenceBack,
		referencesOtherNodes: report.RelationshipReport.TargetPrevReferencesOtherNodes,
	}
	TargetNext = &RelationshipLink{
		Name:                 "TARGET_NEXT",
		target:               true,
		next:                 true,
		doesNotReferenceBack: report.RelationshipReport.TargetNextDoesNotReferenceBack,
		referencesOtherNodes: report.RelationshipReport.TargetNextReferencesOtherNodes,
	}
)

// RelationshipLinks lists the links in checking order.
var RelationshipLinks = [4]*RelationshipLink{SourcePrev, SourceNext, TargetPrev, TargetNext}

func linksOf(target bool) [2]*RelationshipLink {
	if target {
		return [2]*RelationshipLink{TargetPrev, TargetNext}
	}
	return [2]*RelationshipLink{SourcePrev, SourceNext}
}

// chainSide is the view of a relationship from one of its endpoints.
type chainSide struct {
	node  int64
	prev  int64
	next  int64
	first bool
}

func sideOf(r *store.Relationship, target bool) chainSide {
	if target {
		return chainSide{r.SecondNode, r.SecondPrev, r.SecondNext, r.FirstInSecondChain}
	}
	return chainSide{r.FirstNode, r.FirstPrev, r.FirstNext, r.FirstInFirstChain}
}

// Node returns the endpoint whose chain the link belongs to.
func (l *RelationshipLink) Node(r *store.Relationship) int64 {
	return sideOf(r, l.target).node
}

// Pointer returns the relationship id the link points at.
func (l *RelationshipLink) Pointer(r *store.Relationship) int64 {
	s := sideOf(r, l.target)
	if l.next {
		return s.next
	}
	return s.prev
}

// EndOfChain reports whether the link points at nothing. The prev field of a
// relationship first in its chain holds the chain degree.
func (l *RelationshipLink) EndOfChain(r *store.Relationship) bool {
	s := sideOf(r, l.target)
	if l.next {
		return s.next == store.Null
	}
	return s.first || s.prev == store.Null
}

// ReferencesBack reports whether other, a relationship on node's chain,
// points back at id through the opposite link.
func (l *RelationshipLink) ReferencesBack(other *store.Relationship, node, id int64) bool {
	for _, target := range [2]bool{false, true} {
		s := sideOf(other, target)
		if s.node != node {
			continue
		}
		if l.next {
			if !s.first && s.prev == id {
				return true
			}
		} else if s.next == id {
			return true
		}
	}
	return false
}

// Check verifies the pointer target other loaded from the store.
func (l *RelationshipLink) Check(rep report.RelationshipReport, r, other *store.Relationship) {
	node := l.Node(r)
	switch {
	case !other.InUse:
		rep.NotUsedRelationshipReferencedInChain(l.Name, other.ID)
	case other.FirstNode != node && other.SecondNode != node:
		l.referencesOtherNodes(rep, other.ID)
	case !l.ReferencesBack(other, node, r.ID):
		l.doesNotReferenceBack(rep, other.ID)
	}
}

// DoesNotReferenceBack reports that the target of the link does not point back.
func (l *RelationshipLink) DoesNotReferenceBack(rep report.RelationshipReport, other int64) {
	l.doesNotReferenceBack(rep, other)
}

func (l *RelationshipLink) String() string { return l.Name }
