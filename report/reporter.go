package report

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Sink receives inconsistencies.
type Sink interface {
	Record(Inconsistency) error
	Close() error
}

// Reporter fans inconsistencies out to sinks and keeps per-kind counts.
// It is safe for concurrent use.
type Reporter struct {
	runID      string
	sinks      []Sink
	logger     *slog.Logger
	mu         sync.Mutex
	byKind     map[Kind]int64
	byEntity   map[EntityType]int64
	total      atomic.Int64
	warnings   atomic.Int64
	sinkErrors atomic.Int64
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithRunID stamps every inconsistency with id.
func WithRunID(id string) ReporterOption {
	return func(r *Reporter) { r.runID = id }
}

// WithSinkLogger logs sink errors to l.
func WithSinkLogger(l *slog.Logger) ReporterOption {
	return func(r *Reporter) { r.logger = l }
}

// NewReporter returns a reporter writing to sinks.
func NewReporter(sinks []Sink, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		sinks:    sinks,
		byKind:   make(map[Kind]int64),
		byEntity: make(map[EntityType]int64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID returns the run id stamped on inconsistencies.
func (r *Reporter) RunID() string { return r.runID }

// Report records one inconsistency.
func (r *Reporter) Report(in Inconsistency) {
	in.RunID = r.runID
	in.Warning = in.Kind.IsWarning()

	r.total.Add(1)
	if in.Warning {
		r.warnings.Add(1)
	}
	r.mu.Lock()
	r.byKind[in.Kind]++
	r.byEntity[in.Entity]++
	r.mu.Unlock()

	for _, s := range r.sinks {
		if err := s.Record(in); err != nil {
			r.sinkErrors.Add(1)
			if r.logger != nil {
				r.logger.Error("report sink failed", "kind", in.Kind, "error", err)
			}
		}
	}
}

func (r *Reporter) report(kind Kind, entity EntityType, id int64, detail string, related ...Ref) {
	r.Report(Inconsistency{Kind: kind, Entity: entity, ID: id, Related: related, Detail: detail})
}

// Total returns the number of inconsistencies reported, warnings included.
func (r *Reporter) Total() int64 { return r.total.Load() }

// Errors returns the number of inconsistencies that are not warnings.
func (r *Reporter) Errors() int64 { return r.total.Load() - r.warnings.Load() }

// SinkErrors returns how many sink writes failed.
func (r *Reporter) SinkErrors() int64 { return r.sinkErrors.Load() }

// Close closes every sink.
func (r *Reporter) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Summary returns the counts so far.
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Summary{
		RunID:      r.runID,
		Total:      r.total.Load(),
		Warnings:   r.warnings.Load(),
		SinkErrors: r.sinkErrors.Load(),
		ByKind:     make(map[Kind]int64, len(r.byKind)),
		ByEntity:   make(map[EntityType]int64, len(r.byEntity)),
	}
	for k, v := range r.byKind {
		s.ByKind[k] = v
	}
	for k, v := range r.byEntity {
		s.ByEntity[k] = v
	}
	return s
}

// Entity returns the view for kinds shared by nodes and relationships.
func (r *Reporter) Entity(entity EntityType, id int64) EntityReport {
	return EntityReport{r: r, entity: entity, id: id}
}

// Node returns the node view.
func (r *Reporter) Node(id int64) NodeReport {
	return NodeReport{EntityReport{r: r, entity: EntityNode, id: id}}
}

// Relationship returns the relationship view.
func (r *Reporter) Relationship(id int64) RelationshipReport {
	return RelationshipReport{EntityReport{r: r, entity: EntityRelationship, id: id}}
}

// Property returns the property record view.
func (r *Reporter) Property(id int64) PropertyReport {
	return PropertyReport{r: r, id: id}
}

// Dynamic returns the view of a dynamic record of the given store.
func (r *Reporter) Dynamic(entity EntityType, id int64) DynamicReport {
	return DynamicReport{r: r, entity: entity, id: id}
}

// IndexEntry returns the view of an entry of index indexID.
func (r *Reporter) IndexEntry(indexID, entityID int64) IndexEntryReport {
	return IndexEntryReport{r: r, index: indexID, id: entityID}
}

// LabelScan returns the view of a label scan range.
func (r *Reporter) LabelScan(rangeID int64) LabelScanReport {
	return LabelScanReport{r: r, id: rangeID}
}

// TypeScan returns the view of a relationship type scan range.
func (r *Reporter) TypeScan(rangeID int64) TypeScanReport {
	return TypeScanReport{r: r, id: rangeID}
}

// EntityReport reports kinds common to nodes and relationships.
type EntityReport struct {
	r      *Reporter
	entity EntityType
	id     int64
}

func (e EntityReport) PropertyNotInUse(prop int64) {
	e.r.report(PropertyNotInUse, e.entity, e.id, "", Ref{EntityProperty, prop})
}

func (e EntityReport) PropertyNotFirstInChain(prop int64) {
	e.r.report(PropertyNotFirstInChain, e.entity, e.id, "", Ref{EntityProperty, prop})
}

func (e EntityReport) PropertyKeyNotUniqueInChain(key int32) {
	e.r.report(PropertyKeyNotUniqueInChain, e.entity, e.id, fmt.Sprintf("key %d", key))
}

// PropertyChainCycle reports a property chain that revisits prop.
func (e EntityReport) PropertyChainCycle(prop int64) {
	e.r.report(PropertyChainCycle, e.entity, e.id, "", Ref{EntityProperty, prop})
}

func (e EntityReport) MissingMandatoryProperty(key int32) {
	e.r.report(MissingMandatoryProperty, e.entity, e.id, fmt.Sprintf("key %d", key))
}

func (e EntityReport) NotIndexed(indexID int64, values string) {
	e.r.report(NotIndexed, e.entity, e.id, values, Ref{EntityIndex, indexID})
}

func (e EntityReport) IndexedMultipleTimes(indexID int64, values string, count int) {
	e.r.report(IndexedMultipleTimes, e.entity, e.id, fmt.Sprintf("%s indexed %d times", values, count), Ref{EntityIndex, indexID})
}

func (e EntityReport) UniqueIndexNotUnique(indexID int64, values string, duplicate int64) {
	e.r.report(UniqueIndexNotUnique, e.entity, e.id, values, Ref{EntityIndex, indexID}, Ref{e.entity, duplicate})
}

// NodeReport reports node violations.
type NodeReport struct {
	EntityReport
}

func (n NodeReport) RelationshipNotInUse(rel int64) {
	n.r.report(NodeRelationshipNotInUse, EntityNode, n.id, "", Ref{EntityRelationship, rel})
}

func (n NodeReport) RelationshipForOtherNode(rel int64) {
	n.r.report(NodeRelationshipForOtherNode, EntityNode, n.id, "", Ref{EntityRelationship, rel})
}

func (n NodeReport) RelationshipNotFirstInSourceChain(rel int64) {
	n.r.report(NodeRelationshipNotFirstInSourceChain, EntityNode, n.id, "", Ref{EntityRelationship, rel})
}

func (n NodeReport) RelationshipNotFirstInTargetChain(rel int64) {
	n.r.report(NodeRelationshipNotFirstInTargetChain, EntityNode, n.id, "", Ref{EntityRelationship, rel})
}

func (n NodeReport) IllegalLabel(label int64) {
	n.r.report(NodeIllegalLabel, EntityNode, n.id, "", Ref{EntityLabelToken, label})
}

func (n NodeReport) LabelNotInUse(label int64) {
	n.r.report(NodeLabelNotInUse, EntityNode, n.id, "", Ref{EntityLabelToken, label})
}

func (n NodeReport) LabelDuplicate(label int64) {
	n.r.report(NodeLabelDuplicate, EntityNode, n.id, "", Ref{EntityLabelToken, label})
}

func (n NodeReport) LabelsOutOfOrder(largest, smallest int64) {
	n.r.report(NodeLabelsOutOfOrder, EntityNode, n.id, fmt.Sprintf("%d before %d", largest, smallest))
}

func (n NodeReport) DynamicLabelRecordNotInUse(record int64) {
	n.r.report(NodeDynamicLabelRecordNotInUse, EntityNode, n.id, "", Ref{EntityNodeLabel, record})
}

func (n NodeReport) DynamicLabelRecordOwnerMismatch(record, owner int64) {
	n.r.report(NodeDynamicLabelRecordOwnerMismatch, EntityNode, n.id, fmt.Sprintf("owned by node %d", owner), Ref{EntityNodeLabel, record})
}

func (n NodeReport) DynamicRecordChainCycle(record int64) {
	n.r.report(NodeDynamicRecordChainCycle, EntityNode, n.id, "", Ref{EntityNodeLabel, record})
}

func (n NodeReport) LabelNotInIndex(label int64) {
	n.r.report(NodeLabelNotInIndex, EntityNode, n.id, "", Ref{EntityLabelToken, label})
}

func (n NodeReport) RelationshipGroupNotInUse(group int64) {
	n.r.report(NodeRelationshipGroupNotInUse, EntityNode, n.id, "", Ref{EntityRelationshipGroup, group})
}

func (n NodeReport) RelationshipGroupHasOtherOwner(group int64) {
	n.r.report(NodeRelationshipGroupHasOtherOwner, EntityNode, n.id, "", Ref{EntityRelationshipGroup, group})
}

// RelationshipReport reports relationship violations.
type RelationshipReport struct {
	EntityReport
}

func (r RelationshipReport) rel(kind Kind, related ...Ref) {
	r.r.report(kind, EntityRelationship, r.id, "", related...)
}

func (r RelationshipReport) IllegalRelationshipType() { r.rel(RelIllegalRelationshipType) }

func (r RelationshipReport) RelationshipTypeNotInUse(typ int64) {
	r.rel(RelRelationshipTypeNotInUse, Ref{EntityRelationshipType, typ})
}

func (r RelationshipReport) RelationshipTypeNotInIndex(typ int64) {
	r.rel(RelRelationshipTypeNotInIndex, Ref{EntityRelationshipType, typ})
}

func (r RelationshipReport) IllegalSourceNode() { r.rel(RelIllegalSourceNode) }
func (r RelationshipReport) IllegalTargetNode() { r.rel(RelIllegalTargetNode) }

func (r RelationshipReport) SourceNodeNotInUse(node int64) {
	r.rel(RelSourceNodeNotInUse, Ref{EntityNode, node})
}

func (r RelationshipReport) TargetNodeNotInUse(node int64) {
	r.rel(RelTargetNodeNotInUse, Ref{EntityNode, node})
}

func (r RelationshipReport) SourceNodeDoesNotReferenceBack(node int64) {
	r.rel(RelSourceNodeDoesNotReferenceBack, Ref{EntityNode, node})
}

func (r RelationshipReport) TargetNodeDoesNotReferenceBack(node int64) {
	r.rel(RelTargetNodeDoesNotReferenceBack, Ref{EntityNode, node})
}

func (r RelationshipReport) SourceNodeHasNoRelationships(node int64) {
	r.rel(RelSourceNodeHasNoRelationships, Ref{EntityNode, node})
}

func (r RelationshipReport) TargetNodeHasNoRelationships(node int64) {
	r.rel(RelTargetNodeHasNoRelationships, Ref{EntityNode, node})
}

func (r RelationshipReport) SourcePrevReferencesOtherNodes(other int64) {
	r.rel(RelSourcePrevReferencesOtherNodes, Ref{EntityRelationship, other})
}

func (r RelationshipReport) SourceNextReferencesOtherNodes(other int64) {
	r.rel(RelSourceNextReferencesOtherNodes, Ref{EntityRelationship, other})
}

func (r RelationshipReport) TargetPrevReferencesOtherNodes(other int64) {
	r.rel(RelTargetPrevReferencesOtherNodes, Ref{EntityRelationship, other})
}

func (r RelationshipReport) TargetNextReferencesOtherNodes(other int64) {
	r.rel(RelTargetNextReferencesOtherNodes, Ref{EntityRelationship, other})
}

func (r RelationshipReport) SourcePrevDoesNotReferenceBack(other int64) {
	r.rel(RelSourcePrevDoesNotReferenceBack, Ref{EntityRelationship, other})
}

func (r RelationshipReport) SourceNextDoesNotReferenceBack(other int64) {
	r.rel(RelSourceNextDoesNotReferenceBack, Ref{EntityRelationship, other})
}

func (r RelationshipReport) TargetPrevDoesNotReferenceBack(other int64) {
	r.rel(RelTargetPrevDoesNotReferenceBack, Ref{EntityRelationship, other})
}

func (r RelationshipReport) TargetNextDoesNotReferenceBack(other int64) {
	r.rel(RelTargetNextDoesNotReferenceBack, Ref{EntityRelationship, other})
}

// NotUsedRelationshipReferencedInChain reports a chain pointer at an unused
// relationship. link names the pointer, e.g. "source next".
func (r RelationshipReport) NotUsedRelationshipReferencedInChain(link string, other int64) {
	r.r.report(RelNotUsedRelationshipReferenced, EntityRelationship, r.id, link, Ref{EntityRelationship, other})
}

// PropertyReport reports property record violations.
type PropertyReport struct {
	r  *Reporter
	id int64
}

func (p PropertyReport) prop(kind Kind, detail string, related ...Ref) {
	p.r.report(kind, EntityProperty, p.id, detail, related...)
}

func (p PropertyReport) InvalidPropertyKey(key int32) {
	p.prop(PropInvalidPropertyKey, fmt.Sprintf("key %d", key))
}

func (p PropertyReport) KeyNotInUse(key int32) {
	p.prop(PropKeyNotInUse, "", Ref{EntityPropertyKey, int64(key)})
}

func (p PropertyReport) NextNotInUse(next int64) {
	p.prop(PropNextNotInUse, "", Ref{EntityProperty, next})
}

func (p PropertyReport) PreviousDoesNotReferenceBack(prev int64) {
	p.prop(PropPreviousDoesNotReferenceBack, "", Ref{EntityProperty, prev})
}

func (p PropertyReport) InvalidPropertyType(key int32) {
	p.prop(PropInvalidPropertyType, fmt.Sprintf("key %d", key))
}

func (p PropertyReport) InvalidPropertyValue(key int32, cause error) {
	p.prop(PropInvalidPropertyValue, fmt.Sprintf("key %d: %v", key, cause))
}

func (p PropertyReport) StringNotInUse(key int32, record int64) {
	p.prop(PropStringNotInUse, fmt.Sprintf("key %d", key), Ref{EntityString, record})
}

func (p PropertyReport) ArrayNotInUse(key int32, record int64) {
	p.prop(PropArrayNotInUse, fmt.Sprintf("key %d", key), Ref{EntityArray, record})
}

func (p PropertyReport) StringEmpty(key int32, record int64) {
	p.prop(PropStringEmpty, fmt.Sprintf("key %d", key), Ref{EntityString, record})
}

func (p PropertyReport) ArrayEmpty(key int32, record int64) {
	p.prop(PropArrayEmpty, fmt.Sprintf("key %d", key), Ref{EntityArray, record})
}

// DynamicReport reports dynamic record violations.
type DynamicReport struct {
	r      *Reporter
	entity EntityType
	id     int64
}

func (d DynamicReport) NextNotInUse(next int64) {
	d.r.report(DynNextNotInUse, d.entity, d.id, "", Ref{d.entity, next})
}

func (d DynamicReport) RecordNotFullReferencesNext() {
	d.r.report(DynRecordNotFullReferencesNext, d.entity, d.id, "")
}

func (d DynamicReport) InvalidLength(length int) {
	d.r.report(DynInvalidLength, d.entity, d.id, fmt.Sprintf("length %d", length))
}

func (d DynamicReport) EmptyBlock() {
	d.r.report(DynEmptyBlock, d.entity, d.id, "")
}

func (d DynamicReport) SelfReferentialNext() {
	d.r.report(DynSelfReferentialNext, d.entity, d.id, "")
}

func (d DynamicReport) ChainCycle(next int64) {
	d.r.report(DynChainCycle, d.entity, d.id, "", Ref{d.entity, next})
}

// IndexEntryReport reports violations of an index entry.
type IndexEntryReport struct {
	r     *Reporter
	index int64
	id    int64
}

func (i IndexEntryReport) entry(kind Kind, detail string) {
	i.r.report(kind, EntityIndexEntry, i.id, detail, Ref{EntityIndex, i.index})
}

func (i IndexEntryReport) NodeNotInUse() { i.entry(IndexNodeNotInUse, "") }

func (i IndexEntryReport) NodeDoesNotHaveExpectedLabel(label int32) {
	i.entry(IndexNodeDoesNotHaveExpectedLabel, fmt.Sprintf("label %d", label))
}

func (i IndexEntryReport) RelationshipNotInUse() { i.entry(IndexRelationshipNotInUse, "") }

func (i IndexEntryReport) RelationshipDoesNotHaveExpectedType(typ int32) {
	i.entry(IndexRelationshipDoesNotHaveExpectedType, fmt.Sprintf("type %d", typ))
}

// LabelScanReport reports violations found in a label scan range.
type LabelScanReport struct {
	r  *Reporter
	id int64
}

func (l LabelScanReport) NodeNotInUse(node int64) {
	l.r.report(LabelScanNodeNotInUse, EntityLabelScan, l.id, "", Ref{EntityNode, node})
}

func (l LabelScanReport) NodeDoesNotHaveExpectedLabel(node int64, label int32) {
	l.r.report(LabelScanNodeDoesNotHaveExpectedLabel, EntityLabelScan, l.id, fmt.Sprintf("label %d", label), Ref{EntityNode, node})
}

// TypeScanReport reports violations found in a relationship type scan range.
type TypeScanReport struct {
	r  *Reporter
	id int64
}

func (t TypeScanReport) RelationshipNotInUse(rel int64) {
	t.r.report(TypeScanRelationshipNotInUse, EntityTypeScan, t.id, "", Ref{EntityRelationship, rel})
}

func (t TypeScanReport) RelationshipDoesNotHaveExpectedType(rel int64, typ int32) {
	t.r.report(TypeScanRelationshipDoesNotHaveType, EntityTypeScan, t.id, fmt.Sprintf("type %d", typ), Ref{EntityRelationship, rel})
}
