package report

// EntityType is the type of record an inconsistency is reported on.
type EntityType string

const (
	EntityNode              EntityType = "node"
	EntityRelationship      EntityType = "relationship"
	EntityRelationshipGroup EntityType = "relationship_group"
	EntityProperty          EntityType = "property"
	EntityString            EntityType = "string"
	EntityArray             EntityType = "array"
	EntityNodeLabel         EntityType = "node_label"
	EntityIndexEntry        EntityType = "index_entry"
	EntityLabelScan         EntityType = "label_scan"
	EntityTypeScan          EntityType = "relationship_type_scan"
	EntityLabelToken        EntityType = "label_token"
	EntityRelationshipType  EntityType = "relationship_type"
	EntityPropertyKey       EntityType = "property_key"
	EntityIndex             EntityType = "index"
)

// Kind identifies a violation.
type Kind string

// Entity kinds shared by nodes and relationships.
const (
	PropertyNotInUse            Kind = "propertyNotInUse"
	PropertyNotFirstInChain     Kind = "propertyNotFirstInChain"
	PropertyKeyNotUniqueInChain Kind = "propertyKeyNotUniqueInChain"
	PropertyChainCycle          Kind = "propertyChainCycle"
	MissingMandatoryProperty    Kind = "missingMandatoryProperty"
	NotIndexed                  Kind = "notIndexed"
	IndexedMultipleTimes        Kind = "indexedMultipleTimes"
	UniqueIndexNotUnique        Kind = "uniqueIndexNotUnique"
)

// Node kinds.
const (
	NodeRelationshipNotInUse              Kind = "relationshipNotInUse"
	NodeRelationshipForOtherNode          Kind = "relationshipForOtherNode"
	NodeRelationshipNotFirstInSourceChain Kind = "relationshipNotFirstInSourceChain"
	NodeRelationshipNotFirstInTargetChain Kind = "relationshipNotFirstInTargetChain"
	NodeIllegalLabel                      Kind = "illegalLabel"
	NodeLabelNotInUse                     Kind = "labelNotInUse"
	NodeLabelDuplicate                    Kind = "labelDuplicate"
	NodeLabelsOutOfOrder                  Kind = "labelsOutOfOrder"
	NodeDynamicLabelRecordNotInUse        Kind = "dynamicLabelRecordNotInUse"
	NodeDynamicLabelRecordOwnerMismatch   Kind = "dynamicLabelRecordOwnerMismatch"
	NodeDynamicRecordChainCycle           Kind = "dynamicRecordChainCycle"
	NodeLabelNotInIndex                   Kind = "nodeLabelNotInIndex"
	NodeRelationshipGroupNotInUse         Kind = "relationshipGroupNotInUse"
	NodeRelationshipGroupHasOtherOwner    Kind = "relationshipGroupHasOtherOwner"
)

// Relationship kinds.
const (
	RelIllegalRelationshipType        Kind = "illegalRelationshipType"
	RelRelationshipTypeNotInUse       Kind = "relationshipTypeNotInUse"
	RelIllegalSourceNode              Kind = "illegalSourceNode"
	RelIllegalTargetNode              Kind = "illegalTargetNode"
	RelSourceNodeNotInUse             Kind = "sourceNodeNotInUse"
	RelTargetNodeNotInUse             Kind = "targetNodeNotInUse"
	RelSourceNodeDoesNotReferenceBack Kind = "sourceNodeDoesNotReferenceBack"
	RelTargetNodeDoesNotReferenceBack Kind = "targetNodeDoesNotReferenceBack"
	RelSourceNodeHasNoRelationships   Kind = "sourceNodeHasNoRelationships"
	RelTargetNodeHasNoRelationships   Kind = "targetNodeHasNoRelationships"
	RelSourcePrevReferencesOtherNodes Kind = "sourcePrevReferencesOtherNodes"
	RelSourceNextReferencesOtherNodes Kind = "sourceNextReferencesOtherNodes"
	RelTargetPrevReferencesOtherNodes Kind = "targetPrevReferencesOtherNodes"
	RelTargetNextReferencesOtherNodes Kind = "targetNextReferencesOtherNodes"
	RelSourcePrevDoesNotReferenceBack Kind = "sourcePrevDoesNotReferenceBack"
	RelSourceNextDoesNotReferenceBack Kind = "sourceNextDoesNotReferenceBack"
	RelTargetPrevDoesNotReferenceBack Kind = "targetPrevDoesNotReferenceBack"
	RelTargetNextDoesNotReferenceBack Kind = "targetNextDoesNotReferenceBack"
	RelNotUsedRelationshipReferenced  Kind = "notUsedRelationshipReferencedInChain"
	RelRelationshipTypeNotInIndex     Kind = "relationshipTypeNotInIndex"
)

// Property kinds.
const (
	PropInvalidPropertyKey           Kind = "invalidPropertyKey"
	PropKeyNotInUse                  Kind = "keyNotInUse"
	PropNextNotInUse                 Kind = "nextNotInUse"
	PropPreviousDoesNotReferenceBack Kind = "previousDoesNotReferenceBack"
	PropInvalidPropertyType          Kind = "invalidPropertyType"
	PropInvalidPropertyValue         Kind = "invalidPropertyValue"
	PropStringNotInUse               Kind = "stringNotInUse"
	PropArrayNotInUse                Kind = "arrayNotInUse"
	PropStringEmpty                  Kind = "stringEmpty"
	PropArrayEmpty                   Kind = "arrayEmpty"
)

// Dynamic record kinds.
const (
	DynNextNotInUse                Kind = "dynamicNextNotInUse"
	DynRecordNotFullReferencesNext Kind = "recordNotFullReferencesNext"
	DynInvalidLength               Kind = "invalidLength"
	DynEmptyBlock                  Kind = "emptyBlock"
	DynSelfReferentialNext         Kind = "selfReferentialNext"
	DynChainCycle                  Kind = "dynamicChainCycle"
)

// Index entry and label scan kinds.
const (
	IndexNodeNotInUse                        Kind = "indexEntryNodeNotInUse"
	IndexNodeDoesNotHaveExpectedLabel        Kind = "indexEntryNodeDoesNotHaveExpectedLabel"
	IndexRelationshipNotInUse                Kind = "indexEntryRelationshipNotInUse"
	IndexRelationshipDoesNotHaveExpectedType Kind = "indexEntryRelationshipDoesNotHaveExpectedType"
	LabelScanNodeNotInUse                    Kind = "labelScanNodeNotInUse"
	LabelScanNodeDoesNotHaveExpectedLabel    Kind = "labelScanNodeDoesNotHaveExpectedLabel"
	TypeScanRelationshipNotInUse             Kind = "typeScanRelationshipNotInUse"
	TypeScanRelationshipDoesNotHaveType      Kind = "typeScanRelationshipDoesNotHaveExpectedType"
)

var warnings = map[Kind]bool{
	DynRecordNotFullReferencesNext: true,
	DynEmptyBlock:                  true,
}

// IsWarning reports whether k is a warning rather than an error.
func (k Kind) IsWarning() bool {
	return warnings[k]
}
