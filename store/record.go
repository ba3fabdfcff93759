package store

// Null is the sentinel stored in every pointer field that references nothing.
const Null int64 = -1

// Node is a node record.
type Node struct {
	ID       int64
	InUse    bool
	Dense    bool
	NextRel  int64
	NextProp int64
	Labels   LabelField
}

// Relationship is a relationship record. Each relationship is a member of two
// doubly linked chains, one per endpoint. When a relationship is first in a
// chain, that side's prev field holds the chain degree instead of a pointer.
type Relationship struct {
	ID                 int64
	InUse              bool
	Type               int32
	FirstNode          int64
	SecondNode         int64
	FirstPrev          int64
	FirstNext          int64
	SecondPrev         int64
	SecondNext         int64
	FirstInFirstChain  bool
	FirstInSecondChain bool
	NextProp           int64
}

// RelationshipGroup is the per-type indirection of a dense node.
type RelationshipGroup struct {
	ID         int64
	InUse      bool
	Type       int32
	Next       int64
	FirstOut   int64
	FirstIn    int64
	FirstLoop  int64
	OwningNode int64
}

// PropertyType identifies how a property block value is encoded.
type PropertyType uint8

const (
	PropertyInvalid PropertyType = iota
	PropertyBool
	PropertyLong
	PropertyDouble
	PropertyString
	PropertyArray
)

func (t PropertyType) String() string {
	switch t {
	case PropertyBool:
		return "bool"
	case PropertyLong:
		return "long"
	case PropertyDouble:
		return "double"
	case PropertyString:
		return "string"
	case PropertyArray:
		return "array"
	default:
		return "invalid"
	}
}

// PropertyBlock is one key/value slot of a property record. For strings and
// arrays Value is the first record id of the dynamic chain holding the payload.
type PropertyBlock struct {
	Key   int32
	Type  PropertyType
	Value int64
}

// MaxPropertyBlocks is the number of blocks a property record can hold.
const MaxPropertyBlocks = 4

// Property is a record of a property chain.
type Property struct {
	ID     int64
	InUse  bool
	Prev   int64
	Next   int64
	Blocks []PropertyBlock
}

// DynamicRecord is one link of a variable-length payload chain.
type DynamicRecord struct {
	ID     int64
	InUse  bool
	Start  bool
	Length int
	Next   int64
	Data   []byte
}

// Token is a named entry of a token store.
type Token struct {
	ID    int64
	InUse bool
	Name  string
}
