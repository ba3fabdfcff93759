// Package store implements the fixed-slot record files of a graph store.
//
// Every store is a blob split into fixed-size pages. A page holds
// PageSize/RecordSize records and records never span pages, so the slot of
// record id is addressable without an index:
//
//	page   = id / recordsPerPage
//	offset = page*PageSize + (id%recordsPerPage)*RecordSize
//
// Reading an id that is negative or beyond the end of the file yields an
// unused record instead of an error; a consistency checker must be able to
// follow dangling pointers.
//
// # Files
//
//	neostore.nodestore.db                   Node
//	neostore.relationshipstore.db           Relationship
//	neostore.relationshipgroupstore.db      RelationshipGroup
//	neostore.propertystore.db               Property
//	neostore.propertystore.db.strings       DynamicRecord (strings)
//	neostore.propertystore.db.arrays        DynamicRecord (arrays)
//	neostore.nodestore.db.labels            DynamicRecord (node labels)
//	neostore.labeltokenstore.db             Token
//	neostore.relationshiptypestore.db       Token
//	neostore.propertystore.db.index         Token (property keys)
//
// Stores are read through a RecordStore. Sequential scans use a Cursor and
// may be paired with a Prefetcher that warms pages ahead of the cursor in
// either direction.
package store
