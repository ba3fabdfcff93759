// Package index provides schema index descriptors and an in-memory value
// index.
//
// A Descriptor names the entity token (label or relationship type) and the
// property keys an index covers. MemoryIndex maps property value tuples to
// entity ids and supports the two access paths a consistency check needs:
// a full scan of indexed entity ids and an exact lookup of a value tuple.
//
// Indexes and existence constraints are loaded together from a Schema blob:
//
//	schema, err := index.LoadSchema(ctx, bs)
//	indexes, err := index.LoadAll(ctx, bs, schema)
package index
