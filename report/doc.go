// Package report defines the inconsistencies a check can find and the sinks
// they are written to.
//
// Checkers report through a Reporter, which offers one method per violation
// grouped by the entity the violation belongs to:
//
//	r.Node(2).RelationshipNotInUse(99)
//	r.Relationship(5).SourcePrevDoesNotReferenceBack(4)
//	r.Property(17).KeyNotInUse(3)
//
// Reporting never fails. Every Inconsistency is fanned out to the configured
// sinks; sink errors are logged and counted but never abort a run.
//
// # Sinks
//
//   - CollectingSink keeps inconsistencies in memory
//   - SlogSink logs them
//   - JSONLSink streams JSON lines, optionally zstd or lz4 compressed
//   - SQLiteSink inserts them into a queryable table
package report
