// Package checker is the consistency checker core.
//
// A run splits the node id space into ranges whose per-node cache fits the
// memory budget and runs these passes for every range:
//
//   - node pass: labels, label scan store, properties, small indexes; fills
//     the node cache
//   - relationship pass: relationship vs node references, properties, types,
//     counts; then a sweep for nodes nothing referenced back
//   - chain pass: prev/next pointers of every relationship chain, scanned
//     forward and backward by a producer feeding hash-partitioned workers
//
// Inconsistencies go to a report.Reporter; only I/O and resource failures
// are returned as errors.
package checker
