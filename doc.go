// Package graphcheck checks the consistency of a graph record store.
//
// A graph store keeps nodes, relationships, properties and labels in
// fixed-size record files that reference each other by id. graphcheck reads
// those files without locking them and reports every broken reference: a
// relationship chain that does not link back, a property chain with a cycle,
// labels out of order, index entries for nodes that no longer exist.
//
// # Quick Start
//
// Local store:
//
//	ctx := context.Background()
//	gc, _ := graphcheck.Open(ctx, blobstore.NewLocalStore("./graph.db"),
//	    graphcheck.WithThreads(runtime.NumCPU()),
//	    graphcheck.WithSinks(report.NewSlogSink(slog.Default())),
//	)
//	defer gc.Close()
//
//	summary, err := gc.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(summary)
//
// Remote store:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("graph.db/"))
//	gc, _ := graphcheck.Open(ctx, s3Store)
//
// # Memory Model
//
// The checker keeps 16 bytes of state per node. When the node cache of the
// whole store does not fit into the memory left over by the page cache and
// the heap (see WithMemory), the node id space is split into ranges and every
// pass runs once per range. Relationships are scanned once per range.
//
// # Passes
//
// For every range:
//
//  1. Nodes: labels, properties, label scan and index compliance; caches each
//     node's first relationship.
//  2. Relationships: endpoints against the cached nodes, properties, types.
//  3. Unused references: nodes whose first relationship never claimed them.
//  4. Relationship chains, forward and backward: every prev and next pointer
//     must be mirrored by the record it points at.
//
// # Reports
//
// Inconsistencies are not errors. They go to report sinks (slog, JSON lines
// with optional zstd or lz4 compression, SQLite) and are summarised in the
// report.Summary returned by Run.
package graphcheck
