// Package blobstore provides the I/O layer underneath the record stores.
//
// Every store file (nodes, relationships, properties, ...) is a blob. A
// checker only reads blobs; reports and fixtures are written through the same
// interface.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, blobs are memory-mapped
//   - MemoryStore: in-memory, used by tests and fixtures
//   - CachingStore: page cache in front of another store
//   - RetryingStore: exponential backoff for transient backend failures
//   - ThrottledStore: read throughput limit
//   - s3.Store, minio.Store: object storage backends in subpackages
//
// Wrappers compose:
//
//	var bs blobstore.BlobStore = s3store
//	bs = blobstore.NewRetryingStore(bs)
//	bs = blobstore.NewCachingStore(bs, pageCache, 8192)
package blobstore
