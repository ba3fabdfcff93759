// Package minio provides a BlobStore backed by MinIO or any other
// S3-compatible object store, so a record store can be checked where it was
// backed up without copying it locally first.
//
//	store, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "backups", "graph.db/")
//
// Reads are ranged GETs; wrap the store in blobstore.CachingStore to serve
// record pages from memory.
package minio
