// Package cache provides the LRU page cache that sits between the record
// stores and their blob backend.
//
// ShardedLRUPageCache spreads pages over 64 shards, each guarded by its own
// mutex, so checker workers reading different pages rarely contend. Cached
// bytes are charged against a resource.Controller when one is provided.
package cache
