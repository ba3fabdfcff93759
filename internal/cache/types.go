package cache

import "context"

// PageKey identifies one page of one store file.
type PageKey struct {
	// File is the blob name of the store file.
	File string
	// Page is the page index within the file.
	Page uint64
}

// PageCache is a byte-oriented cache for immutable pages.
// Returned slices must be treated as read-only.
type PageCache interface {
	// Get returns a cached page. ok=false if missing.
	Get(ctx context.Context, key PageKey) (b []byte, ok bool)
	// Set caches a page. Implementations may retain b; callers must not mutate it.
	Set(ctx context.Context, key PageKey, b []byte)
	// Contains reports whether key is cached without touching recency or stats.
	Contains(key PageKey) bool
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key PageKey) bool)
	// Close releases any resources.
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
	// Capacity returns the configured size in bytes.
	Capacity() int64
}
