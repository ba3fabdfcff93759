package cache

import (
	"context"
	"encoding/binary"
	"hash/maphash"
	"sync"

	"github.com/hupe1980/graphcheck/internal/resource"
)

const numShards = 64

// ShardedLRUPageCache distributes pages across 64 LRU shards.
type ShardedLRUPageCache struct {
	shards   [numShards]*LRUPageCache
	seed     maphash.Seed
	capacity int64
}

// NewShardedLRUPageCache creates a sharded cache; capacity is split evenly.
func NewShardedLRUPageCache(capacity int64, rc *resource.Controller) *ShardedLRUPageCache {
	shardCapacity := max(capacity/numShards, 1)

	s := &ShardedLRUPageCache{
		seed:     maphash.MakeSeed(),
		capacity: capacity,
	}
	for i := range numShards {
		s.shards[i] = NewLRUPageCache(shardCapacity, rc)
	}
	return s
}

func (s *ShardedLRUPageCache) shard(key PageKey) *LRUPageCache {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_, _ = h.WriteString(key.File)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key.Page)
	_, _ = h.Write(buf[:])
	return s.shards[h.Sum64()%numShards]
}

// Get returns a cached page.
func (s *ShardedLRUPageCache) Get(ctx context.Context, key PageKey) ([]byte, bool) {
	return s.shard(key).Get(ctx, key)
}

// Set caches a page.
func (s *ShardedLRUPageCache) Set(ctx context.Context, key PageKey, b []byte) {
	s.shard(key).Set(ctx, key, b)
}

// Contains reports whether key is cached.
func (s *ShardedLRUPageCache) Contains(key PageKey) bool {
	return s.shard(key).Contains(key)
}

// Invalidate removes entries matching the predicate in every shard.
func (s *ShardedLRUPageCache) Invalidate(predicate func(key PageKey) bool) {
	var wg sync.WaitGroup
	wg.Add(numShards)
	for i := range numShards {
		go func(shard *LRUPageCache) {
			defer wg.Done()
			shard.Invalidate(predicate)
		}(s.shards[i])
	}
	wg.Wait()
}

// Close closes all shards.
func (s *ShardedLRUPageCache) Close() error {
	for i := range numShards {
		if err := s.shards[i].Close(); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns aggregated hit/miss statistics.
func (s *ShardedLRUPageCache) Stats() (hits, misses int64) {
	for i := range numShards {
		h, m := s.shards[i].Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Capacity returns the configured size in bytes.
func (s *ShardedLRUPageCache) Capacity() int64 {
	return s.capacity
}

// Size returns the total size across all shards.
func (s *ShardedLRUPageCache) Size() int64 {
	var total int64
	for i := range numShards {
		total += s.shards[i].Size()
	}
	return total
}

// ShardStats describes one shard.
type ShardStats struct {
	ShardID int
	Size    int64
	Hits    int64
	Misses  int64
}

// ShardStats returns per-shard statistics.
func (s *ShardedLRUPageCache) ShardStats() []ShardStats {
	stats := make([]ShardStats, numShards)
	for i := range numShards {
		h, m := s.shards[i].Stats()
		stats[i] = ShardStats{ShardID: i, Size: s.shards[i].Size(), Hits: h, Misses: m}
	}
	return stats
}
