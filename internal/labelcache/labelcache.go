// Package labelcache stores node label lists that do not fit into a per-node
// cache row. Lists live in an off-heap arena and are addressed by offset.
package labelcache

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/graphcheck/internal/arena"
)

// DynamicNodeLabelsCache appends label lists and hands out offsets to them.
// Put may be called concurrently; Clear and Close may not.
type DynamicNodeLabelsCache struct {
	arena *arena.Arena
}

// New creates an empty cache. The arena's chunks are charged to acquirer if set.
func New(chunkSize int, acquirer arena.MemoryAcquirer) (*DynamicNodeLabelsCache, error) {
	var opts []arena.Option
	if acquirer != nil {
		opts = append(opts, arena.WithMemoryAcquirer(acquirer))
	}
	a, err := arena.New(chunkSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("labelcache: %w", err)
	}
	return &DynamicNodeLabelsCache{arena: a}, nil
}

// Put stores labels as {count, labels...} and returns the entry offset.
func (c *DynamicNodeLabelsCache) Put(labels []int32) (uint64, error) {
	offset, entry, err := c.arena.AllocInt32Slice(len(labels) + 1)
	if err != nil {
		return 0, fmt.Errorf("labelcache: put %d labels: %w", len(labels), err)
	}
	entry[0] = int32(len(labels))
	copy(entry[1:], labels)
	return offset, nil
}

// Get appends the labels stored at offset to dst.
func (c *DynamicNodeLabelsCache) Get(offset uint64, dst []int32) []int32 {
	n := int(c.arena.Int32s(offset, 1)[0])
	entry := c.arena.Int32s(offset, n+1)
	return append(dst, entry[1:]...)
}

// Clear drops every entry; offsets handed out before are invalid afterwards.
func (c *DynamicNodeLabelsCache) Clear() error {
	return c.arena.Reset()
}

// Close releases all memory.
func (c *DynamicNodeLabelsCache) Close() {
	c.arena.Free()
}

// Stats exposes the arena statistics.
func (c *DynamicNodeLabelsCache) Stats() arena.Stats {
	return c.arena.Stats()
}

// Generation changes on every Clear.
func (c *DynamicNodeLabelsCache) Generation() uint32 {
	return c.arena.Generation()
}

func (c *DynamicNodeLabelsCache) String() string {
	return c.arena.String()
}

func (c *DynamicNodeLabelsCache) LogValue() slog.Value {
	s := c.arena.Stats()
	return slog.GroupValue(
		slog.Uint64("generation", uint64(c.arena.Generation())),
		slog.Uint64("chunks", s.ActiveChunks),
		slog.Uint64("reserved_bytes", s.BytesReserved),
		slog.Uint64("used_bytes", s.BytesUsed),
		slog.Float64("usage_pct", c.arena.Usage()),
	)
}
