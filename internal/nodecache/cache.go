package nodecache

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/graphcheck/internal/mmap"
)

// Null is the id sentinel used throughout the store.
const Null int64 = -1

// RowBytes is the memory one node occupies in the cache.
const RowBytes = 16

const (
	bitA     = uint64(1) << 63
	bitB     = uint64(1) << 62
	bitC     = uint64(1) << 61
	bitD     = uint64(1) << 60
	bitE     = uint64(1) << 59
	idBits   = 48
	idMask   = uint64(1)<<idBits - 1
	flagMask = bitA | bitB | bitC | bitD | bitE
)

// MaxID is the largest relationship id a row can hold.
const MaxID = int64(idMask) - 1

// ErrOutOfRange is returned for node offsets outside the cache capacity.
var ErrOutOfRange = errors.New("nodecache: offset out of range")

// MemoryAcquirer reserves memory from a shared budget.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

// Cache is a fixed-capacity array of node rows.
type Cache struct {
	mapping  *mmap.Region
	words    []uint64
	capacity int64
	acquirer MemoryAcquirer
}

// New allocates rows for capacity nodes, charging the memory to acquirer if set.
func New(capacity int64, acquirer MemoryAcquirer) (*Cache, error) {
	if capacity < 1 {
		capacity = 1
	}
	size := capacity * RowBytes
	if acquirer != nil {
		if err := acquirer.AcquireMemory(size); err != nil {
			return nil, fmt.Errorf("nodecache: reserve %d bytes: %w", size, err)
		}
	}
	m, err := mmap.Anonymous(int(size))
	if err != nil {
		if acquirer != nil {
			acquirer.ReleaseMemory(size)
		}
		return nil, fmt.Errorf("nodecache: %w", err)
	}
	return &Cache{
		mapping:  m,
		words:    m.Words(),
		capacity: capacity,
		acquirer: acquirer,
	}, nil
}

// Capacity returns the number of rows.
func (c *Cache) Capacity() int64 {
	return c.capacity
}

// Clear zeroes every row.
func (c *Cache) Clear() {
	for i := range c.words {
		atomic.StoreUint64(&c.words[i], 0)
	}
}

// Close releases the mapping and its memory reservation.
func (c *Cache) Close() error {
	if c.mapping == nil {
		return nil
	}
	err := c.mapping.Close()
	c.mapping = nil
	c.words = nil
	if c.acquirer != nil {
		c.acquirer.ReleaseMemory(c.capacity * RowBytes)
	}
	return err
}

// Contains reports whether offset addresses a row.
func (c *Cache) Contains(offset int64) bool {
	return offset >= 0 && offset < c.capacity
}

func (c *Cache) load(offset int64, word int) uint64 {
	return atomic.LoadUint64(&c.words[offset*2+int64(word)])
}

func (c *Cache) store(offset int64, word int, v uint64) {
	atomic.StoreUint64(&c.words[offset*2+int64(word)], v)
}

func (c *Cache) setBits(offset int64, bits uint64) {
	p := &c.words[offset*2]
	for {
		old := atomic.LoadUint64(p)
		if old&bits == bits || atomic.CompareAndSwapUint64(p, old, old|bits) {
			return
		}
	}
}

func (c *Cache) clearBits(offset int64, bits uint64) {
	p := &c.words[offset*2]
	for {
		old := atomic.LoadUint64(p)
		if old&bits == 0 || atomic.CompareAndSwapUint64(p, old, old&^bits) {
			return
		}
	}
}

func encodeID(id int64) uint64 {
	if id < 0 || id > MaxID {
		return 0
	}
	return uint64(id + 1)
}

func decodeID(w uint64) int64 {
	return int64(w&idMask) - 1
}

func flag(set bool, bit uint64) uint64 {
	if set {
		return bit
	}
	return 0
}
