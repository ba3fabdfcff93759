package arena

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/graphcheck/internal/mmap"
)

// MemoryAcquirer reserves memory from a shared budget.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

var (
	// ErrMaxChunksExceeded is returned when the arena exceeds the maximum number of chunks.
	ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")
	// ErrTooLarge is returned when a single allocation does not fit into a chunk.
	ErrTooLarge = errors.New("arena: allocation larger than chunk")
	// ErrClosed is returned when allocating from a freed arena.
	ErrClosed = errors.New("arena: closed")
)

const (
	// DefaultChunkSize is the default size of a chunk (1MB).
	DefaultChunkSize = 1024 * 1024
	// DefaultAlignment is the default memory alignment (8 bytes).
	DefaultAlignment = 8
	// MaxChunks limits the number of chunks (64GB with 1MB chunks).
	MaxChunks = 65536
)

// Stats tracks arena memory usage.
type Stats struct {
	ChunksAllocated uint64 // total chunks ever mapped
	BytesReserved   uint64 // memory currently mapped
	BytesUsed       uint64 // bytes requested since last Reset
	BytesWasted     uint64 // alignment padding since last Reset
	ActiveChunks    uint64
	TotalAllocs     uint64
}

type atomicStats struct {
	ChunksAllocated atomic.Uint64
	BytesReserved   atomic.Uint64
	BytesUsed       atomic.Uint64
	BytesWasted     atomic.Uint64
	ActiveChunks    atomic.Uint64
	TotalAllocs     atomic.Uint64
}

type chunk struct {
	data    []byte
	mapping *mmap.Region
	offset  atomic.Int64
	index   uint32
}

// Arena is a concurrent bump allocator over off-heap chunks.
type Arena struct {
	chunkSize  int
	chunkBits  int
	chunkMask  uint64
	alignment  int
	chunks     []atomic.Pointer[chunk]
	chunkCount atomic.Uint32
	current    atomic.Pointer[chunk]
	mu         sync.Mutex
	stats      atomicStats
	generation atomic.Uint32
	acquirer   MemoryAcquirer
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer charges every mapped chunk against acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// New creates an arena whose chunk size is chunkSize rounded up to a power of two.
func New(chunkSize int, opts ...Option) (*Arena, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	chunkBits := bits.Len(uint(chunkSize - 1))
	chunkSize = 1 << chunkBits

	a := &Arena{
		chunkSize: chunkSize,
		chunkBits: chunkBits,
		chunkMask: uint64(chunkSize - 1),
		alignment: DefaultAlignment,
		chunks:    make([]atomic.Pointer[chunk], MaxChunks),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.generation.Store(1)

	if err := a.allocateChunk(); err != nil {
		return nil, err
	}
	if err := a.reserveNull(); err != nil {
		return nil, err
	}
	return a, nil
}

// reserveNull burns offset 0 so it can mean "nothing".
func (a *Arena) reserveNull() error {
	_, _, err := a.alloc(1)
	return err
}

// Generation changes on every Reset and Free.
func (a *Arena) Generation() uint32 {
	return a.generation.Load()
}

// ChunkSize returns the effective chunk size.
func (a *Arena) ChunkSize() int {
	return a.chunkSize
}

func (a *Arena) allocateChunk() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocateChunkLocked()
}

func (a *Arena) allocateChunkLocked() error {
	idx := a.chunkCount.Load()
	if idx >= MaxChunks {
		return ErrMaxChunksExceeded
	}

	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(int64(a.chunkSize)); err != nil {
			return err
		}
	}

	mapping, err := mmap.Anonymous(a.chunkSize)
	if err != nil {
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(int64(a.chunkSize))
		}
		return fmt.Errorf("arena: map chunk: %w", err)
	}

	c := &chunk{data: mapping.Bytes(), mapping: mapping, index: idx}
	a.chunks[idx].Store(c)

	a.stats.ChunksAllocated.Add(1)
	a.stats.BytesReserved.Add(uint64(a.chunkSize))
	a.stats.ActiveChunks.Add(1)

	// Count before current so Get sees the chunk once Alloc hands out its offsets.
	a.chunkCount.Add(1)
	a.current.Store(c)

	return nil
}

// Alloc allocates size bytes and returns the global offset and the zeroed slice.
func (a *Arena) Alloc(size int) (uint64, []byte, error) {
	if size <= 0 {
		return 0, nil, nil
	}
	return a.alloc(size)
}

func (a *Arena) alloc(size int) (uint64, []byte, error) {
	mask := a.alignment - 1
	alignedSize := (size + mask) & ^mask
	if alignedSize > a.chunkSize {
		return 0, nil, ErrTooLarge
	}

	for {
		curr := a.current.Load()
		if curr == nil {
			return 0, nil, ErrClosed
		}

		if offset, data, ok := a.tryAllocInChunk(curr, size, alignedSize); ok {
			return offset, data, nil
		}

		if a.current.Load() != curr {
			continue
		}

		a.mu.Lock()
		if a.current.Load() != curr {
			a.mu.Unlock()
			continue
		}
		if err := a.nextChunkLocked(curr); err != nil {
			a.mu.Unlock()
			return 0, nil, err
		}
		a.mu.Unlock()
	}
}

// nextChunkLocked advances to a chunk kept from before a Reset, or maps a new one.
func (a *Arena) nextChunkLocked(curr *chunk) error {
	next := curr.index + 1
	if next < a.chunkCount.Load() {
		c := a.chunks[next].Load()
		c.offset.Store(0)
		a.current.Store(c)
		return nil
	}
	return a.allocateChunkLocked()
}

func (a *Arena) tryAllocInChunk(curr *chunk, size, alignedSize int) (uint64, []byte, bool) {
	for {
		oldOffset := curr.offset.Load()
		newOffset := oldOffset + int64(alignedSize)
		if newOffset > int64(len(curr.data)) {
			return 0, nil, false
		}
		if !curr.offset.CompareAndSwap(oldOffset, newOffset) {
			continue
		}

		a.stats.BytesUsed.Add(uint64(size))
		a.stats.BytesWasted.Add(uint64(alignedSize - size))
		a.stats.TotalAllocs.Add(1)

		global := (uint64(curr.index) << a.chunkBits) | uint64(oldOffset)
		clear(curr.data[oldOffset:newOffset])
		end := oldOffset + int64(size)
		return global, curr.data[oldOffset:end:end], true
	}
}

// Get returns a pointer to the memory at the given global offset.
// It panics on offsets that do not belong to a mapped chunk.
func (a *Arena) Get(offset uint64) unsafe.Pointer {
	chunkIdx := offset >> a.chunkBits
	if chunkIdx >= uint64(a.chunkCount.Load()) {
		panic("arena: stale offset")
	}
	c := a.chunks[chunkIdx].Load()
	if c == nil {
		panic("arena: chunk is nil")
	}
	return unsafe.Add(unsafe.Pointer(&c.data[0]), offset&a.chunkMask) //nolint:gosec // arena memory is off-heap
}

// AllocInt32Slice allocates an int32 slice of length n and returns it with its offset.
func (a *Arena) AllocInt32Slice(n int) (uint64, []int32, error) {
	if n <= 0 {
		return 0, nil, nil
	}
	offset, b, err := a.Alloc(n * 4)
	if err != nil {
		return 0, nil, err
	}
	return offset, unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), n), nil //nolint:gosec // arena memory is off-heap
}

// Int32s returns the int32 slice of length n starting at offset.
func (a *Arena) Int32s(offset uint64, n int) []int32 {
	if n <= 0 {
		return nil
	}
	return unsafe.Slice((*int32)(a.Get(offset)), n)
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	return Stats{
		ChunksAllocated: a.stats.ChunksAllocated.Load(),
		BytesReserved:   a.stats.BytesReserved.Load(),
		BytesUsed:       a.stats.BytesUsed.Load(),
		BytesWasted:     a.stats.BytesWasted.Load(),
		ActiveChunks:    a.stats.ActiveChunks.Load(),
		TotalAllocs:     a.stats.TotalAllocs.Load(),
	}
}

// Reset invalidates every allocation. Mapped chunks are kept and reused.
// It must not run concurrently with Alloc.
func (a *Arena) Reset() error {
	a.mu.Lock()
	a.generation.Add(1)
	first := a.chunks[0].Load()
	if first == nil {
		a.mu.Unlock()
		return ErrClosed
	}
	first.offset.Store(0)
	a.current.Store(first)
	a.stats.BytesUsed.Store(0)
	a.stats.BytesWasted.Store(0)
	a.mu.Unlock()

	return a.reserveNull()
}

// Free unmaps all chunks and releases their reservation. The arena cannot be
// used afterwards. Free is idempotent.
func (a *Arena) Free() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.acquirer != nil {
		if reserved := a.stats.BytesReserved.Load(); reserved > 0 {
			a.acquirer.ReleaseMemory(int64(reserved))
		}
	}

	a.generation.Add(1)

	count := int(a.chunkCount.Load())
	for i := 0; i < count; i++ {
		if c := a.chunks[i].Load(); c != nil && c.mapping != nil {
			_ = c.mapping.Close()
		}
		a.chunks[i].Store(nil)
	}
	a.chunkCount.Store(0)
	a.current.Store(nil)

	a.stats.ActiveChunks.Store(0)
	a.stats.BytesReserved.Store(0)
	a.stats.BytesUsed.Store(0)
	a.stats.BytesWasted.Store(0)
}

// Usage returns the percentage of reserved memory handed out.
func (a *Arena) Usage() float64 {
	stats := a.Stats()
	if stats.BytesReserved == 0 {
		return 0
	}
	return float64(stats.BytesUsed) / float64(stats.BytesReserved) * 100
}

func (a *Arena) String() string {
	stats := a.Stats()
	return fmt.Sprintf(
		"Arena{chunks: %d, reserved: %.2f MB, used: %.2f MB, wasted: %.2f KB, usage: %.1f%%, allocs: %d}",
		stats.ActiveChunks,
		float64(stats.BytesReserved)/(1024*1024),
		float64(stats.BytesUsed)/(1024*1024),
		float64(stats.BytesWasted)/1024,
		a.Usage(),
		stats.TotalAllocs,
	)
}
