package arena

import (
	"errors"
	"sync"
	"testing"
	"unsafe"

	"github.com/hupe1980/graphcheck/internal/resource"
)

func newArena(t *testing.T, chunkSize int, opts ...Option) *Arena {
	t.Helper()
	a, err := New(chunkSize, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Free)
	return a
}

func TestArena_New(t *testing.T) {
	t.Run("default chunk size", func(t *testing.T) {
		a := newArena(t, 0)
		if a.ChunkSize() != DefaultChunkSize {
			t.Errorf("expected chunkSize=%d, got %d", DefaultChunkSize, a.ChunkSize())
		}
		if a.current.Load() == nil {
			t.Error("current chunk should not be nil")
		}
	})

	t.Run("rounds to power of two", func(t *testing.T) {
		a := newArena(t, 1025)
		if a.ChunkSize() != 2048 {
			t.Errorf("expected chunkSize=2048, got %d", a.ChunkSize())
		}
	})
}

func TestArena_Alloc(t *testing.T) {
	a := newArena(t, 1024)

	offset, data, err := a.Alloc(100)
	if err != nil {
		t.Fatal(err)
	}
	if offset == 0 {
		t.Error("offset 0 is reserved")
	}
	if len(data) != 100 || cap(data) != 100 {
		t.Errorf("expected length=cap=100, got %d/%d", len(data), cap(data))
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte at index %d not zero: %d", i, b)
		}
	}

	next, _, err := a.Alloc(1)
	if err != nil {
		t.Fatal(err)
	}
	if want := offset + 104; next != want {
		t.Errorf("expected padded offset %d, got %d", want, next)
	}

	for _, size := range []int{1, 3, 5, 7, 9, 15, 17} {
		_, b, err := a.Alloc(size)
		if err != nil {
			t.Fatal(err)
		}
		if uintptr(unsafe.Pointer(&b[0]))%DefaultAlignment != 0 {
			t.Errorf("size=%d not aligned", size)
		}
	}

	if _, _, err := a.Alloc(4096); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestArena_Int32Slice(t *testing.T) {
	a := newArena(t, 256)

	var offsets []uint64
	for i := range 50 {
		offset, s, err := a.AllocInt32Slice(4)
		if err != nil {
			t.Fatal(err)
		}
		for j := range s {
			s[j] = int32(i*10 + j)
		}
		offsets = append(offsets, offset)
	}

	if a.Stats().ActiveChunks < 2 {
		t.Fatalf("expected allocation to spill into several chunks, got %d", a.Stats().ActiveChunks)
	}

	for i, offset := range offsets {
		got := a.Int32s(offset, 4)
		for j, v := range got {
			if v != int32(i*10+j) {
				t.Fatalf("slice %d[%d]: expected %d, got %d", i, j, i*10+j, v)
			}
		}
	}
}

func TestArena_Reset(t *testing.T) {
	a := newArena(t, 256)

	for range 40 {
		if _, _, err := a.AllocInt32Slice(8); err != nil {
			t.Fatal(err)
		}
	}
	chunks := a.Stats().ActiveChunks
	gen := a.Generation()

	if err := a.Reset(); err != nil {
		t.Fatal(err)
	}
	if a.Generation() == gen {
		t.Error("generation should change on reset")
	}

	for range 40 {
		_, s, err := a.AllocInt32Slice(8)
		if err != nil {
			t.Fatal(err)
		}
		for _, v := range s {
			if v != 0 {
				t.Fatal("reused memory must be zeroed")
			}
		}
	}
	if a.Stats().ActiveChunks != chunks {
		t.Errorf("reset should reuse chunks: before=%d after=%d", chunks, a.Stats().ActiveChunks)
	}
}

func TestArena_MemoryAcquirer(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 2048})

	a, err := New(1024, WithMemoryAcquirer(rc))
	if err != nil {
		t.Fatal(err)
	}
	if rc.MemoryUsage() != 1024 {
		t.Errorf("expected 1024 reserved, got %d", rc.MemoryUsage())
	}

	for range 2 {
		if _, _, err := a.Alloc(1000); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := a.Alloc(1000); !errors.Is(err, resource.ErrMemoryLimitExceeded) {
		t.Errorf("expected ErrMemoryLimitExceeded, got %v", err)
	}

	a.Free()
	if rc.MemoryUsage() != 0 {
		t.Errorf("expected reservation released, got %d", rc.MemoryUsage())
	}

	if _, _, err := a.Alloc(8); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestArena_Concurrent(t *testing.T) {
	a := newArena(t, 4096)

	const goroutines = 8
	const perG = 500

	var wg sync.WaitGroup
	results := make([][]uint64, goroutines)
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perG {
				offset, s, err := a.AllocInt32Slice(2)
				if err != nil {
					t.Error(err)
					return
				}
				s[0], s[1] = int32(g), int32(i)
				results[g] = append(results[g], offset)
			}
		}()
	}
	wg.Wait()

	for g, offsets := range results {
		for i, offset := range offsets {
			s := a.Int32s(offset, 2)
			if s[0] != int32(g) || s[1] != int32(i) {
				t.Fatalf("goroutine %d alloc %d corrupted: %v", g, i, s)
			}
		}
	}
	if got := a.Stats().TotalAllocs; got != goroutines*perG+1 {
		t.Errorf("expected %d allocs, got %d", goroutines*perG+1, got)
	}
}
