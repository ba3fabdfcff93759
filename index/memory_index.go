package index

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/graphcheck/blobstore"
	"github.com/hupe1980/graphcheck/store"
)

// ErrKeyCount is returned when a value tuple does not match the index keys.
var ErrKeyCount = errors.New("index: wrong number of values")

// Accessor is the read view a checker has on an online index.
type Accessor interface {
	Descriptor() Descriptor
	// Size returns the number of entries.
	Size() int64
	// AllEntries yields every indexed entity id in [from, to), ascending.
	AllEntries(from, to int64) iter.Seq[int64]
	// Lookup returns the entity ids indexed under values, once per entry.
	Lookup(values ...store.Value) []int64
}

type entry struct {
	Entity int64
	Values []store.Value
}

// MemoryIndex is an in-memory Accessor.
type MemoryIndex struct {
	desc     Descriptor
	mu       sync.RWMutex
	postings map[string][]int64
	entities *roaring64.Bitmap
	entries  []entry
}

// NewMemoryIndex returns an empty index for desc.
func NewMemoryIndex(desc Descriptor) *MemoryIndex {
	return &MemoryIndex{
		desc:     desc,
		postings: make(map[string][]int64),
		entities: roaring64.New(),
	}
}

func (m *MemoryIndex) Descriptor() Descriptor { return m.desc }

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries))
}

// Add indexes entity under values. Adding the same pair twice creates two
// entries.
func (m *MemoryIndex) Add(entity int64, values ...store.Value) error {
	if len(values) != len(m.desc.Keys) {
		return fmt.Errorf("%w: want %d, got %d", ErrKeyCount, len(m.desc.Keys), len(values))
	}
	k := valueKey(values)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postings[k] = append(m.postings[k], entity)
	if entity >= 0 {
		m.entities.Add(uint64(entity))
	}
	m.entries = append(m.entries, entry{Entity: entity, Values: values})
	return nil
}

func (m *MemoryIndex) AllEntries(from, to int64) iter.Seq[int64] {
	return func(yield func(int64) bool) {
		from = max(from, 0)
		if to <= from {
			return
		}
		m.mu.RLock()
		ids := m.entities.Clone()
		m.mu.RUnlock()

		it := ids.Iterator()
		it.AdvanceIfNeeded(uint64(from))
		for it.HasNext() {
			v := it.Next()
			if v >= uint64(to) || v > math.MaxInt64 {
				return
			}
			if !yield(int64(v)) {
				return
			}
		}
	}
}

func (m *MemoryIndex) Lookup(values ...store.Value) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.postings[valueKey(values)]...)
}

func valueKey(values []store.Value) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(0)
		}
		fmt.Fprintf(&sb, "%d:%s", v.Type, v)
	}
	return sb.String()
}

// FileName returns the blob name holding the entries of index id.
func FileName(id int64) string {
	return fmt.Sprintf("index/%d.idx", id)
}

// Save writes the entries of the index to bs.
func (m *MemoryIndex) Save(ctx context.Context, bs blobstore.BlobStore) error {
	w, err := bs.Create(ctx, FileName(m.desc.ID))
	if err != nil {
		return err
	}
	m.mu.RLock()
	err = gob.NewEncoder(w).Encode(m.entries)
	m.mu.RUnlock()
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("encode index %d: %w", m.desc.ID, err)
	}
	return w.Close()
}

// Load reads the entries of the index described by desc from bs.
func Load(ctx context.Context, bs blobstore.BlobStore, desc Descriptor) (*MemoryIndex, error) {
	blob, err := bs.Open(ctx, FileName(desc.ID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()
	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var entries []entry
	if err := gob.NewDecoder(rc).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode index %d: %w", desc.ID, err)
	}
	m := NewMemoryIndex(desc)
	for _, e := range entries {
		if err := m.Add(e.Entity, e.Values...); err != nil {
			return nil, fmt.Errorf("index %d entity %d: %w", desc.ID, e.Entity, err)
		}
	}
	return m, nil
}
