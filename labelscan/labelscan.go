// Package labelscan implements the label scan store: for every label token a
// roaring bitmap of the node ids carrying it.
package labelscan

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/graphcheck/blobstore"
)

// FileName is the blob name of the label scan store.
const FileName = "neostore.labelscanstore.db"

// TypeScanFileName is the blob name of the relationship type scan store. It
// has the same layout, with relationship ids in place of node ids and
// relationship types in place of labels.
const TypeScanFileName = "neostore.relationshiptypescanstore.db"

// RangeSize is the number of node ids covered by one NodeLabelRange.
const RangeSize = 64

// Unbounded may be passed as the upper bound of AllNodeLabelRanges.
const Unbounded int64 = math.MaxInt64

var magic = [4]byte{'L', 'S', 'S', '1'}

// ErrCorrupt is returned when a serialized store cannot be read.
var ErrCorrupt = errors.New("labelscan: corrupt store")

// NodeLabelRange is the label view of RangeSize consecutive node ids.
type NodeLabelRange struct {
	ID     int64
	labels [RangeSize][]int32
	nodes  []int64
}

// From returns the first node id of the range.
func (r *NodeLabelRange) From() int64 { return r.ID * RangeSize }

// Nodes returns the ids of nodes in the range that have at least one label,
// ascending.
func (r *NodeLabelRange) Nodes() []int64 { return r.nodes }

// Labels returns the sorted labels of node, or nil if node is outside the
// range or has none.
func (r *NodeLabelRange) Labels(node int64) []int32 {
	off := node - r.From()
	if off < 0 || off >= RangeSize {
		return nil
	}
	return r.labels[off]
}

// Store is an in-memory label scan store.
type Store struct {
	mu      sync.RWMutex
	bitmaps map[int32]*roaring64.Bitmap
}

// New returns an empty store.
func New() *Store {
	return &Store{bitmaps: make(map[int32]*roaring64.Bitmap)}
}

// Add records that node carries labels.
func (s *Store) Add(node int64, labels ...int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range labels {
		bm, ok := s.bitmaps[l]
		if !ok {
			bm = roaring64.New()
			s.bitmaps[l] = bm
		}
		bm.Add(uint64(node))
	}
}

// Remove drops label from node.
func (s *Store) Remove(node int64, label int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bm, ok := s.bitmaps[label]; ok {
		bm.Remove(uint64(node))
		if bm.IsEmpty() {
			delete(s.bitmaps, label)
		}
	}
}

// Labels returns the sorted labels of node.
func (s *Store) Labels(node int64) []int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int32
	for _, l := range s.sortedLabels() {
		if s.bitmaps[l].Contains(uint64(node)) {
			out = append(out, l)
		}
	}
	return out
}

// NodeCount returns the number of nodes carrying label.
func (s *Store) NodeCount(label int32) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bm, ok := s.bitmaps[label]; ok {
		return bm.GetCardinality()
	}
	return 0
}

func (s *Store) sortedLabels() []int32 {
	labels := make([]int32, 0, len(s.bitmaps))
	for l := range s.bitmaps {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// AllNodeLabelRanges yields, in ascending order, every range holding at least
// one labelled node id in [from, to). Nodes outside [from, to) are left out
// of the yielded ranges. Negative ids are never yielded.
func (s *Store) AllNodeLabelRanges(from, to int64) iter.Seq[*NodeLabelRange] {
	return func(yield func(*NodeLabelRange) bool) {
		from = max(from, 0)
		if to <= from {
			return
		}
		s.mu.RLock()
		if len(s.bitmaps) == 0 {
			s.mu.RUnlock()
			return
		}
		labels := s.sortedLabels()
		bitmaps := make([]*roaring64.Bitmap, len(labels))
		for i, l := range labels {
			bitmaps[i] = s.bitmaps[l]
		}
		union := roaring64.FastOr(bitmaps...)
		s.mu.RUnlock()

		it := union.Iterator()
		it.AdvanceIfNeeded(uint64(from))

		var cur *NodeLabelRange
		for it.HasNext() {
			v := it.Next()
			if v >= uint64(to) || v > math.MaxInt64 {
				break
			}
			node := int64(v)
			rangeID := node / RangeSize
			if cur != nil && cur.ID != rangeID {
				if !yield(cur) {
					return
				}
				cur = nil
			}
			if cur == nil {
				cur = &NodeLabelRange{ID: rangeID}
			}
			cur.nodes = append(cur.nodes, node)
			s.mu.RLock()
			for i, bm := range bitmaps {
				if bm.Contains(v) {
					cur.labels[node-cur.From()] = append(cur.labels[node-cur.From()], labels[i])
				}
			}
			s.mu.RUnlock()
		}
		if cur != nil {
			yield(cur)
		}
	}
}

// WriteTo serializes the store.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var buf bytes.Buffer
	buf.Write(magic[:])
	labels := s.sortedLabels()
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(labels)))
	for _, l := range labels {
		var bm bytes.Buffer
		if _, err := s.bitmaps[l].WriteTo(&bm); err != nil {
			return 0, err
		}
		_ = binary.Write(&buf, binary.LittleEndian, l)
		_ = binary.Write(&buf, binary.LittleEndian, uint32(bm.Len()))
		buf.Write(bm.Bytes())
	}
	return buf.WriteTo(w)
}

// ReadFrom replaces the contents of the store with a serialized store.
func (s *Store) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	n := int64(len(data))
	if len(data) < 8 || !bytes.Equal(data[:4], magic[:]) {
		return n, ErrCorrupt
	}
	count := binary.LittleEndian.Uint32(data[4:])
	data = data[8:]
	bitmaps := make(map[int32]*roaring64.Bitmap, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 8 {
			return n, ErrCorrupt
		}
		label := int32(binary.LittleEndian.Uint32(data))
		size := binary.LittleEndian.Uint32(data[4:])
		data = data[8:]
		if uint64(len(data)) < uint64(size) {
			return n, ErrCorrupt
		}
		bm := roaring64.New()
		if _, err := bm.ReadFrom(bytes.NewReader(data[:size])); err != nil {
			return n, fmt.Errorf("label %d: %w", label, errors.Join(ErrCorrupt, err))
		}
		bitmaps[label] = bm
		data = data[size:]
	}

	s.mu.Lock()
	s.bitmaps = bitmaps
	s.mu.Unlock()
	return n, nil
}

// Save writes the store to bs as the label scan store.
func (s *Store) Save(ctx context.Context, bs blobstore.BlobStore) error {
	return s.SaveFile(ctx, bs, FileName)
}

// SaveFile writes the store to bs under name.
func (s *Store) SaveFile(ctx context.Context, bs blobstore.BlobStore, name string) error {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return err
	}
	return bs.Put(ctx, name, buf.Bytes())
}

// Load reads the label scan store from bs.
func Load(ctx context.Context, bs blobstore.BlobStore) (*Store, error) {
	return LoadFile(ctx, bs, FileName)
}

// LoadFile reads the store named name from bs.
func LoadFile(ctx context.Context, bs blobstore.BlobStore, name string) (*Store, error) {
	blob, err := bs.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	s := New()
	if _, err := s.ReadFrom(rc); err != nil {
		return nil, err
	}
	return s, nil
}
