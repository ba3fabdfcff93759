package labelscan

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/blobstore"
)

func collect(s *Store, from, to int64) []*NodeLabelRange {
	var out []*NodeLabelRange
	for r := range s.AllNodeLabelRanges(from, to) {
		out = append(out, r)
	}
	return out
}

func TestAllNodeLabelRanges(t *testing.T) {
	s := New()
	s.Add(1, 5, 2)
	s.Add(63, 2)
	s.Add(64, 7)
	s.Add(200, 1, 2, 3)

	ranges := collect(s, 0, Unbounded)
	require.Len(t, ranges, 3)

	assert.Equal(t, int64(0), ranges[0].ID)
	assert.Equal(t, []int64{1, 63}, ranges[0].Nodes())
	assert.Equal(t, []int32{2, 5}, ranges[0].Labels(1))
	assert.Equal(t, []int32{2}, ranges[0].Labels(63))
	assert.Nil(t, ranges[0].Labels(64))

	assert.Equal(t, int64(1), ranges[1].ID)
	assert.Equal(t, []int32{7}, ranges[1].Labels(64))

	assert.Equal(t, int64(3), ranges[2].ID)
	assert.Equal(t, []int32{1, 2, 3}, ranges[2].Labels(200))
}

func TestAllNodeLabelRanges_Bounds(t *testing.T) {
	s := New()
	for n := int64(0); n < 10; n++ {
		s.Add(n, 1)
	}

	ranges := collect(s, 3, 6)
	require.Len(t, ranges, 1)
	assert.Equal(t, []int64{3, 4, 5}, ranges[0].Nodes())

	assert.Empty(t, collect(s, 6, 6))
	assert.Empty(t, collect(s, 10, Unbounded))
}

func TestAllNodeLabelRanges_EarlyBreak(t *testing.T) {
	s := New()
	s.Add(0, 1)
	s.Add(100, 1)
	s.Add(1000, 1)

	var seen int
	for range s.AllNodeLabelRanges(0, Unbounded) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestStore_RemoveAndLabels(t *testing.T) {
	s := New()
	s.Add(4, 3, 1)
	assert.Equal(t, []int32{1, 3}, s.Labels(4))
	s.Remove(4, 3)
	assert.Equal(t, []int32{1}, s.Labels(4))
	assert.Zero(t, s.NodeCount(3))
	assert.Equal(t, uint64(1), s.NodeCount(1))
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	s := New()
	s.Add(1, 1)
	s.Add(1<<40, 2)
	require.NoError(t, s.Save(ctx, bs))

	loaded, err := Load(ctx, bs)
	require.NoError(t, err)
	assert.Equal(t, []int32{1}, loaded.Labels(1))
	assert.Equal(t, []int32{2}, loaded.Labels(1<<40))
}

func TestStore_SaveLoadTypeScan(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	s := New()
	s.Add(7, 3)
	require.NoError(t, s.SaveFile(ctx, bs, TypeScanFileName))

	_, err := Load(ctx, bs)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	loaded, err := LoadFile(ctx, bs, TypeScanFileName)
	require.NoError(t, err)
	assert.Equal(t, []int32{3}, loaded.Labels(7))
}

func TestStore_ReadFromCorrupt(t *testing.T) {
	_, err := New().ReadFrom(bytes.NewReader([]byte("nope")))
	assert.ErrorIs(t, err, ErrCorrupt)

	var buf bytes.Buffer
	s := New()
	s.Add(1, 1)
	_, err = s.WriteTo(&buf)
	require.NoError(t, err)
	truncated := buf.Bytes()[:buf.Len()-2]
	_, err = New().ReadFrom(bytes.NewReader(truncated))
	assert.ErrorIs(t, err, ErrCorrupt)
}
