package checker

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Tiling(t *testing.T) {
	const npr = 4
	// machine bytes chosen so nodesPerRange is exactly npr for 1-byte rows
	for _, high := range []int64{0, 1, npr - 1, npr, npr + 1, 3*npr + 2} {
		l := NewMemoryLimiter(0, 0, npr, 1, high)
		ranges := slices.Collect(l.Ranges())

		require.Len(t, ranges, l.NumberOfRanges(), "high=%d", high)
		assert.True(t, ranges[0].First)
		assert.True(t, ranges[len(ranges)-1].Last)

		var next int64
		for i, r := range ranges {
			assert.Equal(t, next, r.From, "high=%d range %d", high, i)
			assert.LessOrEqual(t, r.Size(), l.NodesPerRange())
			assert.Equal(t, i == 0, r.First)
			assert.Equal(t, i == len(ranges)-1, r.Last)
			next = r.To
		}
		assert.Equal(t, high, next)
	}
}

func TestMemoryLimiter_NumberOfRanges(t *testing.T) {
	tests := []struct {
		high int64
		want int
	}{
		{0, 1},
		{1, 1},
		{4, 1},
		{5, 2},
		{8, 2},
		{9, 3},
	}
	for _, tt := range tests {
		l := NewMemoryLimiter(0, 0, 4, 1, tt.high)
		assert.Equal(t, tt.want, l.NumberOfRanges(), "high=%d", tt.high)
	}
}

func TestMemoryLimiter_EmptyStore(t *testing.T) {
	l := NewMemoryLimiter(0, 0, 0, 16, 0)
	ranges := slices.Collect(l.Ranges())
	require.Len(t, ranges, 1)
	assert.Equal(t, Range{From: 0, To: 0, First: true, Last: true}, ranges[0])
	assert.Equal(t, int64(1), l.NodesPerRange())
}

func TestMemoryLimiter_OccupiedMemory(t *testing.T) {
	// 2GiB assumed machine, 1GiB page cache, 512MiB heap: 512MiB left.
	l := NewMemoryLimiter(gib, gib/2, 0, 16, 1<<40)
	assert.Equal(t, gib/2/16, l.NodesPerRange())

	// Nothing left still makes progress one node at a time.
	l = NewMemoryLimiter(gib, gib, gib, 16, 10)
	assert.Equal(t, int64(1), l.NodesPerRange())
	assert.Equal(t, 10, l.NumberOfRanges())
}

func TestRange(t *testing.T) {
	r := Range{From: 10, To: 20}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(19))
	assert.False(t, r.Contains(20))
	assert.False(t, r.Contains(-1))
	assert.Equal(t, int64(10), r.Size())
	assert.Equal(t, "[10,20)", r.String())
}
