package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineLabelField(t *testing.T) {
	tests := []struct {
		name   string
		labels []int32
		inline bool
	}{
		{"empty", nil, true},
		{"single large", []int32{1 << 30}, true},
		{"unsorted kept in order", []int32{3, 1, 2}, true},
		{"seven small", []int32{1, 2, 3, 4, 5, 6, 7}, true},
		{"eight labels", []int32{1, 2, 3, 4, 5, 6, 7, 8}, false},
		{"seven with one too wide", []int32{1, 2, 3, 4, 5, 6, 256}, false},
		{"negative", []int32{-1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := InlineLabelField(tt.labels)
			require.Equal(t, tt.inline, ok)
			if !ok {
				return
			}
			assert.False(t, f.IsDynamic())
			assert.Equal(t, len(tt.labels), f.InlineCount())
			got := f.InlineLabels(nil)
			if len(tt.labels) == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.labels, got)
			}
		})
	}
}

func TestDynamicLabelField(t *testing.T) {
	f := DynamicLabelField(12345)
	assert.True(t, f.IsDynamic())
	assert.Equal(t, int64(12345), f.DynamicID())
	assert.Zero(t, f.InlineCount())
	assert.Empty(t, f.InlineLabels(nil))
}
