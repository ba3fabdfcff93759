package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/internal/resource"
)

func TestThrottledStore_CountsBytes(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.Put(ctx, "f", make([]byte, 4096)))

	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	store := NewThrottledStore(mem, rc)

	blob, err := store.Open(ctx, "f")
	require.NoError(t, err)

	buf := make([]byte, 1024)
	for off := int64(0); off < 4096; off += 1024 {
		_, err := blob.ReadAt(ctx, buf, off)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(4096), rc.BytesRead())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	tight := NewThrottledStore(mem, resource.NewController(resource.Config{IOLimitBytesPerSec: 1}))
	blob, err = tight.Open(ctx, "f")
	require.NoError(t, err)
	_, err = blob.ReadAt(cancelled, buf, 0)
	assert.Error(t, err)
}
