package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "b", []byte("bravo")))
	w, err := store.Create(ctx, "a")
	require.NoError(t, err)
	_, err = w.Write([]byte("alpha"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)
	buf := make([]byte, 3)
	n, err := blob.ReadAt(ctx, buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "pha", string(buf[:n]))

	n, err = blob.ReadAt(ctx, buf, -1)
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Open(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}
