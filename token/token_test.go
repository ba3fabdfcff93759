package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/blobstore"
	"github.com/hupe1980/graphcheck/store"
)

func TestLoadAll(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	b := store.NewBuilder().
		LabelToken(0, "Person").
		LabelToken(2, "City").
		RelationshipType(0, "LIVES_IN").
		PropertyKey(0, "name")
	require.NoError(t, b.Write(ctx, bs))

	s, err := store.Open(ctx, bs)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	tokens, err := LoadAll(ctx, s)
	require.NoError(t, err)

	assert.Equal(t, 2, tokens.Labels.Len())
	assert.Equal(t, int64(3), tokens.Labels.HighID())
	assert.True(t, tokens.Labels.Valid(2))
	assert.False(t, tokens.Labels.Valid(1), "slot 1 was never written")
	assert.False(t, tokens.Labels.Valid(-1))

	name, ok := tokens.RelationshipTypes.Name(0)
	require.True(t, ok)
	assert.Equal(t, "LIVES_IN", name)

	id, ok := tokens.PropertyKeys.ID("name")
	require.True(t, ok)
	assert.Equal(t, int32(0), id)
}

func TestHolder_NilIsEmpty(t *testing.T) {
	var h *Holder
	assert.False(t, h.Valid(0))
}
