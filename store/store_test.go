package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/blobstore"
)

func openBuilt(t *testing.T, b *Builder) *Stores {
	t.Helper()
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	require.NoError(t, b.Write(ctx, bs))
	s, err := Open(ctx, bs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewBuilder()
	b.LabelToken(0, "Person").RelationshipType(0, "KNOWS").PropertyKey(0, "name")
	name := b.String("Ada Lovelace")
	b.Property(Property{ID: 0, InUse: true, Prev: Null, Next: Null, Blocks: []PropertyBlock{
		{Key: 0, Type: PropertyString, Value: name},
		LongBlock(0, 42),
	}})
	b.Node(Node{ID: 0, InUse: true, NextRel: 0, NextProp: 0, Labels: b.Labels(0, 0)})
	b.Node(Node{ID: 1, InUse: true, Dense: true, NextRel: Null, NextProp: Null})
	b.Relationship(Relationship{
		ID: 0, InUse: true, Type: 0, FirstNode: 0, SecondNode: 1,
		FirstPrev: 1, FirstNext: Null, SecondPrev: 1, SecondNext: Null,
		FirstInFirstChain: true, FirstInSecondChain: true, NextProp: Null,
	})

	s := openBuilt(t, b)
	assert.Equal(t, int64(2), s.Nodes.HighID())
	assert.Equal(t, int64(1), s.Relationships.HighID())
	assert.Equal(t, int64(0), s.Groups.HighID())

	n, err := s.Nodes.Get(ctx, 1, LoadNormal)
	require.NoError(t, err)
	assert.True(t, n.Dense)
	assert.Equal(t, Null, n.NextRel)

	r, err := s.Relationships.Get(ctx, 0, LoadNormal)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.SecondNode)
	assert.True(t, r.FirstInSecondChain)
	assert.Equal(t, int64(1), r.FirstPrev)

	p, err := s.Properties.Get(ctx, 0, LoadNormal)
	require.NoError(t, err)
	require.Len(t, p.Blocks, 2)
	assert.Equal(t, PropertyString, p.Blocks[0].Type)

	d, err := s.Strings.Get(ctx, p.Blocks[0].Value, LoadNormal)
	require.NoError(t, err)
	assert.True(t, d.Start)
	assert.Equal(t, "Ada Lovelace", string(d.Data[:d.Length]))

	tok, err := s.LabelTokens.Get(ctx, 0, LoadNormal)
	require.NoError(t, err)
	assert.Equal(t, "Person", tok.Name)
}

func TestRecordStore_OutOfRangeReadsUnused(t *testing.T) {
	ctx := context.Background()
	s := openBuilt(t, NewBuilder().Node(Node{ID: 0, InUse: true, NextRel: Null, NextProp: Null}))

	for _, id := range []int64{-1, 1, 99} {
		n, err := s.Nodes.Get(ctx, id, LoadCheck)
		require.NoError(t, err)
		assert.False(t, n.InUse)
		assert.Equal(t, Null, n.NextRel)

		_, err = s.Nodes.Get(ctx, id, LoadNormal)
		assert.ErrorIs(t, err, ErrRecordNotInUse)
	}
}

func TestRecordStore_PageLayout(t *testing.T) {
	ctx := context.Background()
	// 8192/72 leaves a gap at the end of each property page.
	rpp := int64(PageSize / PropertyRecordSize)
	b := NewBuilder()
	for _, id := range []int64{0, rpp - 1, rpp, 2*rpp + 3} {
		b.Property(Property{ID: id, InUse: true, Prev: Null, Next: id})
	}
	s := openBuilt(t, b)

	assert.Equal(t, rpp, s.Properties.RecordsPerPage())
	assert.Equal(t, 2*rpp+4, s.Properties.HighID())
	assert.Equal(t, int64(3), s.Properties.Pages())

	cur := s.Properties.OpenCursor(0)
	for _, id := range []int64{0, rpp - 1, rpp, 2*rpp + 3} {
		p, err := cur.Get(ctx, id, LoadNormal)
		require.NoError(t, err)
		assert.Equal(t, id, p.Next)
		assert.Equal(t, s.Properties.PageOf(id), cur.Page())
	}
	p, err := cur.Get(ctx, 1, LoadCheck)
	require.NoError(t, err)
	assert.False(t, p.InUse)
}

func TestNodeLabelChain(t *testing.T) {
	ctx := context.Background()
	labels := make([]int32, 20)
	for i := range labels {
		labels[i] = int32(i * 3)
	}
	b := NewBuilder()
	field := b.Labels(7, labels...)
	require.True(t, field.IsDynamic())
	s := openBuilt(t, b)

	var payload []byte
	for id := field.DynamicID(); id != Null; {
		d, err := s.NodeLabels.Get(ctx, id, LoadNormal)
		require.NoError(t, err)
		payload = append(payload, d.Data[:d.Length]...)
		id = d.Next
	}
	owner, got, err := DecodeNodeLabels(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(7), owner)
	assert.Equal(t, labels, got)
}

func TestDecodeArray_Malformed(t *testing.T) {
	good := EncodeArray([]int64{1, 2, 3})
	v, err := DecodeArray(good)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, v)

	_, err = DecodeArray(good[:len(good)-1])
	assert.ErrorIs(t, err, ErrMalformedPayload)

	bad := append([]byte(nil), good...)
	bad[0] = byte(PropertyString)
	_, err = DecodeArray(bad)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestInlineValue(t *testing.T) {
	v, err := InlineValue(DoubleBlock(1, 2.5))
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.Double)

	v, err = InlineValue(BoolBlock(1, true))
	require.NoError(t, err)
	assert.True(t, v.Bool)

	_, err = InlineValue(PropertyBlock{Type: PropertyBool, Value: 7})
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = InlineValue(PropertyBlock{Type: PropertyString})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestBuilder_TokenNameTooLong(t *testing.T) {
	b := NewBuilder().LabelToken(0, "a-label-name-that-is-longer-than-32-bytes")
	_, err := b.Files()
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestValue_StringAndEqual(t *testing.T) {
	name := Value{Type: PropertyString, Text: "Alice"}
	assert.Equal(t, `"Alice"`, name.String())
	assert.Equal(t, "[1 2]", Value{Type: PropertyArray, Array: []int64{1, 2}}.String())
	assert.Equal(t, "<invalid>", Value{}.String())

	assert.True(t, name.Equal(Value{Type: PropertyString, Text: "Alice"}))
	assert.False(t, name.Equal(Value{Type: PropertyString, Text: "Bob"}))
	assert.False(t, Value{Type: PropertyLong, Long: 1}.Equal(Value{Type: PropertyString, Text: "1"}))
	assert.False(t, Value{Type: PropertyArray, Array: []int64{1}}.Equal(Value{Type: PropertyArray, Array: []int64{1, 2}}))
}
