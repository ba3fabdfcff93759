package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/graphcheck/internal/storetest"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
)

func TestChecker_PropertyChains(t *testing.T) {
	// Node 0 owns the chain starting at property record 4.
	prop := func(id, prev, next int64, blocks ...store.PropertyBlock) store.Property {
		return store.Property{ID: id, InUse: true, Prev: prev, Next: next, Blocks: blocks}
	}
	tests := []struct {
		name  string
		build func(b *store.Builder)
		want  []finding
	}{
		{
			name: "consistent",
			build: func(b *store.Builder) {
				name := b.String("Alice")
				tags := b.Array([]int64{1, 2, 3})
				b.Property(prop(4, store.Null, 5, store.PropertyBlock{Key: 0, Type: store.PropertyString, Value: name}))
				b.Property(prop(5, 4, store.Null,
					store.LongBlock(1, 30),
					store.PropertyBlock{Key: 2, Type: store.PropertyArray, Value: tags},
					store.BoolBlock(3, true)))
			},
		},
		{
			name: "first record not in use",
			build: func(b *store.Builder) {
				b.Property(store.Property{ID: 4, Prev: store.Null, Next: store.Null})
			},
			want: []finding{{report.PropertyNotInUse, 0}},
		},
		{
			name: "next not in use",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, 5, store.LongBlock(0, 1)))
				b.Property(store.Property{ID: 5, Prev: 4, Next: store.Null})
			},
			want: []finding{{report.PropNextNotInUse, 4}},
		},
		{
			name: "previous does not reference back",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, 5, store.LongBlock(0, 1)))
				b.Property(prop(5, 3, store.Null, store.LongBlock(1, 2)))
			},
			want: []finding{{report.PropPreviousDoesNotReferenceBack, 5}},
		},
		{
			name: "not first in chain",
			build: func(b *store.Builder) {
				b.Property(prop(4, 2, store.Null, store.LongBlock(0, 1)))
			},
			want: []finding{{report.PropertyNotFirstInChain, 0}},
		},
		{
			name: "key repeated across records",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, 5, store.LongBlock(0, 1)))
				b.Property(prop(5, 4, store.Null, store.LongBlock(0, 2)))
			},
			want: []finding{{report.PropertyKeyNotUniqueInChain, 0}},
		},
		{
			name: "key repeated after undecodable value",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, store.Null,
					store.PropertyBlock{Key: 0, Type: store.PropertyBool, Value: 2},
					store.LongBlock(0, 1)))
			},
			want: []finding{
				{report.PropInvalidPropertyValue, 4},
				{report.PropertyKeyNotUniqueInChain, 0},
			},
		},
		{
			name: "string without record",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, store.Null, store.PropertyBlock{Key: 0, Type: store.PropertyString, Value: store.Null}))
			},
			want: []finding{{report.PropStringEmpty, 4}},
		},
		{
			name: "array without record",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, store.Null, store.PropertyBlock{Key: 2, Type: store.PropertyArray, Value: store.Null}))
			},
			want: []finding{{report.PropArrayEmpty, 4}},
		},
		{
			name: "string record not in use",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, store.Null, store.PropertyBlock{Key: 0, Type: store.PropertyString, Value: 7}))
			},
			want: []finding{{report.PropStringNotInUse, 4}},
		},
		{
			name: "malformed array",
			build: func(b *store.Builder) {
				b.ArrayRecord(store.DynamicRecord{ID: 0, InUse: true, Start: true, Length: 3, Next: store.Null, Data: []byte{1, 2, 3}})
				b.Property(prop(4, store.Null, store.Null, store.PropertyBlock{Key: 2, Type: store.PropertyArray, Value: 0}))
			},
			want: []finding{{report.PropInvalidPropertyValue, 4}},
		},
		{
			name: "invalid bool",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, store.Null, store.PropertyBlock{Key: 3, Type: store.PropertyBool, Value: 2}))
			},
			want: []finding{{report.PropInvalidPropertyValue, 4}},
		},
		{
			name: "invalid type",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, store.Null, store.PropertyBlock{Key: 1, Type: store.PropertyInvalid, Value: 1}))
			},
			want: []finding{{report.PropInvalidPropertyType, 4}},
		},
		{
			name: "key not in use",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, store.Null, store.LongBlock(9, 1)))
			},
			want: []finding{{report.PropKeyNotInUse, 4}},
		},
		{
			name: "negative key",
			build: func(b *store.Builder) {
				b.Property(prop(4, store.Null, store.Null, store.LongBlock(-2, 1)))
			},
			want: []finding{{report.PropInvalidPropertyKey, 4}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := store.NewBuilder()
			b.PropertyKey(0, "name").PropertyKey(1, "age").PropertyKey(2, "tags").PropertyKey(3, "active")
			tt.build(b)
			b.Node(store.Node{ID: 0, InUse: true, NextRel: store.Null, NextProp: 4})
			stores, tokens := storetest.Open(t, b)

			_, sink := run(t, Config{Stores: stores, Tokens: tokens, Threads: 2})
			assert.ElementsMatch(t, tt.want, findings(sink))
		})
	}
}
