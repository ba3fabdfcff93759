package report

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Record(Inconsistency) error { return errors.New("disk full") }
func (failingSink) Close() error               { return nil }

func TestReporter_Views(t *testing.T) {
	sink := NewCollectingSink()
	r := NewReporter([]Sink{sink}, WithRunID("run-1"))

	r.Node(2).RelationshipNotInUse(99)
	r.Relationship(5).SourcePrevDoesNotReferenceBack(4)
	r.Dynamic(EntityString, 7).EmptyBlock()
	r.IndexEntry(3, 11).NodeNotInUse()

	got := sink.Inconsistencies()
	require.Len(t, got, 4)

	assert.Equal(t, Inconsistency{
		RunID:   "run-1",
		Kind:    NodeRelationshipNotInUse,
		Entity:  EntityNode,
		ID:      2,
		Related: []Ref{{Entity: EntityRelationship, ID: 99}},
	}, got[0])
	assert.Equal(t, "node 2: relationshipNotInUse [relationship 99]", got[0].String())

	assert.Equal(t, RelSourcePrevDoesNotReferenceBack, got[1].Kind)
	assert.True(t, got[2].Warning)
	assert.Equal(t, EntityIndexEntry, got[3].Entity)

	s := r.Summary()
	assert.Equal(t, int64(4), s.Total)
	assert.Equal(t, int64(1), s.Warnings)
	assert.Equal(t, int64(3), r.Errors())
	assert.Equal(t, int64(1), s.ByKind[NodeRelationshipNotInUse])
	assert.Equal(t, int64(1), s.ByEntity[EntityNode])
	assert.False(t, s.Consistent())
}

func TestReporter_WarningsOnlyIsConsistent(t *testing.T) {
	r := NewReporter(nil)
	r.Dynamic(EntityArray, 1).RecordNotFullReferencesNext()
	assert.True(t, r.Summary().Consistent())
}

func TestReporter_SinkErrorsAreCounted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewCollectingSink()
	r := NewReporter([]Sink{failingSink{}, sink}, WithSinkLogger(logger))

	r.Node(1).LabelDuplicate(3)

	assert.Equal(t, int64(1), r.SinkErrors())
	assert.Equal(t, 1, sink.Len(), "other sinks still receive the inconsistency")
	assert.Contains(t, buf.String(), "disk full")
}

func TestReporter_Concurrent(t *testing.T) {
	sink := NewCollectingSink()
	r := NewReporter([]Sink{sink})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Relationship(int64(w*100 + i)).IllegalSourceNode()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(800), r.Total())
	assert.Len(t, sink.OfKind(RelIllegalSourceNode), 800)
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter([]Sink{NewSlogSink(slog.New(slog.NewTextHandler(&buf, nil)))})
	r.Property(4).KeyNotInUse(2)
	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "kind=keyNotInUse")
	assert.Contains(t, out, "property_key 2")
}
