package report

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/blobstore"
)

func TestCompressionForName(t *testing.T) {
	assert.Equal(t, CompressionZstd, CompressionForName("report.jsonl.zst"))
	assert.Equal(t, CompressionLZ4, CompressionForName("report.jsonl.lz4"))
	assert.Equal(t, CompressionNone, CompressionForName("report.jsonl"))
}

func TestJSONLSink(t *testing.T) {
	for _, name := range []string{"report.jsonl", "report.jsonl.zst", "report.jsonl.lz4"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			bs := blobstore.NewMemoryStore()

			sink, err := CreateJSONLSink(ctx, bs, name)
			require.NoError(t, err)
			r := NewReporter([]Sink{sink}, WithRunID("r"))
			r.Node(2).RelationshipNotInUse(99)
			r.Relationship(1).TargetNodeNotInUse(8)
			require.NoError(t, r.Close())
			require.NoError(t, sink.Close(), "second close is a no-op")

			blob, err := bs.Open(ctx, name)
			require.NoError(t, err)
			data := make([]byte, blob.Size())
			_, err = blob.ReadAt(ctx, data, 0)
			require.NoError(t, err)

			got, err := ReadJSONL(bytes.NewReader(data), CompressionForName(name))
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, NodeRelationshipNotInUse, got[0].Kind)
			assert.Equal(t, "r", got[0].RunID)
			assert.Equal(t, []Ref{{Entity: EntityNode, ID: 8}}, got[1].Related)
		})
	}
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "report.db")

	sink, err := NewSQLiteSink(ctx, path)
	require.NoError(t, err)
	r := NewReporter([]Sink{sink}, WithRunID("run-7"))
	r.Node(2).RelationshipNotInUse(99)
	r.Dynamic(EntityString, 3).EmptyBlock()
	require.NoError(t, r.Close())
	assert.Error(t, sink.Record(Inconsistency{}), "closed sink rejects records")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inconsistencies WHERE run_id = ?`, "run-7").Scan(&n))
	assert.Equal(t, 2, n)

	var related string
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT related FROM inconsistencies WHERE kind = ?`, string(NodeRelationshipNotInUse)).Scan(&related))
	assert.JSONEq(t, `[{"entity":"relationship","id":99}]`, related)

	var warnings int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inconsistencies WHERE warning = 1`).Scan(&warnings))
	assert.Equal(t, 1, warnings)
}
