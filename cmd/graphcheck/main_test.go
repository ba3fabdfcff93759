package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/blobstore"
	"github.com/hupe1980/graphcheck/internal/storetest"
	"github.com/hupe1980/graphcheck/report"
	"github.com/hupe1980/graphcheck/store"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw     string
		want    location
		wantErr bool
	}{
		{raw: "/var/lib/graph.db", want: location{path: "/var/lib/graph.db"}},
		{raw: "file:///var/lib/graph.db", want: location{path: "/var/lib/graph.db"}},
		{raw: "s3://bucket", want: location{scheme: "s3", bucket: "bucket"}},
		{raw: "s3://bucket/graphs/prod/", want: location{scheme: "s3", bucket: "bucket", prefix: "graphs/prod"}},
		{raw: "minio://localhost:9000/bucket", want: location{scheme: "minio", endpoint: "localhost:9000", bucket: "bucket"}},
		{raw: "minio://localhost:9000/bucket/a/b", want: location{scheme: "minio", endpoint: "localhost:9000", bucket: "bucket", prefix: "a/b"}},
		{raw: "", wantErr: true},
		{raw: "s3://", wantErr: true},
		{raw: "minio://localhost:9000", wantErr: true},
		{raw: "gs://bucket", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseLocation(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocationSplit(t *testing.T) {
	dir, name := location{path: "/tmp/out/report.jsonl"}.split()
	assert.Equal(t, location{path: "/tmp/out"}, dir)
	assert.Equal(t, "report.jsonl", name)

	dir, name = location{scheme: "s3", bucket: "b", prefix: "reports/run.jsonl.zst"}.split()
	assert.Equal(t, location{scheme: "s3", bucket: "b", prefix: "reports"}, dir)
	assert.Equal(t, "run.jsonl.zst", name)
}

func writeGraph(t *testing.T, edit func([]store.Node, []store.Relationship)) string {
	t.Helper()
	g := storetest.NewGraph(4)
	g.Relationship(0, 1)
	g.Relationship(1, 2)
	g.Relationship(2, 3)
	dir := t.TempDir()
	require.NoError(t, g.Build(edit).Write(context.Background(), blobstore.NewLocalStore(dir)))
	return dir
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecute_Version(t *testing.T) {
	code, out, _ := run("version")
	assert.Equal(t, exitConsistent, code)
	assert.Contains(t, out, "version: dev")
}

func TestExecute_CheckConsistent(t *testing.T) {
	dir := writeGraph(t, nil)
	out := t.TempDir()

	code, stdout, stderr := run("check", dir,
		"--threads", "2",
		"--machine-memory", "1GiB",
		"--heap", "64MiB",
		"--report-sqlite", filepath.Join(out, "report.db"),
		"--log-level", "warn",
	)
	assert.Equal(t, exitConsistent, code, stderr)
	assert.Contains(t, stdout, "checking "+dir)
	assert.Contains(t, stdout, "0 inconsistencies")
	assert.FileExists(t, filepath.Join(out, "report.db"))
}

func TestExecute_CheckInconsistent(t *testing.T) {
	dir := writeGraph(t, func(nodes []store.Node, _ []store.Relationship) {
		nodes[3].NextRel = 99
	})
	reportPath := filepath.Join(t.TempDir(), "report.jsonl.zst")

	code, _, stderr := run("check", dir,
		"--threads", "1",
		"--machine-memory", "1GiB",
		"--heap", "64MiB",
		"--report", reportPath,
		"--log-level", "error",
	)
	require.Equal(t, exitInconsistent, code, stderr)

	f, err := os.Open(reportPath)
	require.NoError(t, err)
	defer f.Close()
	found, err := report.ReadJSONL(f, report.CompressionZstd)
	require.NoError(t, err)

	var dangling []report.Inconsistency
	for _, in := range found {
		if in.Kind == report.NodeRelationshipNotInUse {
			dangling = append(dangling, in)
		}
	}
	require.Len(t, dangling, 1)
	assert.Equal(t, int64(3), dangling[0].ID)
}

func TestExecute_Inspect(t *testing.T) {
	dir := writeGraph(t, nil)

	code, stdout, stderr := run("inspect", dir, "--machine-memory", "1GiB", "--heap", "64MiB")
	require.Equal(t, exitConsistent, code, stderr)
	assert.Contains(t, stdout, store.NodeStoreFile)
	assert.Contains(t, stdout, "nodes per range")
	assert.Contains(t, stdout, "ranges")
}

func TestExecute_Fatal(t *testing.T) {
	tests := [][]string{
		{"check", filepath.Join(t.TempDir(), "missing")},
		{"check", t.TempDir(), "--log-format", "xml"},
		{"check", "gs://bucket"},
		{"check"},
	}
	for _, args := range tests {
		code, _, _ := run(args...)
		assert.Equal(t, exitFatal, code, args)
	}
}
