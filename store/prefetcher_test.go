package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphcheck/blobstore"
	"github.com/hupe1980/graphcheck/internal/cache"
)

func relationshipStore(t *testing.T, n int64, bs blobstore.BlobStore) *RecordStore[Relationship] {
	t.Helper()
	b := NewBuilder()
	for id := int64(0); id < n; id++ {
		b.Relationship(Relationship{ID: id, InUse: true, FirstNode: id, SecondNode: id})
	}
	ctx := context.Background()
	require.NoError(t, b.Write(ctx, bs))
	s, err := Open(ctx, bs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.Relationships
}

func TestPrefetcher_WarmsCacheAheadOfCursor(t *testing.T) {
	for _, dir := range []Direction{Forward, Backward} {
		t.Run(dir.String(), func(t *testing.T) {
			ctx := context.Background()
			pc := cache.NewLRUPageCache(1<<20, nil)
			bs := blobstore.NewCachingStore(blobstore.NewMemoryStore(), pc, PageSize)
			rpp := int64(PageSize / RelationshipRecordSize)
			rs := relationshipStore(t, 10*rpp, bs)
			require.Equal(t, int64(10), rs.Pages())

			cur := rs.OpenCursor(0)
			if dir == Backward {
				cur = rs.OpenCursor(rs.Pages() - 1)
			}
			pf := NewPrefetcher(rs, cur, dir, WithWindow(3))

			done := make(chan error, 1)
			go func() { done <- pf.Run(ctx) }()

			step := int64(1)
			id := int64(0)
			if dir == Backward {
				step, id = -1, rs.HighID()-1
			}
			for ; id >= 0 && id < rs.HighID(); id += step {
				r, err := cur.Get(ctx, id, LoadNormal)
				require.NoError(t, err)
				require.Equal(t, id, r.FirstNode)
			}

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("prefetcher did not finish")
			}
			assert.Equal(t, rs.Pages(), pf.Fetched())
		})
	}
}

func TestPrefetcher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rpp := int64(PageSize / RelationshipRecordSize)
	rs := relationshipStore(t, 10*rpp, blobstore.NewMemoryStore())
	cur := rs.OpenCursor(0)
	pf := NewPrefetcher(rs, cur, Forward, WithWindow(2))

	done := make(chan error, 1)
	go func() { done <- pf.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("prefetcher ignored cancellation")
	}
	assert.Less(t, pf.Fetched(), rs.Pages())
}

func TestPrefetcher_MappedBlobUsesAdvice(t *testing.T) {
	rs := relationshipStore(t, 3*int64(PageSize/RelationshipRecordSize), blobstore.NewLocalStore(t.TempDir()))
	require.Equal(t, int64(3), rs.Pages())

	pf := NewPrefetcher(rs, rs.OpenCursor(0), Forward)
	require.NoError(t, pf.Run(context.Background()))
	assert.Zero(t, pf.Fetched())
}
