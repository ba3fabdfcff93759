package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/graphcheck/internal/cache"
)

// CachingStore wraps a BlobStore and caches reads page by page.
type CachingStore struct {
	inner    BlobStore
	cache    cache.PageCache
	pageSize int64
}

// NewCachingStore creates a new CachingStore.
// pageSize defaults to 8KB if <= 0.
func NewCachingStore(inner BlobStore, c cache.PageCache, pageSize int64) *CachingStore {
	if pageSize <= 0 {
		pageSize = 8192
	}
	return &CachingStore{
		inner:    inner,
		cache:    c,
		pageSize: pageSize,
	}
}

// PageSize returns the caching granularity.
func (s *CachingStore) PageSize() int64 {
	return s.pageSize
}

// Cache returns the underlying page cache.
func (s *CachingStore) Cache() cache.PageCache {
	return s.cache
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{
		inner:    b,
		cache:    s.cache,
		name:     name,
		pageSize: s.pageSize,
	}, nil
}

func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	s.invalidate(name)
	return s.inner.Create(ctx, name)
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	s.cache.Invalidate(func(key cache.PageKey) bool {
		return key.File == name
	})
}

// CachingBlob wraps a Blob and serves reads from the page cache.
type CachingBlob struct {
	inner    Blob
	cache    cache.PageCache
	name     string
	pageSize int64
}

func (b *CachingBlob) Close() error {
	return b.inner.Close()
}

func (b *CachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *CachingBlob) key(page int64) cache.PageKey {
	return cache.PageKey{File: b.name, Page: uint64(page)}
}

// Cached reports whether the page holding off is already cached.
func (b *CachingBlob) Cached(off int64) bool {
	return b.cache.Contains(b.key(off / b.pageSize))
}

// Prefetch loads the pages covering [off, off+length) into the cache.
func (b *CachingBlob) Prefetch(ctx context.Context, off, length int64) error {
	if length <= 0 || off >= b.Size() {
		return nil
	}
	return b.fillCache(ctx, off/b.pageSize, (off+length-1)/b.pageSize)
}

func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off >= b.Size() {
		return 0, io.EOF
	}

	startPage := off / b.pageSize
	endPage := (off + int64(len(p)) - 1) / b.pageSize

	if endPage > startPage {
		// Coalesce missing pages of multi-page reads into few backend requests.
		if err := b.fillCache(ctx, startPage, endPage); err != nil {
			return 0, err
		}
	}

	totalRead := 0
	for pg := startPage; pg <= endPage; pg++ {
		pgStart := pg * b.pageSize
		intersectStart := max(pgStart, off)
		intersectEnd := min(pgStart+b.pageSize, off+int64(len(p)))

		data, err := b.fetchPage(ctx, pg)
		if err != nil {
			return totalRead, err
		}

		srcOffset := intersectStart - pgStart
		if srcOffset >= int64(len(data)) {
			break
		}
		copySize := min(int(intersectEnd-intersectStart), len(data)-int(srcOffset))
		dstOffset := intersectStart - off
		totalRead += copy(p[dstOffset:dstOffset+int64(copySize)], data[srcOffset:])
	}

	if totalRead < len(p) {
		return totalRead, io.EOF
	}
	return totalRead, nil
}

// fillCache loads the missing pages in [startPage, endPage], fetching
// contiguous runs of missing pages in single backend requests.
func (b *CachingBlob) fillCache(ctx context.Context, startPage, endPage int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	type run struct{ start, count int64 }
	var missing []run

	runStart, runCount := int64(-1), int64(0)
	for pg := startPage; pg <= endPage; pg++ {
		if !b.cache.Contains(b.key(pg)) {
			if runStart == -1 {
				runStart, runCount = pg, 1
			} else {
				runCount++
			}
			continue
		}
		if runStart != -1 {
			missing = append(missing, run{runStart, runCount})
			runStart, runCount = -1, 0
		}
	}
	if runStart != -1 {
		missing = append(missing, run{runStart, runCount})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for _, r := range missing {
		g.Go(func() error {
			byteStart := r.start * b.pageSize
			byteSize := r.count * b.pageSize

			fileSize := b.Size()
			if byteStart >= fileSize {
				return nil
			}
			byteSize = min(byteSize, fileSize-byteStart)

			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			valid := buf[:n]

			for i := int64(0); i < r.count; i++ {
				from := i * b.pageSize
				if from >= int64(len(valid)) {
					break
				}
				to := min(from+b.pageSize, int64(len(valid)))
				// Copy so a cached page does not pin the whole run.
				page := make([]byte, to-from)
				copy(page, valid[from:to])
				b.cache.Set(gctx, b.key(r.start+i), page)
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *CachingBlob) fetchPage(ctx context.Context, pg int64) ([]byte, error) {
	key := b.key(pg)
	if data, ok := b.cache.Get(ctx, key); ok {
		return data, nil
	}

	buf := make([]byte, b.pageSize)
	n, err := b.inner.ReadAt(ctx, buf, pg*b.pageSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	data := buf[:n]
	if n > 0 {
		b.cache.Set(ctx, key, data)
	}
	return data, nil
}

// ReadRange streams [off, off+length) through the page cache.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	return io.NopCloser(&contextSectionReader{blob: b, ctx: ctx, off: off, limit: off + length}), nil
}

type contextSectionReader struct {
	blob  Blob
	ctx   context.Context
	off   int64
	limit int64
}

func (r *contextSectionReader) Read(p []byte) (n int, err error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err = r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	return
}
