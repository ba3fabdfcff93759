package blobstore

import (
	"context"
	"io"
)

// IOLimiter admits bytes before they are read.
type IOLimiter interface {
	AcquireIO(ctx context.Context, n int) error
}

// ThrottledStore limits the read throughput of the blobs it opens.
type ThrottledStore struct {
	BlobStore
	limiter IOLimiter
}

// NewThrottledStore wraps inner; reads wait on limiter.
func NewThrottledStore(inner BlobStore, limiter IOLimiter) *ThrottledStore {
	return &ThrottledStore{BlobStore: inner, limiter: limiter}
}

func (s *ThrottledStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledBlob{Blob: b, limiter: s.limiter}, nil
}

type throttledBlob struct {
	Blob
	limiter IOLimiter
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.limiter.AcquireIO(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}

func (b *throttledBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	return io.NopCloser(&contextSectionReader{blob: b, ctx: ctx, off: off, limit: off + length}), nil
}
