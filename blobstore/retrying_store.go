package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/cenkalti/backoff/v5"
)

// RetryingStore retries transient read failures of a remote backend.
// Missing blobs, EOF and context errors are permanent.
type RetryingStore struct {
	inner    BlobStore
	maxTries uint
	policy   func() backoff.BackOff
}

// RetryOption configures a RetryingStore.
type RetryOption func(*RetryingStore)

// WithMaxTries bounds the number of attempts per operation.
func WithMaxTries(n uint) RetryOption {
	return func(s *RetryingStore) {
		s.maxTries = n
	}
}

// WithBackOff replaces the default exponential policy.
func WithBackOff(policy func() backoff.BackOff) RetryOption {
	return func(s *RetryingStore) {
		s.policy = policy
	}
}

// NewRetryingStore wraps inner with retries.
func NewRetryingStore(inner BlobStore, opts ...RetryOption) *RetryingStore {
	s := &RetryingStore{
		inner:    inner,
		maxTries: 5,
		policy:   func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func retry[T any](ctx context.Context, s *RetryingStore, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && isPermanent(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(s.policy()), backoff.WithMaxTries(s.maxTries))
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *RetryingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := retry(ctx, s, func() (Blob, error) {
		return s.inner.Open(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return &retryingBlob{Blob: b, store: s}, nil
}

func (s *RetryingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.inner.Create(ctx, name)
}

func (s *RetryingStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := retry(ctx, s, func() (struct{}, error) {
		return struct{}{}, s.inner.Put(ctx, name, data)
	})
	return err
}

func (s *RetryingStore) Delete(ctx context.Context, name string) error {
	_, err := retry(ctx, s, func() (struct{}, error) {
		return struct{}{}, s.inner.Delete(ctx, name)
	})
	return err
}

func (s *RetryingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return retry(ctx, s, func() ([]string, error) {
		return s.inner.List(ctx, prefix)
	})
}

type retryingBlob struct {
	Blob
	store *RetryingStore
}

// ReadAt retries the whole read; a short read at the end of the blob is returned as is.
func (b *retryingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	type result struct {
		n   int
		err error
	}
	r, err := retry(ctx, b.store, func() (result, error) {
		n, err := b.Blob.ReadAt(ctx, p, off)
		if errors.Is(err, io.EOF) {
			return result{n, err}, nil
		}
		return result{n, err}, err
	})
	if err != nil {
		return r.n, err
	}
	return r.n, r.err
}
