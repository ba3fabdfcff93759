package store

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/hupe1980/graphcheck/blobstore"
	"github.com/hupe1980/graphcheck/internal/mmap"
)

// Direction is the order in which a scan visits record ids.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// pagePrefetcher is implemented by blobs that can warm a page cache without
// copying data out, such as blobstore.CachingBlob.
type pagePrefetcher interface {
	Prefetch(ctx context.Context, off, length int64) error
}

// advisor is implemented by memory-mapped blobs, which leave read-ahead to
// the kernel.
type advisor interface {
	Advise(a mmap.Advice) error
}

// cursorPosition is the view a Prefetcher has of the cursor it runs ahead of.
type cursorPosition interface {
	Page() int64
	Moved() <-chan struct{}
}

// PrefetchOption configures a Prefetcher.
type PrefetchOption func(*Prefetcher)

// WithWindow sets how many pages the prefetcher may run ahead of the cursor.
func WithWindow(pages int64) PrefetchOption {
	return func(p *Prefetcher) {
		if pages > 0 {
			p.window = pages
		}
	}
}

// WithIOLimiter throttles prefetch reads.
func WithIOLimiter(l blobstore.IOLimiter) PrefetchOption {
	return func(p *Prefetcher) { p.limiter = l }
}

// Prefetcher reads pages ahead of a cursor so that a sequential scan mostly
// hits the page cache. It never runs more than its window ahead of the cursor
// so that pages still needed by the scan are not evicted.
type Prefetcher struct {
	blob    blobstore.Blob
	cursor  cursorPosition
	pages   int64
	start   int64
	dir     Direction
	window  int64
	limiter blobstore.IOLimiter
	poll    time.Duration
	fetched int64
}

// NewPrefetcher creates a prefetcher for a scan of s with cur in direction dir.
// The default window is a quarter of the store's page budget.
func NewPrefetcher[R any](s *RecordStore[R], cur *Cursor[R], dir Direction, opts ...PrefetchOption) *Prefetcher {
	p := &Prefetcher{
		blob:   s.blob,
		cursor: cur,
		pages:  s.Pages(),
		dir:    dir,
		window: max(1, s.maxCachedPages/4),
		poll:   10 * time.Millisecond,
	}
	if dir == Backward {
		p.start = p.pages - 1
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run prefetches until every page in scan direction has been read or ctx is
// done. Context cancellation is not reported as an error.
func (p *Prefetcher) Run(ctx context.Context) error {
	if p.blob == nil || p.pages == 0 {
		return nil
	}
	if a, ok := p.blob.(advisor); ok {
		return a.Advise(mmap.AdviceSequential)
	}
	var scratch []byte
	pf, canPrefetch := p.blob.(pagePrefetcher)
	if !canPrefetch {
		scratch = make([]byte, PageSize)
	}

	next := p.start
	for p.inBounds(next) {
		for p.ahead(next) >= p.window {
			if !p.wait(ctx) {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		if p.limiter != nil {
			if err := p.limiter.AcquireIO(ctx, PageSize); err != nil {
				return nil
			}
		}
		var err error
		if canPrefetch {
			err = pf.Prefetch(ctx, next*PageSize, PageSize)
		} else {
			_, err = p.blob.ReadAt(ctx, scratch, next*PageSize)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.fetched++
		if p.dir == Forward {
			next++
		} else {
			next--
		}
	}
	return nil
}

// Fetched returns the number of pages read so far. Only valid after Run returns.
func (p *Prefetcher) Fetched() int64 {
	return p.fetched
}

func (p *Prefetcher) inBounds(page int64) bool {
	return page >= 0 && page < p.pages
}

func (p *Prefetcher) ahead(page int64) int64 {
	cur := p.cursor.Page()
	if p.dir == Forward {
		return page - cur
	}
	return cur - page
}

func (p *Prefetcher) wait(ctx context.Context) bool {
	t := time.NewTimer(p.poll)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-p.cursor.Moved():
	case <-t.C:
	}
	return true
}
