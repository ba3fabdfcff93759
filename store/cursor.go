package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

// Cursor reads records one page at a time. A cursor is not safe for
// concurrent use, but its position may be observed by a Prefetcher.
type Cursor[R any] struct {
	store    *RecordStore[R]
	page     int64
	valid    int
	buf      []byte
	position atomic.Int64
	moved    chan struct{}
}

// Get reads record id through the cursor's page buffer.
func (c *Cursor[R]) Get(ctx context.Context, id int64, mode LoadMode) (R, error) {
	s := c.store
	if id < 0 || id >= s.highID {
		return s.unused(id, mode)
	}
	page := s.PageOf(id)
	if page != c.page {
		if err := c.load(ctx, page); err != nil {
			var zero R
			return zero, err
		}
	}
	off := int((id % s.recordsPerPage) * int64(s.codec.RecordSize))
	if off+s.codec.RecordSize > c.valid {
		return s.unused(id, mode)
	}
	return s.check(s.codec.Decode(id, c.buf[off:off+s.codec.RecordSize]), mode)
}

func (c *Cursor[R]) load(ctx context.Context, page int64) error {
	n, err := c.store.blob.ReadAt(ctx, c.buf, page*PageSize)
	if err != nil && !errors.Is(err, io.EOF) {
		c.page = -1
		return fmt.Errorf("read %s page %d: %w", c.store.codec.Name, page, err)
	}
	c.page = page
	c.valid = n
	c.position.Store(page)
	select {
	case c.moved <- struct{}{}:
	default:
	}
	return nil
}

// Page returns the page the cursor is positioned on.
func (c *Cursor[R]) Page() int64 {
	return c.position.Load()
}

// Moved is signalled whenever the cursor loads a new page.
func (c *Cursor[R]) Moved() <-chan struct{} {
	return c.moved
}
