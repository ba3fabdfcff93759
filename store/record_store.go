package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/graphcheck/blobstore"
)

// ErrRecordNotInUse is returned by LoadNormal reads of unused records.
var ErrRecordNotInUse = errors.New("store: record not in use")

// LoadMode controls how reads treat unused records.
type LoadMode int

const (
	// LoadCheck returns unused records without error.
	LoadCheck LoadMode = iota
	// LoadNormal fails with ErrRecordNotInUse for unused records.
	LoadNormal
)

// RecordStore provides slot access to a store file.
type RecordStore[R any] struct {
	name           string
	blob           blobstore.Blob
	codec          Codec[R]
	recordsPerPage int64
	highID         int64
	maxCachedPages int64
	inUse          func(*R) bool
}

// NewRecordStore wraps blob. A nil blob is an empty store.
// maxCachedPages bounds read-ahead; values below 1 are treated as 1.
func NewRecordStore[R any](name string, blob blobstore.Blob, codec Codec[R], maxCachedPages int64) *RecordStore[R] {
	rpp := int64(PageSize / codec.RecordSize)
	var high int64
	if blob != nil {
		size := blob.Size()
		high = (size/PageSize)*rpp + (size%PageSize)/int64(codec.RecordSize)
	}
	return &RecordStore[R]{
		name:           name,
		blob:           blob,
		codec:          codec,
		recordsPerPage: rpp,
		highID:         high,
		maxCachedPages: max(1, maxCachedPages),
		inUse:          inUseFunc[R](),
	}
}

// Name returns the blob name of the store.
func (s *RecordStore[R]) Name() string { return s.name }

// HighID returns one past the highest id with a slot in the file.
func (s *RecordStore[R]) HighID() int64 { return s.highID }

// RecordSize returns the slot size in bytes.
func (s *RecordStore[R]) RecordSize() int { return s.codec.RecordSize }

// RecordsPerPage returns the number of slots per page.
func (s *RecordStore[R]) RecordsPerPage() int64 { return s.recordsPerPage }

// MaxCachedPages returns the page budget available for read-ahead.
func (s *RecordStore[R]) MaxCachedPages() int64 { return s.maxCachedPages }

// Pages returns the number of pages in the file.
func (s *RecordStore[R]) Pages() int64 {
	if s.highID == 0 {
		return 0
	}
	return (s.highID-1)/s.recordsPerPage + 1
}

// PageOf returns the page holding id.
func (s *RecordStore[R]) PageOf(id int64) int64 {
	return id / s.recordsPerPage
}

func (s *RecordStore[R]) offset(id int64) int64 {
	return s.PageOf(id)*PageSize + (id%s.recordsPerPage)*int64(s.codec.RecordSize)
}

// Get reads record id.
func (s *RecordStore[R]) Get(ctx context.Context, id int64, mode LoadMode) (R, error) {
	if id < 0 || id >= s.highID {
		return s.unused(id, mode)
	}
	buf := make([]byte, s.codec.RecordSize)
	if _, err := s.blob.ReadAt(ctx, buf, s.offset(id)); err != nil && !errors.Is(err, io.EOF) {
		var zero R
		return zero, fmt.Errorf("read %s record %d: %w", s.codec.Name, id, err)
	}
	return s.check(s.codec.Decode(id, buf), mode)
}

func (s *RecordStore[R]) unused(id int64, mode LoadMode) (R, error) {
	r := s.codec.Unused(id)
	if mode == LoadNormal {
		return r, fmt.Errorf("%s record %d: %w", s.codec.Name, id, ErrRecordNotInUse)
	}
	return r, nil
}

func (s *RecordStore[R]) check(r R, mode LoadMode) (R, error) {
	if mode == LoadNormal && s.inUse != nil && !s.inUse(&r) {
		return r, ErrRecordNotInUse
	}
	return r, nil
}

// OpenCursor returns a cursor positioned before startPage.
func (s *RecordStore[R]) OpenCursor(startPage int64) *Cursor[R] {
	c := &Cursor[R]{
		store: s,
		page:  -1,
		buf:   make([]byte, PageSize),
		moved: make(chan struct{}, 1),
	}
	c.position.Store(startPage)
	return c
}

// Close closes the underlying blob.
func (s *RecordStore[R]) Close() error {
	if s.blob == nil {
		return nil
	}
	return s.blob.Close()
}

func inUseFunc[R any]() func(*R) bool {
	var zero R
	switch any(&zero).(type) {
	case *Node:
		return func(r *R) bool { return any(r).(*Node).InUse }
	case *Relationship:
		return func(r *R) bool { return any(r).(*Relationship).InUse }
	case *RelationshipGroup:
		return func(r *R) bool { return any(r).(*RelationshipGroup).InUse }
	case *Property:
		return func(r *R) bool { return any(r).(*Property).InUse }
	case *DynamicRecord:
		return func(r *R) bool { return any(r).(*DynamicRecord).InUse }
	case *Token:
		return func(r *R) bool { return any(r).(*Token).InUse }
	}
	return nil
}
