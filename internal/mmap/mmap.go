package mmap

import (
	"errors"
	"os"
	"sync/atomic"
	"unsafe"
)

// Advice is a kernel hint about how a mapping will be read.
type Advice int

const (
	AdviceNormal Advice = iota
	// AdviceSequential suits store scans in id order, either direction.
	AdviceSequential
	// AdviceRandom suits chain re-reads and dynamic record lookups.
	AdviceRandom
	AdviceWillNeed
	// AdviceDontNeed lets the kernel drop pages of a finished range.
	AdviceDontNeed
)

var (
	ErrClosed   = errors.New("mmap: closed")
	ErrTooLarge = errors.New("mmap: size does not fit the address space")
)

// Region is a mapped byte range. A zero-length file maps to an empty
// Region without a system mapping.
type Region struct {
	data   []byte
	closed atomic.Bool
	unmap  func() error
}

// Open maps the store file at path read-only.
func Open(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return &Region{}, nil
	}
	if int64(int(size)) != size {
		return nil, ErrTooLarge
	}
	data, unmap, err := mapFile(f, int(size))
	if err != nil {
		return nil, &os.PathError{Op: "mmap", Path: path, Err: err}
	}
	return &Region{data: data, unmap: unmap}, nil
}

// Anonymous returns size zeroed bytes of private read-write memory that the
// Go garbage collector never scans.
func Anonymous(size int) (*Region, error) {
	if size <= 0 {
		return nil, ErrTooLarge
	}
	data, unmap, err := mapAnonymous(size)
	if err != nil {
		return nil, err
	}
	return &Region{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped bytes, or nil once closed.
func (r *Region) Bytes() []byte {
	if r.closed.Load() {
		return nil
	}
	return r.data
}

// Words views the region as 64-bit words. A trailing partial word is not
// addressable.
func (r *Region) Words() []uint64 {
	b := r.Bytes()
	if len(b) < 8 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8)
}

func (r *Region) Len() int { return len(r.data) }

// Advise passes a to the kernel. Platforms without madvise ignore it.
func (r *Region) Advise(a Advice) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if len(r.data) == 0 {
		return nil
	}
	return advise(r.data, a)
}

// Close unmaps the region. Calling it again is a no-op.
func (r *Region) Close() error {
	if r.closed.Swap(true) || r.unmap == nil {
		return nil
	}
	return r.unmap()
}
