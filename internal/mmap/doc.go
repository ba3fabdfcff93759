// Package mmap maps store files read-only and allocates anonymous off-heap
// regions for the checker caches.
//
//	r, err := mmap.Open("neostore.nodestore.db")
//	if err != nil { ... }
//	defer r.Close()
//	_ = r.Advise(mmap.AdviceSequential)
//	page := r.Bytes()[off : off+pageSize]
//
// On unix the package uses mmap(2) and madvise(2). On windows it uses
// MapViewOfFile and VirtualAlloc, and advice is ignored.
package mmap
