// Package arena provides an off-heap bump allocator for variable-length
// checker state such as dynamic label lists.
//
// Memory comes from anonymous mappings in power-of-two chunks, so it never
// adds to GC pressure. Allocation is lock-free via CAS on the current chunk.
// Reset drops every allocation but keeps the first chunk for reuse, which is
// how per-range caches are cleared between ranges.
//
// Offsets are global: (chunkIndex << chunkBits) | offsetInChunk. Offset 0 is
// reserved so callers can use it as "no allocation".
package arena
