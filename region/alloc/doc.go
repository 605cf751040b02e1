// Package alloc implements the segment allocator for the durable region.
//
// # Overview
//
// The allocator manages the address space of a durable region from raw
// byte offsets, the way a general-purpose allocator manages heap memory.
// It keeps a free list of reclaimed segments in an ordered B-tree keyed by
// start offset, plus a boundary: the allocation frontier, the first offset
// never yet claimed by any allocation.
//
// # Policy
//
//   - Alloc is best-fit with an exact-match early exit: the smallest free
//     segment large enough wins; a segment of exactly the requested size
//     ends the scan immediately. Oversized segments are split and the
//     remainder reinserted.
//   - When no free segment suffices, allocation happens at the boundary,
//     growing the backing region when the new boundary would meet or
//     exceed its current size.
//   - Free coalesces eagerly with both neighbors, so no two stored free
//     segments are ever adjacent.
//
// There is no partial free, no resize primitive, and no compaction beyond
// adjacent-segment coalescing. Callers that need a different size free and
// re-allocate.
//
// # Failure model
//
// Alloc never returns an error. Growth of the backing region is assumed to
// succeed; a failed grow means the durable store is exhausted, which is
// unrecoverable, so the allocator panics. Likewise Free panics when the
// freed range overlaps a stored free segment or falls outside the managed
// address space: such a call indicates allocator corruption, and
// continuing would turn a bug into silent data loss.
//
// # Durability
//
// The allocator itself never touches region bytes; its state (free list
// and boundary) is serialized inside the application root object by
// region/root and reconstructed verbatim on restore, not recomputed.
//
// Allocator instances are not safe for concurrent use. The durable region
// has a single logical owner, which serializes access.
package alloc
