// Package region defines the durable memory capability that the rest of
// stablekit is built on: a persistent, linearly-addressed byte region that
// survives process restarts, only ever grows, and grows in fixed 64KiB
// pages.
//
// The package deliberately contains no storage engine logic. It provides:
//
//   - Memory: the interface consumed by the allocator and the root
//     persistence layer
//   - Mem: a volatile in-memory implementation used by tests and by
//     ephemeral tooling
//
// The production implementation backed by an mmap'd file lives in
// internal/regionfile.
//
// # Address space
//
// Offsets are absolute byte offsets from the start of the region. Bytes
// [0,16) hold the root header (see region/root); the segment allocator in
// region/alloc manages everything from offset 16 up.
//
// # Growth
//
// Grow takes a byte delta and converts it to whole pages internally.
// Growth never fails in healthy operation; a failed grow means the backing
// store is exhausted, which callers treat as fatal.
package region
