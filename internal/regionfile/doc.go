// Package regionfile implements the durable region.Memory backend: a
// single data file, grown in whole pages and memory-mapped read-write on
// platforms that support it. On other platforms it degrades to pread and
// pwrite against the same file, so the on-disk format is identical
// everywhere.
package regionfile
