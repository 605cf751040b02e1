// Package blobs routes large binary blobs to a pool of remote storage
// shards, each with a bounded capacity.
//
// The durable region is the wrong home for bulk data: it is a single
// grow-only address space whose snapshots are rewritten wholesale. Blobs
// instead go to shards - independently addressed remote stores that append
// blobs bump-pointer style and report the offset they stored them at.
//
// The pool keeps one bucket record per shard: the shard's identity and a
// local, optimistically-advanced estimate of how many bytes it holds.
// Shard selection is first-fit in shard-identifier order, which favors
// reusing the oldest shards and tolerates uneven fill. When no shard has
// room, the pool provisions a new one: create, record, install the store's
// executable payload, mark ready.
//
// A bucket record becomes visible before installation finishes, so records
// carry a status and selection skips shards that are not yet ready. A
// record whose installation failed stays in the table; the next write
// retries the installation rather than leaking a half-provisioned shard.
// Records are never removed - shards are never reclaimed.
//
// Remote failures (create, install, write) are recoverable: they surface
// as wrapped errors to the caller, nothing is rolled back, and nothing is
// retried automatically within a single call.
package blobs
