// Package shardserver implements the shardd process: a single remote
// storage shard. Each shard keeps an append-only blob log in its own
// durable region and serves it over a small HTTP API. The shard's header
// holds the big-endian end offset at bytes [0,8); blobs start at 16.
//
// The fleet side of the protocol lives in internal/shardhttp.
package shardserver
