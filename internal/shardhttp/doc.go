// Package shardhttp implements the HTTP side of shard management: a
// blobs.ShardManager that asks a fleet controller for new shards and
// talks to each shard's own API (internal/shardserver) for payload
// installation and blob writes.
package shardhttp
