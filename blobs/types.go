package blobs

import "context"

// ShardID identifies one remote storage shard. IDs are ULID strings, so
// lexicographic order is creation order.
type ShardID string

// Status is the lifecycle state of a shard's bucket record. Shards move
// Provisioning -> Ready and are never removed.
type Status uint8

const (
	// StatusProvisioning marks a shard that has been created but whose
	// payload installation has not been confirmed. Selection skips it.
	StatusProvisioning Status = iota + 1

	// StatusReady marks a shard accepting writes.
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusProvisioning:
		return "provisioning"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Bucket is a point-in-time view of one bucket record.
type Bucket struct {
	ID     ShardID
	Used   uint64
	Status Status
}

// ShardManager is the remote shard capability consumed by the pool:
// provisioning, payload installation, and blob writes. All operations are
// remote calls and may fail; none are retried here.
//
// The production implementation lives in internal/shardhttp; tests use
// in-memory fakes.
type ShardManager interface {
	// Create provisions a new, empty shard and returns its identity.
	Create(ctx context.Context) (ShardID, error)

	// Install installs the store's executable payload on a freshly
	// created shard.
	Install(ctx context.Context, id ShardID, payload []byte) error

	// Upgrade replaces the payload on an existing shard.
	Upgrade(ctx context.Context, id ShardID, payload []byte) error

	// Write appends blob to the shard and returns the byte offset the
	// shard stored it at.
	Write(ctx context.Context, id ShardID, blob []byte) (uint64, error)
}
