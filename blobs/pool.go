package blobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// ErrNoPayload indicates the pool was asked to provision a shard without
// an executable payload configured.
var ErrNoPayload = errors.New("blobs: no shard payload configured")

// Config carries the pool's operating parameters.
type Config struct {
	// MaxShardBytes is the capacity of a single shard. A shard whose
	// tracked usage reaches this is skipped by selection.
	MaxShardBytes uint64

	// Payload is the executable payload installed on newly provisioned
	// shards and pushed by UpgradeAll.
	Payload []byte
}

type bucket struct {
	id     ShardID
	used   uint64
	status Status
}

// Pool routes blob writes across a growing set of capacity-bounded
// shards. The bucket table is part of the application root state: the
// pool serializes with the root object and is re-configured with its
// manager and config after restore.
//
// The mutex guards only local table state. It is never held across a
// remote call, so concurrent requests interleave at remote-call
// boundaries exactly like the cooperative model the design assumes.
type Pool struct {
	mgr    ShardManager
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	buckets []*bucket // ordered by id

	metrics poolMetrics
}

// NewPool returns an empty pool.
func NewPool(mgr ShardManager, cfg Config, logger *slog.Logger) *Pool {
	p := &Pool{}
	p.Configure(mgr, cfg, logger)
	return p
}

// Configure attaches the runtime collaborators. It must be called after
// deserializing a pool, which restores the bucket table but not the
// manager, config, or logger.
func (p *Pool) Configure(mgr ShardManager, cfg Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	p.mgr = mgr
	p.cfg = cfg
	p.logger = logger
}

// Write routes blob to a shard with available space, provisioning a new
// shard if none qualifies. It returns the shard and the offset the shard
// stored the blob at. Any remote failure is returned as-is to the caller;
// the bucket table keeps whatever progress was made, and the next call
// picks up from there.
func (p *Pool) Write(ctx context.Context, blob []byte) (ShardID, uint64, error) {
	id, err := p.allocateSpace(ctx)
	if err != nil {
		p.metrics.incErrors()
		return "", 0, err
	}

	off, err := p.mgr.Write(ctx, id, blob)
	if err != nil {
		p.metrics.incErrors()
		return "", 0, fmt.Errorf("blobs: write %d bytes to shard %s: %w", len(blob), id, err)
	}

	// The shard's returned offset is authoritative; tracked usage is
	// advanced from it, not from the previous local estimate.
	p.mu.Lock()
	if b := p.lookup(id); b != nil {
		b.used = off + uint64(len(blob))
	}
	p.mu.Unlock()

	p.metrics.addWrite(len(blob))
	return id, off, nil
}

// allocateSpace returns a ready shard with room for more bytes,
// provisioning one when needed.
func (p *Pool) allocateSpace(ctx context.Context) (ShardID, error) {
	p.mu.Lock()
	for _, b := range p.buckets {
		if b.status == StatusReady && b.used < p.cfg.MaxShardBytes {
			id := b.id
			p.mu.Unlock()
			return id, nil
		}
	}
	// No ready shard has room. Finish a half-provisioned shard before
	// creating another one.
	var stuck ShardID
	for _, b := range p.buckets {
		if b.status == StatusProvisioning {
			stuck = b.id
			break
		}
	}
	p.mu.Unlock()

	if stuck != "" {
		return stuck, p.install(ctx, stuck)
	}
	return p.provision(ctx)
}

// provision creates a shard, records it, and installs the payload. The
// record is inserted before installation completes; its provisioning
// status keeps selection away until the shard is ready.
func (p *Pool) provision(ctx context.Context) (ShardID, error) {
	if len(p.cfg.Payload) == 0 {
		return "", ErrNoPayload
	}

	id, err := p.mgr.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("blobs: create shard: %w", err)
	}
	p.logger.Info("new shard created", "shard", id)

	p.mu.Lock()
	p.insertLocked(&bucket{id: id, status: StatusProvisioning})
	p.mu.Unlock()
	p.metrics.incShards()

	if err := p.install(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Pool) install(ctx context.Context, id ShardID) error {
	if err := p.mgr.Install(ctx, id, p.cfg.Payload); err != nil {
		return fmt.Errorf("blobs: install payload on shard %s: %w", id, err)
	}

	p.mu.Lock()
	if b := p.lookup(id); b != nil {
		b.status = StatusReady
	}
	p.mu.Unlock()

	p.logger.Info("payload installed on shard", "shard", id)
	return nil
}

// UpgradeAll pushes the current payload to every recorded shard, in shard
// order, stopping at the first failure.
func (p *Pool) UpgradeAll(ctx context.Context) error {
	if len(p.cfg.Payload) == 0 {
		return ErrNoPayload
	}
	for _, b := range p.Buckets() {
		if err := p.mgr.Upgrade(ctx, b.ID, p.cfg.Payload); err != nil {
			return fmt.Errorf("blobs: upgrade shard %s: %w", b.ID, err)
		}
		p.logger.Info("payload upgraded on shard", "shard", b.ID)
	}
	return nil
}

// Buckets returns a snapshot of the bucket table in shard order.
func (p *Pool) Buckets() []Bucket {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Bucket, len(p.buckets))
	for i, b := range p.buckets {
		out[i] = Bucket{ID: b.id, Used: b.used, Status: b.status}
	}
	return out
}

func (p *Pool) lookup(id ShardID) *bucket {
	i := sort.Search(len(p.buckets), func(i int) bool { return p.buckets[i].id >= id })
	if i < len(p.buckets) && p.buckets[i].id == id {
		return p.buckets[i]
	}
	return nil
}

func (p *Pool) insertLocked(b *bucket) {
	i := sort.Search(len(p.buckets), func(i int) bool { return p.buckets[i].id >= b.id })
	p.buckets = append(p.buckets, nil)
	copy(p.buckets[i+1:], p.buckets[i:])
	p.buckets[i] = b
}

// bucketRecord is the serialized form of one bucket table entry.
type bucketRecord struct {
	Used   uint64 `cbor:"used"`
	Status Status `cbor:"status"`
}

// MarshalCBOR implements cbor.Marshaler. Only the bucket table is
// persisted; runtime collaborators are re-attached with Configure.
func (p *Pool) MarshalCBOR() ([]byte, error) {
	p.mu.Lock()
	table := make(map[ShardID]bucketRecord, len(p.buckets))
	for _, b := range p.buckets {
		table[b.id] = bucketRecord{Used: b.used, Status: b.status}
	}
	p.mu.Unlock()
	return encMode.Marshal(table)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (p *Pool) UnmarshalCBOR(data []byte) error {
	var table map[ShardID]bucketRecord
	if err := cbor.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("blobs: decode bucket table: %w", err)
	}
	buckets := make([]*bucket, 0, len(table))
	for id, rec := range table {
		st := rec.Status
		if st != StatusProvisioning && st != StatusReady {
			return fmt.Errorf("blobs: bucket %s has invalid status %d", id, rec.Status)
		}
		buckets = append(buckets, &bucket{id: id, used: rec.Used, status: st})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].id < buckets[j].id })

	p.mu.Lock()
	p.buckets = buckets
	p.mu.Unlock()
	return nil
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}
