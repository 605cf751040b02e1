package shardhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/stablekit/stablekit/blobs"
	"github.com/stablekit/stablekit/internal/format"
)

// ErrUnknownShard indicates the fleet controller has no record of the
// requested shard.
var ErrUnknownShard = errors.New("shardhttp: unknown shard")

// shardInfo is the fleet controller's description of one shard.
type shardInfo struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

// Manager is the production blobs.ShardManager. Provisioning goes
// through the fleet controller (POST {fleet}/v1/shards); everything else
// goes to the shard's own address, resolved through the controller and
// cached.
type Manager struct {
	fleetURL string
	client   *http.Client
	logger   *slog.Logger

	mu    sync.Mutex
	addrs map[blobs.ShardID]string
}

// NewManager returns a manager backed by the fleet controller at
// fleetURL. A nil client gets a default with a 30s timeout.
func NewManager(fleetURL string, client *http.Client, logger *slog.Logger) *Manager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		fleetURL: fleetURL,
		client:   client,
		logger:   logger,
		addrs:    make(map[blobs.ShardID]string),
	}
}

// Create asks the fleet controller for a new shard and returns its
// identity. The shard's address is cached for later calls.
func (m *Manager) Create(ctx context.Context) (blobs.ShardID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.fleetURL+"/v1/shards", nil)
	if err != nil {
		return "", err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shardhttp: create shard: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("shardhttp: create shard: fleet returned %s", resp.Status)
	}

	var info shardInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("shardhttp: decode create response: %w", err)
	}

	id := blobs.ShardID(info.ID)
	m.mu.Lock()
	m.addrs[id] = info.Addr
	m.mu.Unlock()

	m.logger.Info("shard provisioned", "shard", id, "addr", info.Addr)
	return id, nil
}

// Install pushes payload to a freshly created shard.
func (m *Manager) Install(ctx context.Context, id blobs.ShardID, payload []byte) error {
	return m.pushPayload(ctx, id, "/v1/install", payload)
}

// Upgrade replaces the payload on an existing shard.
func (m *Manager) Upgrade(ctx context.Context, id blobs.ShardID, payload []byte) error {
	return m.pushPayload(ctx, id, "/v1/upgrade", payload)
}

// Write appends blob to the shard and returns the big-endian offset from
// the shard's response.
func (m *Manager) Write(ctx context.Context, id blobs.ShardID, blob []byte) (uint64, error) {
	addr, err := m.resolve(ctx, id)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/v1/write", bytes.NewReader(blob))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("shardhttp: write to shard %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("shardhttp: write to shard %s: shard returned %s", id, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("shardhttp: read write response: %w", err)
	}
	if len(body) != 8 {
		return 0, fmt.Errorf("shardhttp: write response is %d bytes, want 8", len(body))
	}
	return format.ReadU64(body, 0), nil
}

func (m *Manager) pushPayload(ctx context.Context, id blobs.ShardID, path string, payload []byte) error {
	addr, err := m.resolve(ctx, id)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("shardhttp: push payload to shard %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shardhttp: push payload to shard %s: shard returned %s", id, resp.Status)
	}
	return nil
}

// resolve returns the shard's address, asking the fleet controller when
// it is not cached. Addresses for restored shards are discovered here on
// first use after a restart.
func (m *Manager) resolve(ctx context.Context, id blobs.ShardID) (string, error) {
	m.mu.Lock()
	addr, ok := m.addrs[id]
	m.mu.Unlock()
	if ok {
		return addr, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.fleetURL+"/v1/shards/"+string(id), nil)
	if err != nil {
		return "", err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shardhttp: resolve shard %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrUnknownShard, id)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shardhttp: resolve shard %s: fleet returned %s", id, resp.Status)
	}

	var info shardInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("shardhttp: decode resolve response: %w", err)
	}

	m.mu.Lock()
	m.addrs[id] = info.Addr
	m.mu.Unlock()
	return info.Addr, nil
}

var _ blobs.ShardManager = (*Manager)(nil)
