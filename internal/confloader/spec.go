package confloader

// Config is the full daemon configuration tree. Keys map to YAML
// sections and to STABLEKIT_SECTION_KEY environment variables.
type Config struct {
	Log   LogConfig   `koanf:"log"`
	Shard ShardConfig `koanf:"shard"`
	Pool  PoolConfig  `koanf:"pool"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "text" or "json".
	Format string `koanf:"format"`
}

// ShardConfig configures a shardd process.
type ShardConfig struct {
	// Listen is the HTTP listen address.
	Listen string `koanf:"listen"`

	// DataDir holds the shard's region file, identity, and payload.
	DataDir string `koanf:"data_dir"`

	// MaxBytes is the shard's capacity.
	MaxBytes uint64 `koanf:"max_bytes"`
}

// PoolConfig configures the blob pool side.
type PoolConfig struct {
	// FleetURL is the base URL of the fleet controller.
	FleetURL string `koanf:"fleet_url"`

	// MaxShardBytes is the per-shard capacity used by selection.
	MaxShardBytes uint64 `koanf:"max_shard_bytes"`

	// PayloadPath is the executable payload installed on new shards.
	PayloadPath string `koanf:"payload_path"`
}

// defaults is the bottom configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"log.level":            "info",
		"log.format":           "text",
		"shard.listen":         ":5090",
		"shard.data_dir":       "/var/lib/stablekit/shard",
		"shard.max_bytes":      uint64(4 << 30),
		"pool.max_shard_bytes": uint64(4 << 30),
	}
}
