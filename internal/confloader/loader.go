package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the environment variable prefix. STABLEKIT_SHARD_LISTEN
// maps to the shard.listen key.
const EnvPrefix = "STABLEKIT_"

// Loader layers configuration sources into one koanf tree.
type Loader struct {
	k        *koanf.Koanf
	filePath string
}

// Option configures a Loader.
type Option func(*Loader)

// WithConfigFile adds a YAML file between defaults and environment.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader returns a loader with built-in defaults applied.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{k: koanf.New(".")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads all sources in priority order and returns the resulting
// configuration.
func (l *Loader) Load() (*Config, error) {
	if err := l.k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("confloader: load defaults: %w", err)
	}

	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("confloader: load %s: %w", l.filePath, err)
		}
	}

	if err := l.k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("confloader: load environment: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("confloader: unmarshal: %w", err)
	}
	return &cfg, nil
}

// envKey maps STABLEKIT_SHARD_MAX_BYTES to shard.max_bytes. Only the
// first underscore separates sections; the rest stay in the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, found := strings.Cut(s, "_")
	if !found {
		return s
	}
	return section + "." + key
}
