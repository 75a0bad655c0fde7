// Package config loads fragment cache settings from environment variables
// and YAML files, and builds the backends they describe.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/fragcache"
	"github.com/unkn0wn-root/fragcache/codec"
	"github.com/unkn0wn-root/fragcache/genstore"
	"github.com/unkn0wn-root/fragcache/internal/wire"
	"github.com/unkn0wn-root/fragcache/provider"
	"github.com/unkn0wn-root/fragcache/provider/bigcache"
	"github.com/unkn0wn-root/fragcache/provider/redis"
	"github.com/unkn0wn-root/fragcache/provider/ristretto"
)

// Backend types.
const (
	BackendRedis     = "redis"
	BackendBigcache  = "bigcache"
	BackendRistretto = "ristretto"
)

// Generation store types.
const (
	GenLocal = "local"
	GenRedis = "redis"
)

type Config struct {
	fragcache.Settings `yaml:",inline"`

	Secret     string `yaml:"secret" env:"ADV_CACHE_SECRET"`
	Debug      bool   `yaml:"debug" env:"ADV_CACHE_DEBUG"`
	Serializer string `yaml:"serializer" env:"ADV_CACHE_SERIALIZER"`
	Compressor string `yaml:"compressor" env:"ADV_CACHE_COMPRESSOR"`
	// RedisURL replaces the default backend with a redis backend.
	RedisURL string `yaml:"-" env:"ADV_CACHE_REDIS_URL"`

	Backends    map[string]Backend `yaml:"backends"`
	Generations Generations        `yaml:"generations"`
}

type Backend struct {
	Type      string           `yaml:"type"`
	URL       string           `yaml:"url"`
	KeyPrefix string           `yaml:"key_prefix"`
	Bigcache  bigcache.Config  `yaml:"bigcache"`
	Ristretto ristretto.Config `yaml:"ristretto"`
}

type Generations struct {
	Type            string        `yaml:"type" env:"ADV_CACHE_GEN_STORE"`
	URL             string        `yaml:"url" env:"ADV_CACHE_GEN_REDIS_URL"`
	Namespace       string        `yaml:"namespace" env:"ADV_CACHE_GEN_NAMESPACE"`
	TTL             time.Duration `yaml:"ttl" env:"ADV_CACHE_GEN_TTL"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"ADV_CACHE_GEN_CLEANUP_INTERVAL"`
	Retention       time.Duration `yaml:"retention" env:"ADV_CACHE_GEN_RETENTION"`
}

// Default returns a configuration with one in-process ristretto backend
// named "default" and local generations. Secret is left empty.
func Default() Config {
	return Config{
		Settings: fragcache.Settings{CacheBackend: "default"},
		Backends: map[string]Backend{
			"default": {
				Type: BackendRistretto,
				Ristretto: ristretto.Config{
					NumCounters: 100_000,
					MaxCost:     64 << 20,
					BufferItems: 64,
					SyncWrites:  true,
				},
			},
		},
		Generations: Generations{Type: GenLocal},
	}
}

// Load reads the configuration from environment variables on top of Default.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadFile reads a YAML file on top of Default, then applies environment
// overrides. Unknown YAML fields are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := unmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func unmarshalStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("unknown configuration field (check for typos): %w", err)
		}
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	if c.CacheBackend == "" {
		c.CacheBackend = "default"
	}
	if c.RedisURL != "" {
		if c.Backends == nil {
			c.Backends = make(map[string]Backend)
		}
		c.Backends[c.CacheBackend] = Backend{Type: BackendRedis, URL: c.RedisURL}
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Secret == "" {
		errs = append(errs, errors.New("secret is required (ADV_CACHE_SECRET)"))
	}
	if _, ok := c.Backends[c.CacheBackend]; !ok {
		errs = append(errs, fmt.Errorf("default cache backend %q is not defined", c.CacheBackend))
	}
	for _, name := range c.backendNames() {
		b := c.Backends[name]
		switch b.Type {
		case BackendRedis:
			if b.URL == "" {
				errs = append(errs, fmt.Errorf("backend %q: redis url is required", name))
			}
		case BackendBigcache, BackendRistretto:
		default:
			errs = append(errs, fmt.Errorf("backend %q: unknown type %q", name, b.Type))
		}
	}
	switch c.Generations.Type {
	case "", GenLocal:
	case GenRedis:
		if c.Generations.URL == "" {
			errs = append(errs, errors.New("generations: redis url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("generations: unknown type %q", c.Generations.Type))
	}
	if _, err := codec.New(c.Serializer, c.Compressor); err != nil {
		errs = append(errs, err)
	}
	if err := wire.CheckTag(c.InternalVersionSuffix); err != nil {
		errs = append(errs, fmt.Errorf("internal_version: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Config) backendNames() []string {
	names := make([]string, 0, len(c.Backends))
	for n := range c.Backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BuildBackends creates one provider per configured backend. On error the
// providers built so far are closed.
func (c *Config) BuildBackends(ctx context.Context) (map[string]provider.Provider, error) {
	out := make(map[string]provider.Provider, len(c.Backends))
	for _, name := range c.backendNames() {
		p, err := buildBackend(ctx, c.Backends[name])
		if err != nil {
			for _, built := range out {
				_ = built.Close(ctx)
			}
			return nil, fmt.Errorf("backend %q: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}

func buildBackend(ctx context.Context, b Backend) (provider.Provider, error) {
	switch b.Type {
	case BackendRedis:
		return redis.NewFromURL(b.URL, b.KeyPrefix)
	case BackendBigcache:
		return bigcache.New(ctx, b.Bigcache)
	case BackendRistretto:
		return ristretto.New(b.Ristretto)
	default:
		return nil, fmt.Errorf("unknown backend type %q", b.Type)
	}
}

// BuildGenStore returns nil for local generations; fragcache then creates
// and owns its in-process store.
func (c *Config) BuildGenStore() (genstore.GenStore, error) {
	if c.Generations.Type != GenRedis {
		return nil, nil
	}
	client, err := newRedisClient(c.Generations.URL)
	if err != nil {
		return nil, err
	}
	return genstore.NewRedisGenStore(genstore.RedisConfig{
		Client:      client,
		Namespace:   c.Generations.Namespace,
		TTL:         c.Generations.TTL,
		CloseClient: true,
	})
}

// Options assembles fragcache.Options from the configuration. The returned
// options own every backend and generation store they reference.
func (c *Config) Options(ctx context.Context, logger fragcache.Logger, hooks fragcache.Hooks) (fragcache.Options, error) {
	backends, err := c.BuildBackends(ctx)
	if err != nil {
		return fragcache.Options{}, err
	}
	closeAll := func() {
		for _, p := range backends {
			_ = p.Close(ctx)
		}
	}
	cdc, err := codec.New(c.Serializer, c.Compressor)
	if err != nil {
		closeAll()
		return fragcache.Options{}, err
	}
	gs, err := c.BuildGenStore()
	if err != nil {
		closeAll()
		return fragcache.Options{}, err
	}

	opts := fragcache.Options{
		Settings:        c.Settings,
		Backends:        backends,
		Secret:          c.Secret,
		Logger:          logger,
		Hooks:           hooks,
		GenStore:        gs,
		CloseGenStore:   gs != nil,
		CleanupInterval: c.Generations.CleanupInterval,
		GenRetention:    c.Generations.Retention,
		Debug:           c.Debug,
	}
	if c.Serializer != "" || c.Compressor != "" {
		opts.Codec = cdc
	}
	return opts, nil
}
