package cache

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-storefront/internal/cacheinfra"
	"github.com/redis/go-redis/v9"
)

// Backend selects where cached catalog entries live.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	// Enabled is the global switch. When false every lookup goes straight to
	// the entity store and nothing is cached.
	Enabled              bool                `yaml:"enabled"`
	Backend              Backend             `yaml:"backend"`
	Capacity             int                 `yaml:"capacity"`
	NumShards            int                 `yaml:"num_shards"`
	TTL                  time.Duration       `yaml:"ttl"`
	EvictionPercentage   int                 `yaml:"eviction_percentage"`
	EarlyRefresh         *EarlyRefreshConfig `yaml:"early_refresh"`
	MissingRecordStorage bool                `yaml:"missing_record_storage"`
	EvictionInterval     time.Duration       `yaml:"eviction_interval"`
	Redis                RedisConfig         `yaml:"redis"`
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `yaml:"min_async_refresh"`
	MaxAsyncRefreshTime time.Duration `yaml:"max_async_refresh"`
	SyncRefreshTime     time.Duration `yaml:"sync_refresh"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Option customizes service construction.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	redisClient redis.UniversalClient
}

// WithLogger sets the logger used by backends that report degraded reads.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRedisClient reuses an existing redis client instead of dialing Redis.Addr.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) { o.redisClient = client }
}

// DefaultConfig returns an enabled in-memory configuration.
func DefaultConfig() Config {
	cfg := convertFromInternal(cacheinfra.DefaultConfig())
	cfg.Enabled = true
	cfg.Backend = BackendMemory
	r := cacheinfra.DefaultRedisConfig()
	cfg.Redis = RedisConfig{Addr: r.Addr, Prefix: r.Prefix, TTL: r.TTL}
	return cfg
}

// Validate checks whether the configuration values are valid. A disabled
// configuration is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.backend() {
	case BackendMemory:
		return c.toInternal().Validate()
	case BackendRedis:
		return c.redisToInternal().Validate()
	}
	return &cacheinfra.ConfigError{Field: "Backend", Message: "must be memory or redis"}
}

// NewCacheService constructs the cache service selected by cfg.
func NewCacheService(cfg Config, opts ...Option) (CacheService, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		return cacheinfra.NewPassthroughService(), nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.backend() {
	case BackendRedis:
		if o.redisClient != nil {
			return cacheinfra.NewRedisService(o.redisClient, cfg.redisToInternal(), o.logger)
		}
		client, err := cacheinfra.NewRedisClient(context.Background(), cfg.redisToInternal())
		if err != nil {
			return nil, err
		}
		svc, err := cacheinfra.NewRedisService(client, cfg.redisToInternal(), o.logger)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &ownedClient{CacheService: svc, client: client}, nil
	default:
		return cacheinfra.NewSturdycService(cfg.toInternal())
	}
}

// ownedClient holds a redis client dialed by NewCacheService.
type ownedClient struct {
	CacheService
	client redis.UniversalClient
}

func (s *ownedClient) Close() error {
	return s.client.Close()
}

// Close releases what svc owns. Only a redis client dialed by
// NewCacheService is closed; one passed with WithRedisClient stays open.
func Close(svc CacheService) error {
	if c, ok := svc.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (c Config) backend() Backend {
	b := Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if b == "" {
		return BackendMemory
	}
	return b
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
}

func (c Config) redisToInternal() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Prefix:   c.Redis.Prefix,
		TTL:      c.Redis.TTL,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		EarlyRefresh:         early,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
	}
}
