// Package config loads the application configuration from defaults, an
// optional YAML file and CRMCACHE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/goliatone/go-contact-cache/cache"
	"github.com/goliatone/go-contact-cache/circuitbreaker"
	"github.com/goliatone/go-contact-cache/contacts/bunstore"
	"github.com/goliatone/go-contact-cache/internal/cacheinfra"
	"github.com/goliatone/go-contact-cache/internal/guard"
	"github.com/goliatone/go-contact-cache/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. CRMCACHE_CACHE_BACKEND.
const EnvPrefix = "CRMCACHE"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	// DriverMemory keeps contacts in process instead of a database.
	DriverMemory = "memory"
)

type Config struct {
	Cache    CacheConfig           `mapstructure:"cache"`
	Breaker  circuitbreaker.Config `mapstructure:"breaker"`
	Database DatabaseConfig        `mapstructure:"database"`
	Logging  logging.Config        `mapstructure:"logging"`
	Metrics  MetricsConfig         `mapstructure:"metrics"`
}

type CacheConfig struct {
	Backend string                 `mapstructure:"backend"`
	Memory  cacheinfra.Config      `mapstructure:"memory"`
	Redis   cacheinfra.RedisConfig `mapstructure:"redis"`

	// Prefix namespaces every key, e.g. "crm:".
	Prefix      string `mapstructure:"prefix"`
	KeyStrategy string `mapstructure:"key_strategy"`
	Codec       string `mapstructure:"codec"`

	AbsoluteExpiration time.Duration `mapstructure:"absolute_expiration"`
	SlidingExpiration  time.Duration `mapstructure:"sliding_expiration"`
}

// EntryOptions returns the configured default expiration.
func (c CacheConfig) EntryOptions() []cache.EntryOption {
	var opts []cache.EntryOption
	if c.AbsoluteExpiration > 0 {
		opts = append(opts, cache.WithAbsoluteExpiration(c.AbsoluteExpiration))
	}
	if c.SlidingExpiration > 0 {
		opts = append(opts, cache.WithSlidingExpiration(c.SlidingExpiration))
	}
	return opts
}

func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis)),
		validation.Field(&c.Memory, validation.Skip.When(c.Backend != BackendMemory)),
		validation.Field(&c.Redis, validation.Skip.When(c.Backend != BackendRedis)),
		validation.Field(&c.KeyStrategy, validation.In("plain", "hashed")),
		validation.Field(&c.Codec, validation.By(func(v any) error {
			_, err := cache.CodecByName(v.(string))
			return err
		})),
		validation.Field(&c.AbsoluteExpiration, validation.Min(time.Duration(0))),
		validation.Field(&c.SlidingExpiration, validation.Min(time.Duration(0))),
	)
}

type DatabaseConfig struct {
	// Driver is memory, sqlite or postgres.
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`

	// SeedFile is an optional JSON file of branches and contacts loaded at startup.
	SeedFile string `mapstructure:"seed_file"`
}

// Bunstore returns the SQL store settings. Only meaningful for sql drivers.
func (c DatabaseConfig) Bunstore() bunstore.Config {
	return bunstore.Config{Driver: c.Driver, DSN: c.DSN, MaxOpenConns: c.MaxOpenConns}
}

func (c DatabaseConfig) Validate() error {
	if c.Driver == DriverMemory {
		return nil
	}
	return c.Bunstore().Validate()
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// Default returns the configuration used when nothing is overridden: an
// in-process cache in front of an in-memory contact store.
func Default() Config {
	breaker := circuitbreaker.DefaultConfig()
	breaker.Name = "contacts"

	return Config{
		Cache: CacheConfig{
			Backend:            BackendMemory,
			Memory:             cacheinfra.DefaultConfig(),
			Redis:              cacheinfra.DefaultRedisConfig(),
			Prefix:             "crm:",
			KeyStrategy:        "plain",
			Codec:              "json",
			AbsoluteExpiration: cache.DefaultAbsoluteExpiration,
		},
		Breaker: breaker,
		Database: DatabaseConfig{
			Driver:       DriverMemory,
			DSN:          bunstore.DefaultConfig().DSN,
			MaxOpenConns: bunstore.DefaultConfig().MaxOpenConns,
		},
		Logging: logging.DefaultConfig(),
		Metrics: MetricsConfig{Enabled: true, Namespace: "crmcache"},
	}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Cache),
		validation.Field(&c.Breaker),
		validation.Field(&c.Database),
		validation.Field(&c.Logging),
	)
}

// Load reads path when it is not empty, applies environment overrides and
// validates the result. An empty environment variable clears its key.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: config file %s not found", guard.ErrInvalidArgument, path)
			}
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: config: %v", guard.ErrInvalidArgument, err)
	}
	return &cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.prefix", d.Cache.Prefix)
	v.SetDefault("cache.key_strategy", d.Cache.KeyStrategy)
	v.SetDefault("cache.codec", d.Cache.Codec)
	v.SetDefault("cache.absolute_expiration", d.Cache.AbsoluteExpiration)
	v.SetDefault("cache.sliding_expiration", d.Cache.SlidingExpiration)

	v.SetDefault("cache.memory.capacity", d.Cache.Memory.Capacity)
	v.SetDefault("cache.memory.num_shards", d.Cache.Memory.NumShards)
	v.SetDefault("cache.memory.ttl", d.Cache.Memory.TTL)
	v.SetDefault("cache.memory.eviction_percentage", d.Cache.Memory.EvictionPercentage)
	v.SetDefault("cache.memory.eviction_interval", d.Cache.Memory.EvictionInterval)

	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.redis.dial_timeout", d.Cache.Redis.DialTimeout)
	v.SetDefault("cache.redis.read_timeout", d.Cache.Redis.ReadTimeout)
	v.SetDefault("cache.redis.write_timeout", d.Cache.Redis.WriteTimeout)
	v.SetDefault("cache.redis.pool_size", d.Cache.Redis.PoolSize)

	v.SetDefault("breaker.name", d.Breaker.Name)
	v.SetDefault("breaker.failure_threshold", d.Breaker.FailureThreshold)
	v.SetDefault("breaker.cooldown", d.Breaker.Cooldown)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.seed_file", d.Database.SeedFile)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
}
