package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-contact-cache/cache"
)

var _ cache.Store = (*RedisStore)(nil)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

// DefaultRedisConfig returns connection settings for a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// Validate checks the connection settings.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0)),
		validation.Field(&c.PoolSize, validation.Min(0)),
		validation.Field(&c.DialTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.ReadTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.WriteTimeout, validation.Min(time.Duration(0))),
	)
}

// RedisStore is a cache.Store backed by Redis. Entries are stored as msgpack
// envelopes; the Redis TTL enforces expiration and is pushed forward on reads
// of entries with a sliding expiration. The push is a compare-and-set script,
// so it never replaces a value written after the read.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// Options converts the settings to go-redis client options.
func (c RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolSize:     c.PoolSize,
	}
}

// NewRedisStore connects to Redis and verifies the connection with a PING.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(cfg.Options())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %w", cache.ErrTransport, cfg.Addr, err)
	}

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Get implements cache.Store.Get.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, s.transportError(ctx, "get", key, err)
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: redis envelope %q: %w", cache.ErrSerialization, key, err)
	}

	now := s.now()
	if env.expired(now) {
		return nil, false, nil
	}

	if env.Sliding > 0 {
		env.AccessedAt = now.UnixNano()
		if err := s.touch(ctx, key, raw, env, now); err != nil {
			return nil, false, err
		}
	}

	return env.Data, true, nil
}

// Set implements cache.Store.Set.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, opts cache.EntryOptions) error {
	now := s.now()
	env := newEnvelope(value, opts, now)

	data, err := encodeEnvelope(env)
	if err != nil {
		return fmt.Errorf("%w: redis envelope %q: %w", cache.ErrSerialization, key, err)
	}

	if err := s.client.Set(ctx, key, data, env.ttl(now)).Err(); err != nil {
		return s.transportError(ctx, "set", key, err)
	}
	return nil
}

// touchScript replaces the envelope only while the key still holds the bytes
// the read observed, so a concurrent Set is never overwritten by a touch.
var touchScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
end
return false
`)

// touch rewrites the envelope read as raw with its new access time so the
// sliding window and the Redis TTL move together.
func (s *RedisStore) touch(ctx context.Context, key string, raw []byte, env envelope, now time.Time) error {
	ttl := env.ttl(now)
	if ttl < time.Millisecond {
		return nil
	}
	data, err := encodeEnvelope(env)
	if err != nil {
		return fmt.Errorf("%w: redis envelope %q: %w", cache.ErrSerialization, key, err)
	}
	err = touchScript.Run(ctx, s.client, []string{key}, raw, data, ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return s.transportError(ctx, "touch", key, err)
	}
	return nil
}

// Delete implements cache.Store.Delete.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return s.transportError(ctx, "del", key, err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// transportError wraps err as a cache transport failure unless the caller's
// context ended, in which case the context error is returned as is.
func (s *RedisStore) transportError(ctx context.Context, op, key string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: redis %s %q: %w", cache.ErrTransport, op, key, err)
}
