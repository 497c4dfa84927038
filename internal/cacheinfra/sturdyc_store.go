package cacheinfra

import (
	"context"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-contact-cache/cache"
)

var _ cache.Store = (*SturdycStore)(nil)

// Config holds the configuration for the in-process sturdyc store.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int `mapstructure:"capacity"`

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int `mapstructure:"num_shards"`

	// TTL caps the lifetime of every entry regardless of its EntryOptions.
	// Must be greater than 0.
	TTL time.Duration `mapstructure:"ttl"`

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int `mapstructure:"eviction_percentage"`

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the optional settings to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go straight to sturdyc.New.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
}

// SturdycStore is an in-process cache.Store. sturdyc handles sharding, capacity
// and the global TTL; per entry absolute and sliding expiration is tracked in
// the stored envelope.
type SturdycStore struct {
	client *sturdyc.Client[envelope]
	now    func() time.Time

	// writeMu serializes writes so a read's touch or expiry cleanup never
	// replaces an entry stored after the read.
	writeMu sync.Mutex
}

// NewSturdycStore validates cfg and creates the store.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[envelope](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycStore{client: client, now: time.Now}, nil
}

// Get implements cache.Store.Get. Expired entries are removed and reported as a miss.
func (s *SturdycStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	env, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}

	now := s.now()
	if env.expired(now) {
		s.replaceIfUnchanged(key, env, nil)
		return nil, false, nil
	}

	if env.Sliding > 0 {
		touched := env
		touched.AccessedAt = now.UnixNano()
		s.replaceIfUnchanged(key, env, &touched)
	}

	return cloneBytes(env.Data), true, nil
}

// replaceIfUnchanged stores next, or deletes key when next is nil, only if the
// entry under key is still the write observed as prev.
func (s *SturdycStore) replaceIfUnchanged(key string, prev envelope, next *envelope) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.client.Get(key)
	if !ok || !current.sameWrite(prev) {
		return
	}
	if next == nil {
		s.client.Delete(key)
		return
	}
	s.client.Set(key, *next)
}

// Set implements cache.Store.Set.
func (s *SturdycStore) Set(ctx context.Context, key string, value []byte, opts cache.EntryOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := newEnvelope(cloneBytes(value), opts, s.now())

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.client.Set(key, env)
	return nil
}

// Delete implements cache.Store.Delete.
func (s *SturdycStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.client.Delete(key)
	return nil
}

// Size returns the number of entries currently held, expired or not.
func (s *SturdycStore) Size() int {
	return s.client.Size()
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
