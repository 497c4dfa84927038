package repositorycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-contact-cache/cache"
	"github.com/goliatone/go-contact-cache/circuitbreaker"
	"github.com/goliatone/go-contact-cache/internal/guard"
	"github.com/goliatone/go-contact-cache/internal/logging"
	"github.com/goliatone/go-contact-cache/internal/metrics"
)

// FetchFunc loads a record from the source of truth. found is false when the
// record does not exist; that is not an error.
type FetchFunc[T any] func(ctx context.Context) (value T, found bool, err error)

// Option configures a ResilientCache.
type Option func(*options)

type options struct {
	name        string
	logger      *zap.Logger
	recorder    metrics.Recorder
	entryOpts   []cache.EntryOption
	breakerOpts []circuitbreaker.Option
}

// WithName labels logs and metrics. Defaults to the breaker name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger for fallbacks and discarded writes.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder. The recorder also observes breaker
// transitions.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithDefaultEntryOptions applies opts to every write before any context overrides.
func WithDefaultEntryOptions(opts ...cache.EntryOption) Option {
	return func(o *options) {
		o.entryOpts = append(o.entryOpts, opts...)
	}
}

// WithBreakerOptions passes extra options to the owned circuit breaker.
func WithBreakerOptions(opts ...circuitbreaker.Option) Option {
	return func(o *options) {
		o.breakerOpts = append(o.breakerOpts, opts...)
	}
}

// ResilientCache is a read-through cache that fails open. Cache reads go
// through a circuit breaker owned by the instance; when the breaker rejects the
// read or the cache errors, the source is read directly and nothing is written
// back. Cache writes are best effort and never reach the caller or the breaker.
type ResilientCache[T any] struct {
	name      string
	records   cache.RecordCache
	breaker   *circuitbreaker.Breaker
	logger    *zap.Logger
	recorder  metrics.Recorder
	entryOpts []cache.EntryOption
}

// New creates a ResilientCache over records with its own breaker built from cfg.
func New[T any](records cache.RecordCache, cfg circuitbreaker.Config, opts ...Option) (*ResilientCache[T], error) {
	if err := guard.NotNil(records, "records"); err != nil {
		return nil, err
	}

	o := &options{recorder: metrics.Nop{}}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrNop(o.logger)
	if o.name == "" {
		o.name = cfg.Name
	}

	if cfg.IsFailure == nil {
		cfg.IsFailure = IsCacheFailure
	}
	breakerOpts := append([]circuitbreaker.Option{
		circuitbreaker.WithLogger(o.logger),
		metrics.BreakerHook(o.recorder),
	}, o.breakerOpts...)

	breaker, err := circuitbreaker.New(cfg, breakerOpts...)
	if err != nil {
		return nil, err
	}

	return &ResilientCache[T]{
		name:      o.name,
		records:   records,
		breaker:   breaker,
		logger:    o.logger.With(zap.String("cache", o.name)),
		recorder:  o.recorder,
		entryOpts: o.entryOpts,
	}, nil
}

// IsCacheFailure reports whether err from a cache read should count against
// the breaker. Bad input and undecodable entries say nothing about the health
// of the backend.
func IsCacheFailure(err error) bool {
	return !errors.Is(err, cache.ErrInvalidArgument) && !errors.Is(err, cache.ErrSerialization)
}

// Breaker returns the breaker guarding cache reads.
func (c *ResilientCache[T]) Breaker() *circuitbreaker.Breaker {
	return c.breaker
}

// Get returns the record stored under key, reading through to fetch on a miss.
// found is false when neither the cache nor the source has the record. Source
// errors are returned unchanged; cache errors never are.
func (c *ResilientCache[T]) Get(ctx context.Context, key string, fetch FetchFunc[T]) (T, bool, error) {
	var zero T
	if err := guard.NotMissing(key, "key"); err != nil {
		return zero, false, err
	}
	if fetch == nil {
		return zero, false, fmt.Errorf("%w: fetch must not be nil", guard.ErrInvalidArgument)
	}

	var cached T
	var hit bool
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		hit, err = c.records.GetRecord(ctx, key, &cached)
		return err
	})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, false, ctxErr
		}
		c.fallback(key, err)
		if !errors.Is(err, cache.ErrSerialization) {
			return c.fetch(ctx, fetch)
		}
		return c.repair(ctx, key, fetch)
	}

	if hit {
		c.recorder.CacheHit(c.name)
		return cached, true, nil
	}

	c.recorder.CacheMiss(c.name)
	value, found, err := c.fetch(ctx, fetch)
	if err != nil || !found {
		return zero, false, err
	}

	c.Put(ctx, key, value)
	return value, true, nil
}

// Put writes value under key. Failures are logged and counted, never returned.
func (c *ResilientCache[T]) Put(ctx context.Context, key string, value T) {
	opts := append(append([]cache.EntryOption(nil), c.entryOpts...), entryOptionsFromContext(ctx)...)
	if err := c.records.SetRecord(ctx, key, value, opts...); err != nil {
		c.recorder.WriteBackFailure(c.name)
		c.logger.Warn("cache write discarded",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// recordRemover is implemented by record caches that can drop a single entry.
type recordRemover interface {
	Remove(ctx context.Context, key string) error
}

// repair reads through to the source after the entry under key failed to
// decode, then replaces the entry with the source value, or removes it when
// the source has no record.
func (c *ResilientCache[T]) repair(ctx context.Context, key string, fetch FetchFunc[T]) (T, bool, error) {
	value, found, err := c.fetch(ctx, fetch)
	if err != nil {
		return value, false, err
	}
	if found {
		c.Put(ctx, key, value)
		return value, true, nil
	}

	if remover, ok := c.records.(recordRemover); ok {
		if err := remover.Remove(ctx, key); err != nil {
			c.logger.Warn("undecodable cache entry not removed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	var zero T
	return zero, false, nil
}

func (c *ResilientCache[T]) fetch(ctx context.Context, fetch FetchFunc[T]) (T, bool, error) {
	start := time.Now()
	value, found, err := fetch(ctx)
	c.recorder.SourceDuration(c.name, time.Since(start))
	if err != nil {
		var zero T
		return zero, false, err
	}
	if found && guard.IsNil(value) {
		found = false
	}
	return value, found, nil
}

func (c *ResilientCache[T]) fallback(key string, err error) {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		c.recorder.Fallback(c.name, metrics.ReasonBreakerOpen)
		c.logger.Debug("cache bypassed, breaker open", zap.String("key", key))
		return
	}
	c.recorder.Fallback(c.name, metrics.ReasonCacheError)
	c.logger.Warn("cache read failed, reading from source",
		zap.String("key", key),
		zap.Error(err),
	)
}
