package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goliatone/go-contact-cache/cache"
	"github.com/goliatone/go-contact-cache/config"
	"github.com/goliatone/go-contact-cache/contacts"
	"github.com/goliatone/go-contact-cache/contacts/bunstore"
	"github.com/goliatone/go-contact-cache/contacts/memstore"
	"github.com/goliatone/go-contact-cache/internal/cacheinfra"
	"github.com/goliatone/go-contact-cache/internal/guard"
	"github.com/goliatone/go-contact-cache/internal/logging"
	"github.com/goliatone/go-contact-cache/internal/metrics"
	"github.com/goliatone/go-contact-cache/repositorycache"
)

// Option overrides a component the container would otherwise build from config.
type Option func(*Container)

// WithLogger replaces the logger built from the logging section.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithCacheStore replaces the backend selected by cache.backend.
func WithCacheStore(store cache.Store) Option {
	return func(c *Container) {
		c.store = store
	}
}

// WithSource replaces the contact and branch repositories selected by database.driver.
func WithSource(source contacts.Repository, branches contacts.BranchRepository) Option {
	return func(c *Container) {
		c.source = source
		c.branches = branches
	}
}

// Container wires the contact service, its resilient cache and the stores
// behind them from a config.Config. Components are built once and shared.
type Container struct {
	config config.Config

	logger    *zap.Logger
	collector *metrics.Collector
	recorder  metrics.Recorder

	store   cache.Store
	records *cache.TypedCache
	keys    cache.KeyStrategy
	cache   *repositorycache.ResilientCache[*contacts.Contact]

	source     contacts.Repository
	branches   contacts.BranchRepository
	repository *contacts.CachingRepository
	service    *contacts.Service

	closers []func() error
}

// NewContainer validates cfg and builds every component. ctx bounds the
// startup work: database migration and seeding.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: config: %v", guard.ErrInvalidArgument, err)
	}

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	steps := []func(context.Context) error{
		c.initLogger,
		c.initMetrics,
		c.initCache,
		c.initSource,
		c.initService,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return nil, errors.Join(err, c.Close())
		}
	}

	c.logger.Info("container ready",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Bool("metrics", c.collector != nil),
	)
	return c, nil
}

// NewContainerWithDefaults builds a container from config.Default.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, config.Default(), opts...)
}

func (c *Container) initLogger(context.Context) error {
	if c.logger != nil {
		return nil
	}
	logger, err := logging.New(c.config.Logging)
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

func (c *Container) initMetrics(context.Context) error {
	c.recorder = metrics.Nop{}
	if c.config.Metrics.Enabled {
		c.collector = metrics.NewCollector(c.config.Metrics.Namespace)
		c.recorder = c.collector
	}
	return nil
}

func (c *Container) initCache(context.Context) error {
	cfg := c.config.Cache

	if c.store == nil {
		store, err := c.newCacheStore(cfg)
		if err != nil {
			return err
		}
		c.store = store
	}

	codec, err := cache.CodecByName(cfg.Codec)
	if err != nil {
		return err
	}
	c.records, err = cache.NewTypedCache(c.store, cache.WithCodec(codec))
	if err != nil {
		return err
	}

	c.keys = cache.KeyStrategyByName(cfg.KeyStrategy, cfg.Prefix)

	c.cache, err = repositorycache.New[*contacts.Contact](c.records, c.config.Breaker,
		repositorycache.WithName("contacts"),
		repositorycache.WithLogger(c.logger),
		repositorycache.WithMetrics(c.recorder),
		repositorycache.WithDefaultEntryOptions(cfg.EntryOptions()...),
	)
	return err
}

// newCacheStore builds the configured backend. An unreachable Redis does not
// stop startup; reads fall back to the source until it recovers.
func (c *Container) newCacheStore(cfg config.CacheConfig) (cache.Store, error) {
	if cfg.Backend != config.BackendRedis {
		store, err := cacheinfra.NewSturdycStore(cfg.Memory)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := cacheinfra.NewRedisStore(cfg.Redis)
	if err != nil {
		if !errors.Is(err, cache.ErrTransport) {
			return nil, err
		}
		c.logger.Warn("redis unreachable at startup, serving from source until it recovers",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err),
		)
		store = cacheinfra.NewRedisStoreFromClient(redis.NewClient(cfg.Redis.Options()))
	}
	c.closers = append(c.closers, store.Close)
	return store, nil
}

func (c *Container) initSource(ctx context.Context) error {
	if c.source == nil || c.branches == nil {
		if err := c.newSource(ctx); err != nil {
			return err
		}
	}

	if path := c.config.Database.SeedFile; path != "" {
		n, err := seedFromFile(ctx, path, c.source, c.branches)
		if err != nil {
			return err
		}
		c.logger.Info("source seeded", zap.String("file", path), zap.Int("contacts", n))
	}
	return nil
}

func (c *Container) newSource(ctx context.Context) error {
	if c.config.Database.Driver == config.DriverMemory {
		store := memstore.New()
		c.source, c.branches = store, store
		return nil
	}

	db, err := bunstore.Open(c.config.Database.Bunstore())
	if err != nil {
		return err
	}
	store, err := bunstore.New(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	c.closers = append(c.closers, store.Close)

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	c.source, c.branches = store, store
	return nil
}

func (c *Container) initService(context.Context) error {
	var err error
	c.repository, err = contacts.NewCachingRepository(c.source, c.cache, c.keys)
	if err != nil {
		return err
	}
	c.service, err = contacts.NewService(c.repository, c.branches, contacts.WithServiceLogger(c.logger))
	return err
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Metrics returns the Prometheus collector, or nil when metrics are disabled.
func (c *Container) Metrics() *metrics.Collector {
	return c.collector
}

func (c *Container) CacheStore() cache.Store {
	return c.store
}

func (c *Container) Records() *cache.TypedCache {
	return c.records
}

func (c *Container) KeyStrategy() cache.KeyStrategy {
	return c.keys
}

// ContactCache returns the resilient cache in front of the contact source.
func (c *Container) ContactCache() *repositorycache.ResilientCache[*contacts.Contact] {
	return c.cache
}

// Repository returns the caching contact repository.
func (c *Container) Repository() *contacts.CachingRepository {
	return c.repository
}

func (c *Container) Branches() contacts.BranchRepository {
	return c.branches
}

func (c *Container) Service() *contacts.Service {
	return c.service
}

// Close releases the stores the container opened, newest first.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return errors.Join(errs...)
}
