package cache

import (
	"context"
	"fmt"

	"github.com/goliatone/go-contact-cache/internal/guard"
)

var _ RecordCache = (*TypedCache)(nil)

// TypedCache adapts a byte Store into a RecordCache. Serialization lives here so
// that callers wrapping the Store (for example with a circuit breaker) only see
// transport behaviour.
type TypedCache struct {
	store    Store
	codec    Codec
	defaults EntryOptions
}

// TypedCacheOption configures a TypedCache.
type TypedCacheOption func(*TypedCache)

// WithCodec overrides the default JSON codec.
func WithCodec(codec Codec) TypedCacheOption {
	return func(c *TypedCache) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithDefaultEntryOptions sets the expiration policy used when SetRecord is
// called without options.
func WithDefaultEntryOptions(opts EntryOptions) TypedCacheOption {
	return func(c *TypedCache) {
		c.defaults = opts
	}
}

// NewTypedCache creates a TypedCache over store.
func NewTypedCache(store Store, opts ...TypedCacheOption) (*TypedCache, error) {
	if err := guard.NotNil(store, "store"); err != nil {
		return nil, err
	}

	c := &TypedCache{
		store: store,
		codec: JSONCodec{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.defaults.Validate(); err != nil {
		return nil, fmt.Errorf("%w: default entry options: %v", ErrInvalidArgument, err)
	}
	return c, nil
}

// Codec returns the codec used to encode records.
func (c *TypedCache) Codec() Codec {
	return c.codec
}

// SetRecord encodes value and writes it under key.
func (c *TypedCache) SetRecord(ctx context.Context, key string, value any, opts ...EntryOption) error {
	if err := guard.NotMissing(key, "key"); err != nil {
		return err
	}
	if err := guard.NotNil(value, "value"); err != nil {
		return err
	}

	entry := NewEntryOptions(c.defaults, opts...)
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: entry options: %v", ErrInvalidArgument, err)
	}

	data, err := c.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %w", ErrSerialization, key, err)
	}

	return c.store.Set(ctx, key, data, entry)
}

// GetRecord reads key and decodes it into dest.
func (c *TypedCache) GetRecord(ctx context.Context, key string, dest any) (bool, error) {
	if err := guard.NotMissing(key, "key"); err != nil {
		return false, err
	}
	if err := guard.NotNil(dest, "dest"); err != nil {
		return false, err
	}

	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if err := c.codec.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("%w: decode %q: %w", ErrSerialization, key, err)
	}
	return true, nil
}

// Remove deletes key from the underlying store.
func (c *TypedCache) Remove(ctx context.Context, key string) error {
	if err := guard.NotMissing(key, "key"); err != nil {
		return err
	}
	return c.store.Delete(ctx, key)
}
