package contacts

import (
	"context"

	"github.com/google/uuid"

	"github.com/goliatone/go-contact-cache/cache"
	"github.com/goliatone/go-contact-cache/internal/guard"
	"github.com/goliatone/go-contact-cache/repositorycache"
)

var _ Repository = (*CachingRepository)(nil)

// CachingRepository decorates a Repository with a fail-open read-through cache
// for single contact lookups. Listing is not cached.
type CachingRepository struct {
	source Repository
	cache  *repositorycache.ResilientCache[*Contact]
	keys   cache.KeyStrategy
	entity string
}

// NewCachingRepository wraps source. keys defaults to the plain key strategy.
func NewCachingRepository(source Repository, rc *repositorycache.ResilientCache[*Contact], keys cache.KeyStrategy) (*CachingRepository, error) {
	if err := guard.NotNil(source, "source"); err != nil {
		return nil, err
	}
	if err := guard.NotNil(rc, "cache"); err != nil {
		return nil, err
	}
	if keys == nil {
		keys = cache.NewDefaultKeyStrategy("")
	}

	return &CachingRepository{
		source: source,
		cache:  rc,
		keys:   keys,
		entity: cache.EntityName(Contact{}),
	}, nil
}

// Key returns the cache key for a contact id.
func (r *CachingRepository) Key(id uuid.UUID) string {
	return r.keys.Key(r.entity, id)
}

// GetContact reads through the cache. A degraded cache only adds latency.
func (r *CachingRepository) GetContact(ctx context.Context, id uuid.UUID) (*Contact, error) {
	contact, found, err := r.cache.Get(ctx, r.Key(id), func(ctx context.Context) (*Contact, bool, error) {
		c, err := r.source.GetContact(ctx, id)
		return c, c != nil, err
	})
	if err != nil || !found {
		return nil, err
	}
	return contact, nil
}

// InsertContact writes to the source and then, best effort, to the cache.
// Nothing is cached when the source rejects the insert.
func (r *CachingRepository) InsertContact(ctx context.Context, contact *Contact) error {
	if err := guard.NotNil(contact, "contact"); err != nil {
		return err
	}
	if err := r.source.InsertContact(ctx, contact); err != nil {
		return err
	}
	r.cache.Put(ctx, r.Key(contact.ID), contact)
	return nil
}

// ListContacts reads straight from the source.
func (r *CachingRepository) ListContacts(ctx context.Context) ([]*Contact, error) {
	return r.source.ListContacts(ctx)
}
