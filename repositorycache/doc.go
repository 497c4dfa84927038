// Package repositorycache puts a fail-open, read-through cache in front of a
// repository.
//
// A ResilientCache reads through a cache.RecordCache guarded by its own
// circuit breaker. A hit is returned without touching the source. A miss reads
// the source and writes the record back. A failed or rejected cache read goes
// straight to the source without writing back. Write failures are logged and
// counted, never returned, and they do not move the breaker.
//
//	rc, err := repositorycache.New[*contacts.Contact](typed, circuitbreaker.Config{
//		Name:             "contacts",
//		FailureThreshold: 3,
//		Cooldown:         30 * time.Second,
//	}, repositorycache.WithLogger(logger))
//
//	contact, found, err := rc.Get(ctx, key, func(ctx context.Context) (*contacts.Contact, bool, error) {
//		c, err := source.GetContact(ctx, id)
//		return c, c != nil, err
//	})
//
// Expiration for a single call can be overridden through the context:
//
//	ctx = repositorycache.WithEntryOptions(ctx, cache.WithSlidingExpiration(time.Minute))
package repositorycache
