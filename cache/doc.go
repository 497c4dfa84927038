// Package cache provides the typed record cache and key strategies used by the
// resilient repository decorators.
//
// # Overview
//
// The package separates two concerns:
//
//   - Store: a byte oriented key/value cache (Redis, in-process) with
//     absolute and sliding expiration. Its errors are transport failures.
//   - TypedCache: serializes records to bytes through a Codec and enforces
//     argument checks (blank keys and nil values fail with ErrInvalidArgument).
//
// Keeping serialization out of the Store lets a circuit breaker wrap exactly the
// transport call.
//
// # Basic Usage
//
//	store := myStore // any Store, e.g. the Redis or sturdyc stores wired by pkg/di
//	typed, _ := cache.NewTypedCache(store)
//
//	keys := cache.NewDefaultKeyStrategy("crm:")
//	key := keys.Key("contact", id) // "crm:contact:<id>"
//
//	_ = cache.SetRecord(ctx, typed, key, contact)
//	got, found, err := cache.GetRecord[*Contact](ctx, typed, key)
//
// # Expiration
//
// Entries written without options expire DefaultAbsoluteExpiration (60s) after
// the write. WithSlidingExpiration adds an idle timeout that is reset on each read;
// the entry expires at whichever deadline comes first.
//
// # Keys
//
// Keys are lower-cased so case variations in entity names never produce two
// entries for one record. NewHashedKeyStrategy replaces the identifier with its
// xxhash64 digest; both strategies are stable across process restarts.
package cache
