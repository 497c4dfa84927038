package cache

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-contact-cache/internal/guard"
)

var (
	// ErrInvalidArgument reports a blank key or a nil value passed to a cache operation.
	ErrInvalidArgument = guard.ErrInvalidArgument

	// ErrTransport wraps failures talking to the cache backend (connection
	// refused, timeouts, protocol errors). These are the failures the circuit
	// breaker reacts to.
	ErrTransport = goerrors.New("cache transport failure", goerrors.CategoryExternal).
			WithTextCode("CACHE_TRANSPORT")

	// ErrSerialization reports a record that could not be encoded or decoded.
	ErrSerialization = goerrors.New("cache serialization failure", goerrors.CategoryInternal).
				WithTextCode("CACHE_SERIALIZATION")
)
