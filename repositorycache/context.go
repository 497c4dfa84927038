package repositorycache

import (
	"context"

	"github.com/goliatone/go-contact-cache/cache"
)

type entryOptionsContextKey struct{}

// WithEntryOptions attaches expiration overrides to ctx. Cache writes made with
// the returned context apply them after the cache defaults. Repeated calls
// accumulate, later options winning.
func WithEntryOptions(ctx context.Context, opts ...cache.EntryOption) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(opts) == 0 {
		return ctx
	}

	combined := append(entryOptionsFromContext(ctx), opts...)
	return context.WithValue(ctx, entryOptionsContextKey{}, combined)
}

func entryOptionsFromContext(ctx context.Context) []cache.EntryOption {
	if ctx == nil {
		return nil
	}
	if opts, ok := ctx.Value(entryOptionsContextKey{}).([]cache.EntryOption); ok {
		return append([]cache.EntryOption(nil), opts...)
	}
	return nil
}
