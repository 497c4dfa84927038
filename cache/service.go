package cache

import "context"

// RecordCache stores typed records on top of a byte Store.
// It is exported so that decorators can be tested against alternate implementations.
type RecordCache interface {
	// GetRecord decodes the entry stored under key into dest, which must be a
	// non-nil pointer. A miss or expired entry reports (false, nil).
	GetRecord(ctx context.Context, key string, dest any) (bool, error)

	// SetRecord encodes value and stores it under key.
	SetRecord(ctx context.Context, key string, value any, opts ...EntryOption) error
}

// GetRecord is a type-safe wrapper around RecordCache.GetRecord.
func GetRecord[T any](ctx context.Context, c RecordCache, key string) (T, bool, error) {
	var value T
	found, err := c.GetRecord(ctx, key, &value)
	if err != nil || !found {
		var zero T
		return zero, false, err
	}
	return value, true, nil
}

// SetRecord is a type-safe wrapper around RecordCache.SetRecord.
func SetRecord[T any](ctx context.Context, c RecordCache, key string, value T, opts ...EntryOption) error {
	return c.SetRecord(ctx, key, value, opts...)
}
