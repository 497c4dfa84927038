package cache

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultAbsoluteExpiration is applied to every entry written without an
// explicit absolute expiration.
const DefaultAbsoluteExpiration = 60 * time.Second

// Store is a byte oriented key/value cache such as Redis or an in-process cache.
// Get reports a miss as (nil, false, nil); any returned error is a transport
// failure and should wrap ErrTransport.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, opts EntryOptions) error
	Delete(ctx context.Context, key string) error
}

// EntryOptions describes how long an entry lives.
// AbsoluteExpiration is measured from the write; SlidingExpiration is reset on
// every read. When both are set the entry expires at whichever comes first.
type EntryOptions struct {
	AbsoluteExpiration time.Duration `mapstructure:"absolute_expiration"`
	SlidingExpiration  time.Duration `mapstructure:"sliding_expiration"`
}

// EntryOption mutates EntryOptions.
type EntryOption func(*EntryOptions)

// WithAbsoluteExpiration sets the time to live measured from the write.
func WithAbsoluteExpiration(d time.Duration) EntryOption {
	return func(o *EntryOptions) {
		o.AbsoluteExpiration = d
	}
}

// WithSlidingExpiration sets the idle timeout that is reset on every read.
func WithSlidingExpiration(d time.Duration) EntryOption {
	return func(o *EntryOptions) {
		o.SlidingExpiration = d
	}
}

// NewEntryOptions applies opts over base and fills in the default absolute expiration.
func NewEntryOptions(base EntryOptions, opts ...EntryOption) EntryOptions {
	for _, opt := range opts {
		if opt != nil {
			opt(&base)
		}
	}
	if base.AbsoluteExpiration <= 0 {
		base.AbsoluteExpiration = DefaultAbsoluteExpiration
	}
	return base
}

// Validate rejects negative durations.
func (o EntryOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.AbsoluteExpiration, validation.Min(time.Duration(0))),
		validation.Field(&o.SlidingExpiration, validation.Min(time.Duration(0))),
	)
}

// Deadline returns the instant an entry written at writtenAt and last read at
// lastAccess expires. A zero time means it never expires.
func (o EntryOptions) Deadline(writtenAt, lastAccess time.Time) time.Time {
	deadline := writtenAt.Add(o.AbsoluteExpiration)
	if o.AbsoluteExpiration <= 0 {
		deadline = time.Time{}
	}
	if o.SlidingExpiration > 0 {
		sliding := lastAccess.Add(o.SlidingExpiration)
		if deadline.IsZero() || sliding.Before(deadline) {
			deadline = sliding
		}
	}
	return deadline
}
