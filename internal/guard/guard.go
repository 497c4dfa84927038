// Package guard holds the argument checks used at package boundaries.
package guard

import (
	"fmt"
	"reflect"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidArgument is returned for malformed input such as a blank cache key
// or a nil value. It is never retried.
var ErrInvalidArgument = goerrors.New("invalid argument", goerrors.CategoryBadInput).
	WithTextCode("INVALID_ARGUMENT")

// NotMissing fails when s is empty or contains only whitespace.
func NotMissing(s, name string) error {
	if err := validation.Validate(strings.TrimSpace(s), validation.Required); err != nil {
		return fmt.Errorf("%w: %s %v", ErrInvalidArgument, name, err)
	}
	return nil
}

// NotNil fails when v is nil, including typed nil pointers, maps, slices,
// channels, funcs and interfaces.
func NotNil(v any, name string) error {
	if IsNil(v) {
		return fmt.Errorf("%w: %s must not be nil", ErrInvalidArgument, name)
	}
	return nil
}

// IsNil reports whether v is nil or holds a nil reference.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
