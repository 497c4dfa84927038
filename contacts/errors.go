package contacts

import (
	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrStore wraps failures of the underlying source repository.
	ErrStore = goerrors.New("contact store failure", goerrors.CategoryExternal).
			WithTextCode("CONTACT_STORE")

	// ErrValidation reports input rejected by the Service. The wrapped error is
	// a validation.Errors keyed by field.
	ErrValidation = goerrors.New("invalid contact request", goerrors.CategoryValidation).
			WithTextCode("CONTACT_VALIDATION")

	// ErrDuplicate reports an insert whose ID is already taken.
	ErrDuplicate = goerrors.New("contact already exists", goerrors.CategoryConflict).
			WithTextCode("CONTACT_DUPLICATE")
)
