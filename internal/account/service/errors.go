package service

import (
	"errors"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
)

// storeError classifies an error coming out of the store. Unique violations
// become DuplicateField, missing records NotFound, anything else StoreError.
func storeError(err error) error {
	var dup *store.DuplicateError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &dup):
		return &domain.Error{Kind: domain.DuplicateField, Field: dup.Field, Err: err}
	case errors.Is(err, store.ErrAlreadyExists):
		return &domain.Error{Kind: domain.DuplicateField, Err: err}
	case errors.Is(err, store.ErrNotFound):
		return &domain.Error{Kind: domain.NotFound, Err: err}
	default:
		return domain.NewError(domain.StoreError, err)
	}
}
