package model

import appErrors "github.com/unclebandit/channel-ledger/internal/errors"

func errRequired(entity, field string) error {
	return appErrors.ConstraintViolation("%s.%s is required", entity, field)
}

func errNegative(entity, field string) error {
	return appErrors.ConstraintViolation("%s.%s must not be negative", entity, field)
}

func errInvalidValue(entity, field, value string) error {
	return appErrors.ConstraintViolation("%s.%s has invalid value %q", entity, field, value)
}
