// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure category surfaced to callers.
type Kind string

const (
	KindStorageUnavailable  Kind = "storage_unavailable"
	KindNotFound            Kind = "not_found"
	KindUnknownProduct      Kind = "unknown_product"
	KindInvalidTransition   Kind = "invalid_transition"
	KindInvalidAmount       Kind = "invalid_amount"
	KindMissingDetail       Kind = "missing_detail"
	KindConstraintViolation Kind = "constraint_violation"
	KindValidation          Kind = "validation"
)

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrStorageUnavailable  = &AppError{Kind: KindStorageUnavailable}
	ErrNotFound            = &AppError{Kind: KindNotFound}
	ErrUnknownProduct      = &AppError{Kind: KindUnknownProduct}
	ErrInvalidTransition   = &AppError{Kind: KindInvalidTransition}
	ErrInvalidAmount       = &AppError{Kind: KindInvalidAmount}
	ErrMissingDetail       = &AppError{Kind: KindMissingDetail}
	ErrConstraintViolation = &AppError{Kind: KindConstraintViolation}
	ErrValidation          = &AppError{Kind: KindValidation}
)

type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// NewNotFound reports a missing entity of the given kind ("listing", "product", ...).
func NewNotFound(entity, id string) error {
	return New(KindNotFound, "%s with ID %s not found", entity, id)
}

func NewUnknownProduct(id string) error {
	return New(KindUnknownProduct, "product with ID %s does not exist", id)
}

func NewInvalidTransition(entity, id, from, to string) error {
	return New(KindInvalidTransition, "%s %s cannot move from %s to %s", entity, id, from, to)
}

func StorageUnavailable(op string, err error) error {
	return Wrap(KindStorageUnavailable, err, "storage unavailable during %s", op)
}

func ConstraintViolation(format string, args ...any) error {
	return New(KindConstraintViolation, format, args...)
}

// KindOf returns the category of err. Errors outside the taxonomy are
// reported as storage failures so they are never mistaken for success.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorageUnavailable
}

// Retryable is true only for transport failures. The core never retries;
// external callers such as the queue worker may.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindStorageUnavailable
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnknownProduct, KindInvalidAmount, KindMissingDetail, KindValidation, KindConstraintViolation:
		return http.StatusUnprocessableEntity
	case KindInvalidTransition:
		return http.StatusConflict
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
