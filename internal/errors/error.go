package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindAuthentication
	KindInsufficientStock
	KindEmptyCart
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindAuthentication:
		return "authentication"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindEmptyCart:
		return "empty_cart"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind onto the status code returned to clients.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindEmptyCart:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindInsufficientStock, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error

	sentinel bool
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against the package sentinels by kind, so a NotFound built with a custom
// message still satisfies errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.sentinel {
		return t.Kind == e.Kind
	}
	return t == e
}

func sentinel(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, sentinel: true}
}

var (
	ErrInternal          = sentinel(KindInternal, "internal server error")
	ErrValidation        = sentinel(KindValidation, "validation failed")
	ErrNotFound          = sentinel(KindNotFound, "not found")
	ErrForbidden         = sentinel(KindForbidden, "forbidden")
	ErrUnauthenticated   = sentinel(KindAuthentication, "unauthenticated")
	ErrInsufficientStock = sentinel(KindInsufficientStock, "insufficient stock")
	ErrEmptyCart         = sentinel(KindEmptyCart, "cart is empty")
	ErrConflict          = sentinel(KindConflict, "conflict")

	ErrEmptyAuth       = &Error{Kind: KindAuthentication, Message: "missing authorization"}
	ErrTokenInvalid    = &Error{Kind: KindAuthentication, Message: "invalid token"}
	ErrEmptySubject    = &Error{Kind: KindAuthentication, Message: "missing subject"}
	ErrInvalidPassword = &Error{Kind: KindAuthentication, Message: "invalid email or password"}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func EmptyCart() error {
	return &Error{Kind: KindEmptyCart, Message: ErrEmptyCart.Message}
}

func Wrap(kind Kind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// StockError names the product whose available quantity could not cover the requested one.
type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int32
	Available   int32
}

func (e *StockError) Error() string {
	return fmt.Sprintf(
		"insufficient stock for product %q (id=%d): requested %d, available %d",
		e.ProductName,
		e.ProductID,
		e.Requested,
		e.Available,
	)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func InsufficientStock(productID int64, name string, requested, available int32) error {
	return &StockError{ProductID: productID, ProductName: name, Requested: requested, Available: available}
}

// KindOf walks the wrap chain and returns the first kind found. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var stockErr *StockError
	if errors.As(err, &stockErr) {
		return KindInsufficientStock
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage is the text safe to show a client. Internal failures never leak their cause.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var stockErr *StockError
	if errors.As(err, &stockErr) {
		return stockErr.Error()
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Internal Server Error"
}
