package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"time"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// CodeInsufficientStock carries {productId, requested, available} details.
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	// CodeConcurrencyConflict is returned once bounded retries are exhausted.
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
)

// Metadata is how a code surfaces over HTTP. RetryAfter, when set, is sent as
// a Retry-After hint.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	RetryAfter     time.Duration
	PublicMessage  string
	DetailsAllowed bool
}

const (
	withDetails = true
	noDetails   = false
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:          {http.StatusBadRequest, false, 0, "validation failed", withDetails},
	CodeUnauthorized:        {http.StatusUnauthorized, false, 0, "authentication required", noDetails},
	CodeForbidden:           {http.StatusForbidden, false, 0, "access denied", noDetails},
	CodeNotFound:            {http.StatusNotFound, false, 0, "resource not found", withDetails},
	CodeConflict:            {http.StatusConflict, false, 0, "conflict detected", noDetails},
	CodeStateConflict:       {http.StatusUnprocessableEntity, false, 0, "state transition disallowed", withDetails},
	CodeIdempotency:         {http.StatusConflict, false, 0, "idempotency key reused", withDetails},
	CodeInsufficientStock:   {http.StatusConflict, false, 0, "insufficient stock", withDetails},
	CodeConcurrencyConflict: {http.StatusConflict, true, time.Second, "concurrent update, please retry", noDetails},
	CodeInternal:            {http.StatusInternalServerError, true, 0, "internal server error", noDetails},
	CodeDependency:          {http.StatusServiceUnavailable, true, 5 * time.Second, "dependency unavailable", noDetails},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error. Message is shown to clients for codes below 500;
// the cause never is.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the client-visible details and returns e.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries a typed error with the given code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// IsRetryable reports whether a client may repeat the request unchanged.
// Untyped errors count as internal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return MetadataFor(As(err).Code()).Retryable
}
