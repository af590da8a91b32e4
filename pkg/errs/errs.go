// Package errs defines the closed error taxonomy for the admin plane and
// its single mapping to HTTP status codes. Handlers construct errors here
// and the HTTP edge translates them; no other layer inspects status codes.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one failure class. The set is closed; adding a kind
// requires updating the status table below.
type Kind string

const (
	KindMissingToken    Kind = "MISSING_TOKEN"
	KindExpired         Kind = "EXPIRED"
	KindMalformed       Kind = "MALFORMED"
	KindBadSignature    Kind = "BAD_SIGNATURE"
	KindTampered        Kind = "TAMPERED"
	KindForbiddenRole   Kind = "FORBIDDEN_ROLE"
	KindForbiddenStatus Kind = "FORBIDDEN_STATUS"
	KindLastSuperAdmin  Kind = "LAST_SUPER_ADMIN"
	KindValidation      Kind = "VALIDATION"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindBadFormat       Kind = "BAD_FORMAT"
	KindAuditFailed     Kind = "AUDIT_FAILED"
	KindStoreFailed     Kind = "STORE_FAILED"
	KindTimeout         Kind = "TIMEOUT"
)

// statusByKind is the single HTTP mapping table. 401 means "no or invalid
// token"; 403 means "valid token, insufficient rights".
var statusByKind = map[Kind]int{
	KindMissingToken:    http.StatusUnauthorized,
	KindExpired:         http.StatusUnauthorized,
	KindMalformed:       http.StatusUnauthorized,
	KindBadSignature:    http.StatusUnauthorized,
	KindTampered:        http.StatusUnauthorized,
	KindForbiddenRole:   http.StatusForbidden,
	KindForbiddenStatus: http.StatusForbidden,
	KindLastSuperAdmin:  http.StatusForbidden,
	KindValidation:      http.StatusBadRequest,
	KindNotFound:        http.StatusNotFound,
	KindConflict:        http.StatusConflict,
	KindBadFormat:       http.StatusBadRequest,
	KindAuditFailed:     http.StatusInternalServerError,
	KindStoreFailed:     http.StatusInternalServerError,
	KindTimeout:         http.StatusGatewayTimeout,
}

// HTTPStatus returns the status code for a kind. Unknown kinds map to 500.
func HTTPStatus(k Kind) int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error carries a kind, a short client-safe message and, for validation
// failures, the offending field and the rule it broke. The wrapped cause
// is for logs only and never reaches the response body.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Rule    string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s rule=%s)", e.Kind, e.Message, e.Field, e.Rule)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind with an internal cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Validation creates a VALIDATION error with field and rule payload.
func Validation(field, rule, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field, Rule: rule}
}

// KindOf extracts the kind from an error chain, defaulting to STORE_FAILED
// for errors that did not originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreFailed
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
