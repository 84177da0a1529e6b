// Package apperr defines sentinel error values shared across the identity
// platform. These values allow higher layers such as handlers to
// distinguish between different failure scenarios without inspecting
// error strings. For example, ErrConflict signals that a resource with
// the same unique key already exists, while ErrForbidden indicates the
// caller is known but not allowed to proceed (inactive account, expired
// or superseded reset token). Errors are wrapped with fmt.Errorf("%w: ...")
// so callers can test them with errors.Is while preserving detail.
package apperr

import "errors"

// ErrConflict is returned when an operation would duplicate an existing
// resource, such as registering an email twice or reusing a role name.
// Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when a referenced resource or id does not
// exist. Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrBadRequest is returned for malformed input, such as duplicate
// permission ids within a single request. Handlers translate this into
// an HTTP 400 response.
var ErrBadRequest = errors.New("bad request")

// ErrUnauthorized is returned for failed authentication: unknown email,
// wrong password, or an invalid token. The message presented to users
// is deliberately generic to avoid account enumeration. HTTP 401.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when authentication succeeded but the action
// is not allowed: inactive account, expired/invalid/superseded reset
// token, or a missing permission. HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrRequestTimeout is returned when a ttl-bounded cross-service call
// over the broker did not receive its correlated response in time.
// HTTP 408.
var ErrRequestTimeout = errors.New("request timeout")

// ErrInternal is returned for unexpected storage or broker failures
// that the caller cannot act on. HTTP 500.
var ErrInternal = errors.New("internal error")
