// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as services
// and handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup by key matches no row.  Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers should translate this into an HTTP
// 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert collides with an existing row.
// Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
