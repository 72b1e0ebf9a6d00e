// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by someone
// else, while ErrConflict signals that an operation cannot proceed
// because the entity is already in a terminal state.
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as deciding a request that has already been
// decided or completing a route twice. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrRateLimited is returned when a per-owner quota is exhausted, such
// as the rolling-hour route creation limit or the daily report limit.
// Handlers should translate this into an HTTP 429 response.
var ErrRateLimited = errors.New("rate limited")

// ErrAccountExists is returned when an active account already holds the
// requested email or username.
var ErrAccountExists = errors.New("account already exists")

// ErrDuplicateRoute is returned when an owner already posted a route
// with the same departure city, arrival city and departure time.
var ErrDuplicateRoute = errors.New("duplicate route")

// ErrDuplicateRequest is returned when a non-rejected request already
// exists for the same route and requester.
var ErrDuplicateRequest = errors.New("duplicate request")

// ErrRouteNotFound is returned when a referenced route does not exist.
var ErrRouteNotFound = errors.New("route not found")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (code 1062). Unique keys back every check-then-act guard in this
// package, so concurrent writers surface here rather than racing.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}
