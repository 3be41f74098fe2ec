// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package errs contains sentinel errors used across layers for stable
// error mapping.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist or is in
	// the wrong lifecycle state for the requested operation.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the actor is not the owner or lacks restore
	// rights.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState indicates an operation on an entry outside its
	// expected lifecycle state (e.g. restoring a non-pending entry).
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict indicates a lost compare-and-set race, such as a
	// restore racing a purge on the same entry.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable indicates the search index is unreachable and no
	// degraded fallback could serve the request.
	ErrUnavailable = errors.New("unavailable")
)
