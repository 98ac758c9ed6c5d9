package seo

import "errors"

var (
	// ErrNotFound indicates no row exists for the requested key.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a unique-key race on insert.
	ErrConflict = errors.New("conflicting write")
	// ErrPermissionDenied indicates the configured credential may not write.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrPreconditionFailed marks a missing upstream artifact that makes a run impossible.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrStoreUnavailable is returned when no metadata store is configured.
	ErrStoreUnavailable = errors.New("metadata store unavailable")
)
