package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist. Cache
	// implementations return it on a miss.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("repository: conflict")
)
