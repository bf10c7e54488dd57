package persistence

import "errors"

// ErrNotFound is returned whenever a requested record does not exist,
// regardless of the backend.
var ErrNotFound = errors.New("persistence: record not found")
