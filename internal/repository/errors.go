package repository

import "errors"

// ErrNotFound is returned by lookups that match no row owned by the caller.
var ErrNotFound = errors.New("record not found")
