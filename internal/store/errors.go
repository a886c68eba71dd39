package store

import "errors"

// ErrNotFound is returned by lookups whose subject must exist (tenants).
// Stores whose callers treat absence as a normal state return (nil, nil)
// instead.
var ErrNotFound = errors.New("not found")
