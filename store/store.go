// Package store provides the durable repositories behind the orchestrators:
// an in-memory implementation for tests and single-process runs, and a
// SQLite-backed implementation storing each entity as a JSON document.
package store

import "errors"

// ErrNotFound is returned when an entity id is unknown.
var ErrNotFound = errors.New("store: not found")
