// Package store provides the in-memory containers backing a site's graph
// store: an insertion-ordered map for deterministic traversal and a
// one-to-many bidirectional map for data/expression resolutions.
package store

import "errors"

// ErrConflict is returned when a binding would contradict an existing one.
//
// A one-to-many map permits many right-hand values per left-hand value but
// at most one left-hand value per right-hand value. Rebinding a right-hand
// value to a different left-hand value is a conflict. Callers that treat
// identifiers as content hashes should treat this as a fatal condition: it
// means either a hash collision or divergent inputs produced the same id.
var ErrConflict = errors.New("store: conflicting binding")
