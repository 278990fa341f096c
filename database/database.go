// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package database defines the key/value store contract used by the wallet
// and the node's snapshot persistence.  The consensus core never touches it;
// durability is strictly a collaborator concern.
package database

import "errors"

// ErrNotFound is returned when a requested key does not exist in the store.
var ErrNotFound = errors.New("database: key not found")

// DB is the minimal key/value contract the node needs from a store.
type DB interface {
	// Get returns the value for the given key.  It returns ErrNotFound
	// if the key does not exist.
	Get(key []byte) ([]byte, error)

	// Put stores the given key/value pair, overwriting any existing
	// value.
	Put(key, value []byte) error

	// Delete removes the given key.  Deleting a non-existent key is not
	// an error.
	Delete(key []byte) error

	// Has reports whether the given key exists.
	Has(key []byte) (bool, error)

	// ForEach invokes fn for every key with the given prefix.  Iteration
	// stops at the first error.
	ForEach(prefix []byte, fn func(key, value []byte) error) error

	// Close releases the underlying resources.
	Close() error
}
