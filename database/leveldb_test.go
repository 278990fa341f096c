// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBasicOperations covers the put, get, has and delete cycle.
func TestBasicOperations(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	_, err := db.Get([]byte("missing"))
	assert.Equal(t, ErrNotFound, err)

	assert.Nil(t, db.Put([]byte("alpha"), []byte("one")))
	value, err := db.Get([]byte("alpha"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("one"), value)

	have, err := db.Has([]byte("alpha"))
	assert.Nil(t, err)
	assert.True(t, have)

	// Overwrites replace.
	assert.Nil(t, db.Put([]byte("alpha"), []byte("two")))
	value, err = db.Get([]byte("alpha"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("two"), value)

	assert.Nil(t, db.Delete([]byte("alpha")))
	have, err = db.Has([]byte("alpha"))
	assert.Nil(t, err)
	assert.False(t, have)
	_, err = db.Get([]byte("alpha"))
	assert.Equal(t, ErrNotFound, err)

	// Deleting a missing key is not an error.
	assert.Nil(t, db.Delete([]byte("alpha")))
}

// TestForEach covers prefix iteration and early termination.
func TestForEach(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	entries := map[string]string{
		"wallet/key/a": "ka",
		"wallet/key/b": "kb",
		"chain/tip":    "t",
	}
	for k, v := range entries {
		assert.Nil(t, db.Put([]byte(k), []byte(v)))
	}

	seen := make(map[string]string)
	err := db.ForEach([]byte("wallet/key/"), func(key, value []byte) error {
		seen[string(key)] = string(value)
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, map[string]string{
		"wallet/key/a": "ka",
		"wallet/key/b": "kb",
	}, seen)

	// An error from the callback stops iteration and propagates.
	boom := errors.New("boom")
	calls := 0
	err = db.ForEach([]byte("wallet/key/"), func(key, value []byte) error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)

	// A prefix with no entries is an empty iteration, not an error.
	err = db.ForEach([]byte("nothing/"), func(key, value []byte) error {
		t.Fatalf("unexpected key %s", key)
		return nil
	})
	assert.Nil(t, err)
}
