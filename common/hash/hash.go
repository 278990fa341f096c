// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hash

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the length in bytes of the hashes used across the chain.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a hash
// string that has too many characters.
var ErrHashStrSize = fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is the fixed-size digest used to identify blocks, transactions and
// state snapshots.
type Hash [HashSize]byte

// ZeroHash is the all-zero hash, used as the previous-block reference of the
// genesis block.
var ZeroHash = Hash{}

// String returns the Hash as a hexadecimal string.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns the bytes which represent the hash as a byte slice.
func (h Hash) Bytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, h[:])
	return newHash
}

// SetBytes sets the bytes which represent the hash.  An error is returned if
// the number of bytes passed in is not HashSize.
func (h *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v", nhlen,
			HashSize)
	}
	copy(h[:], newHash)
	return nil
}

// IsEqual returns true if target is the same as hash.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// Less reports whether hash sorts lexicographically before target.  It is the
// tie-break used by fork choice, so it must be stable across runs.
func (h *Hash) Less(target *Hash) bool {
	for i := 0; i < HashSize; i++ {
		if h[i] != target[i] {
			return h[i] < target[i]
		}
	}
	return false
}

// MarshalText encodes the hash as hex, satisfying encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

// UnmarshalText decodes the hash from hex, satisfying encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(input []byte) error {
	if len(input) > MaxHashStringSize {
		return ErrHashStrSize
	}
	decoded, err := hex.DecodeString(string(input))
	if err != nil {
		return err
	}
	return h.SetBytes(decoded)
}

// NewHash returns a new Hash from a byte slice.  An error is returned if
// the number of bytes passed in is not HashSize.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	err := sh.SetBytes(newHash)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// NewHashFromStr creates a Hash from a hexadecimal hash string.
func NewHashFromStr(src string) (*Hash, error) {
	ret := new(Hash)
	err := ret.UnmarshalText([]byte(src))
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// MustHexToHash converts a hex string to a hash.  Must means it panics for
// invalid input; it is intended for hard-coded constants only.
func MustHexToHash(i string) Hash {
	h, err := NewHashFromStr(i)
	if err != nil {
		panic(err)
	}
	return *h
}
