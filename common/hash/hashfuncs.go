// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hash

import (
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160"
)

// HashB calculates the blake2b-256 hash of b and returns the resulting bytes.
func HashB(b []byte) []byte {
	sum := blake2b.Sum256(b)
	return sum[:]
}

// HashH calculates the blake2b-256 hash of b and returns the resulting Hash.
func HashH(b []byte) Hash {
	return Hash(blake2b.Sum256(b))
}

// Hash160 calculates the ripemd160 of the blake2b-256 of the input.  It is
// used to shorten public keys for address derivation.
func Hash160(buf []byte) []byte {
	h := ripemd160.New()
	h.Write(HashB(buf))
	return h.Sum(nil)
}
