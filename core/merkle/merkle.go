// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package merkle computes the transaction merkle root committed to by block
// headers.
package merkle

import (
	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/types"
)

// hashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation.
func hashMerkleBranches(left *hash.Hash, right *hash.Hash) *hash.Hash {
	var data [hash.HashSize * 2]byte
	copy(data[:hash.HashSize], left[:])
	copy(data[hash.HashSize:], right[:])

	newHash := hash.HashH(data[:])
	return &newHash
}

// BuildMerkleTreeStore creates a merkle tree from a slice of transactions and
// stores it using a linear array.  A linear array was chosen as opposed to an
// actual tree structure since it uses about half as much memory.  The
// resulting slice is the tree levels concatenated bottom-up, so the root is
// the final entry.
//
// The tree duplicates the last node when there is an odd number of nodes at a
// level, matching the usual bitcoin-style construction.
func BuildMerkleTreeStore(transactions []*types.Tx) []*hash.Hash {
	nextPoT := nextPowerOfTwo(len(transactions))
	arraySize := nextPoT*2 - 1
	merkles := make([]*hash.Hash, arraySize)

	for i, tx := range transactions {
		merkles[i] = tx.Hash()
	}

	offset := nextPoT
	for i := 0; i < arraySize-1; i += 2 {
		switch {
		// When there is no left child node, the parent is nil too.
		case merkles[i] == nil:
			merkles[offset] = nil

		// When there is no right child, the parent is generated by
		// hashing the concatenation of the left child with itself.
		case merkles[i+1] == nil:
			newHash := hashMerkleBranches(merkles[i], merkles[i])
			merkles[offset] = newHash

		// The normal case sets the parent node to the hash of the
		// concatenation of the left and right children.
		default:
			newHash := hashMerkleBranches(merkles[i], merkles[i+1])
			merkles[offset] = newHash
		}
		offset++
	}

	return merkles
}

// CalcMerkleRoot returns the merkle root of the passed transactions.  An
// empty transaction list yields the zero hash.
func CalcMerkleRoot(transactions []*types.Tx) hash.Hash {
	if len(transactions) == 0 {
		return hash.ZeroHash
	}
	merkles := BuildMerkleTreeStore(transactions)
	return *merkles[len(merkles)-1]
}

// nextPowerOfTwo returns the next highest power of two from a given number if
// it is not already a power of two.
func nextPowerOfTwo(n int) int {
	if n&(n-1) == 0 {
		return n
	}

	exponent := uint(0)
	for n != 0 {
		n >>= 1
		exponent++
	}
	return 1 << exponent
}
