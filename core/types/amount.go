// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import "fmt"

// AtomsPerCoin is the number of atomic units in one LUN.  All amounts in the
// core are integer atoms; fractional coins exist only at display boundaries.
const AtomsPerCoin = 1e8

// MaxAtoms is the maximum number of atoms that will ever exist, the full
// 21 million coin issuance.  No single amount, fee or balance may exceed it,
// which keeps every 64-bit accumulator in the consensus code far from
// wrapping.
const MaxAtoms = 21e6 * AtomsPerCoin

// Amount represents a quantity of atoms.
type Amount uint64

// ToCoins returns the floating point value of the amount in whole coins.  It
// is for display only and must never feed back into consensus math.
func (a Amount) ToCoins() float64 {
	return float64(a) / AtomsPerCoin
}

func (a Amount) String() string {
	return fmt.Sprintf("%d atoms", uint64(a))
}
