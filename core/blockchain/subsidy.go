// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

// calcBlockSubsidy returns the subsidy amount a block at the provided height
// should have.  The subsidy starts at BaseSubsidy and halves every
// SubsidyHalvingInterval blocks until it reaches zero.
func (b *BlockChain) calcBlockSubsidy(height uint64) uint64 {
	if b.params.SubsidyHalvingInterval == 0 {
		return b.params.BaseSubsidy
	}
	halvings := height / b.params.SubsidyHalvingInterval
	if halvings >= 64 {
		return 0
	}
	return b.params.BaseSubsidy >> halvings
}

// CalcBlockSubsidy returns the subsidy a block at the provided height must
// pay its miner, fees excluded.
//
// This function is safe for concurrent access.
func (b *BlockChain) CalcBlockSubsidy(height uint64) uint64 {
	return b.calcBlockSubsidy(height)
}
