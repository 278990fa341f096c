// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/lunaproject/lunad/core/types/pow"
)

// calcNextRequiredDifficulty calculates the required difficulty for the block
// after the passed previous block node based on the difficulty retarget
// rules.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) calcNextRequiredDifficulty(lastNode *blockNode) (uint32, error) {
	// Genesis block.
	if lastNode == nil {
		return b.params.PowLimitBits, nil
	}

	// Return the previous block's difficulty requirements if this block is
	// not at a difficulty retarget interval.
	if (lastNode.height+1)%uint64(b.params.WorkDiffWindowSize) != 0 {
		return lastNode.bits, nil
	}

	// Get the block node at the previous retarget (targetTimespan days
	// worth of blocks).
	firstNode := lastNode.Ancestor(lastNode.height -
		uint64(b.params.WorkDiffWindowSize) + 1)
	if firstNode == nil {
		return 0, AssertError("unable to obtain previous retarget block")
	}

	// Limit the amount of adjustment that can occur to the previous
	// difficulty.
	targetTimespan := int64(b.params.TargetTimespan() / time.Second)
	adjustmentFactor := b.params.RetargetAdjustmentFactor
	actualTimespan := lastNode.timestamp - firstNode.timestamp
	adjustedTimespan := actualTimespan
	if actualTimespan < targetTimespan/adjustmentFactor {
		adjustedTimespan = targetTimespan / adjustmentFactor
	} else if actualTimespan > targetTimespan*adjustmentFactor {
		adjustedTimespan = targetTimespan * adjustmentFactor
	}

	// Calculate new target difficulty as:
	//  currentDifficulty * (adjustedTimespan / targetTimespan)
	// The result uses integer division which means it will be slightly
	// rounded down.  Blocks took longer than expected, so the target grows
	// (difficulty drops); blocks came faster, so the target shrinks.
	oldTarget := pow.CompactToBig(lastNode.bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))

	// Limit new value to the proof of work limit.
	if newTarget.Cmp(b.params.PowLimit) > 0 {
		newTarget.Set(b.params.PowLimit)
	}

	// Log new target difficulty and return it.  The new target logging is
	// intentionally converting the bits back to a number instead of using
	// newTarget since conversion to the compact representation loses
	// precision.
	newTargetBits := pow.BigToCompact(newTarget)
	log.Debugf("Difficulty retarget at block height %d", lastNode.height+1)
	log.Debugf("Old target %08x (%064x)", lastNode.bits, oldTarget)
	log.Debugf("New target %08x (%064x)", newTargetBits,
		pow.CompactToBig(newTargetBits))
	log.Debugf("Actual timespan %v, adjusted timespan %v, target timespan %v",
		time.Duration(actualTimespan)*time.Second,
		time.Duration(adjustedTimespan)*time.Second,
		b.params.TargetTimespan())

	return newTargetBits, nil
}

// CalcNextRequiredDifficulty calculates the required difficulty for the block
// after the end of the current best chain based on the difficulty retarget
// rules.
//
// This function is safe for concurrent access.
func (b *BlockChain) CalcNextRequiredDifficulty() (uint32, error) {
	b.chainLock.Lock()
	difficulty, err := b.calcNextRequiredDifficulty(b.bestNode)
	b.chainLock.Unlock()
	return difficulty, err
}
