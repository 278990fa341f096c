// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/lunaproject/lunad/core/types"
)

// BehaviorFlags is a bitmask defining tweaks to the normal behavior when
// performing chain processing and consensus rules checks.
type BehaviorFlags uint32

const (
	// BFFastAdd may be set to indicate that several checks which are
	// already known to have been performed may be skipped.  This is never
	// used for blocks from untrusted sources.
	BFFastAdd BehaviorFlags = 1 << iota

	// BFNoPoWCheck may be set to indicate the proof of work check which
	// ensures a block hashes to a value less than the required target
	// will not be performed.
	BFNoPoWCheck

	// BFNone is a convenience value to specifically indicate no flags.
	BFNone BehaviorFlags = 0
)

// blockExists determines whether a block with the given hash exists in the
// accepted block index.
//
// This function MUST be called with the chain lock held (for reads).
func (b *BlockChain) blockExists(block *types.SerializedBlock) bool {
	return b.index.HaveBlock(block.Hash())
}

// ProcessBlock is the main workhorse for handling insertion of new blocks
// into the block chain.  It includes functionality such as rejecting
// duplicate blocks, ensuring blocks follow all rules, orphan handling, and
// insertion into the block chain along with best chain selection and
// reorganization.
//
// When no errors occurred during processing, the first return value indicates
// whether or not the block is on the main chain and the second indicates
// whether or not the block is an orphan.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *types.SerializedBlock, flags BehaviorFlags) (bool, bool, error) {
	b.chainLock.Lock()
	isMainChain, isOrphan, err := b.processBlock(block, flags)

	// Drain the notifications generated during processing and deliver
	// them only after the chain lock is released.  Callbacks take their
	// own subsystem locks and read chain state back; delivering under the
	// chain write lock would order those locks both ways and wedge a
	// concurrent admission against this integration.
	notes := b.pendingNotes
	b.pendingNotes = nil
	b.chainLock.Unlock()
	b.flushNotifications(notes)

	return isMainChain, isOrphan, err
}

// processBlock implements ProcessBlock.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) processBlock(block *types.SerializedBlock, flags BehaviorFlags) (bool, bool, error) {
	blockHash := block.Hash()
	log.Tracef("Processing block %v", blockHash)

	// The block must not already exist in the main chain or side chains.
	if b.blockExists(block) {
		str := fmt.Sprintf("already have block %v", blockHash)
		return false, false, ruleError(ErrDuplicateBlock, str)
	}

	// The block must not already exist as an orphan.
	if b.IsKnownOrphan(blockHash) {
		str := fmt.Sprintf("already have block (orphan) %v", blockHash)
		return false, false, ruleError(ErrDuplicateBlock, str)
	}

	// Perform preliminary sanity checks on the block and its transactions.
	err := checkBlockSanity(block, b.params.PowLimit, b.params.MaxTxPerBlock,
		flags)
	if err != nil {
		return false, false, err
	}

	// Handle orphan blocks.
	prevHash := &block.Block().Header.ParentHash
	if !b.index.HaveBlock(prevHash) {
		log.Infof("Adding orphan block %v with parent %v", blockHash,
			prevHash)
		b.orphanLock.Lock()
		b.addOrphanBlock(block)
		b.orphanLock.Unlock()

		return false, true, nil
	}

	// The block has passed all context-independent checks and appears
	// sane enough to potentially accept it into the block chain.
	isMainChain, err := b.maybeAcceptBlock(block, flags)
	if err != nil {
		return false, false, err
	}

	// Accept any orphan blocks that depend on this block (they are no
	// longer orphans) and repeat for those accepted blocks until there are
	// no more.
	err = b.processOrphans(blockHash, flags)
	if err != nil {
		return false, false, err
	}

	log.Debugf("Accepted block %v", blockHash)
	return isMainChain, false, nil
}
