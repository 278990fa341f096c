// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sync/atomic"

	"github.com/lunaproject/lunad/core/state"
	"github.com/lunaproject/lunad/core/types"
)

// checkBlockContext performs several validation checks on the block which
// depend on its position within the block chain.
//
// The flags modify the behavior of this function as follows:
//  - BFFastAdd: the difficulty check is not performed.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) checkBlockContext(block *types.SerializedBlock, prevNode *blockNode, flags BehaviorFlags) error {
	header := &block.Block().Header

	// The height of this block must be one more than the referenced
	// previous block.
	if header.Height != prevNode.height+1 {
		str := fmt.Sprintf("block height of %d is not the expected %d",
			header.Height, prevNode.height+1)
		return ruleError(ErrBadBlockHeight, str)
	}

	// A block timestamp must not be earlier than its parent's.
	if header.Timestamp.Before(prevNode.Time()) {
		str := fmt.Sprintf("block timestamp of %v is before its "+
			"parent's %v", header.Timestamp, prevNode.Time())
		return ruleError(ErrTimeTooOld, str)
	}

	if flags&BFFastAdd != BFFastAdd {
		// Ensure the difficulty specified in the block header matches
		// the calculated difficulty based on the previous block and
		// difficulty retarget rules.
		expectedDifficulty, err := b.calcNextRequiredDifficulty(prevNode)
		if err != nil {
			return err
		}
		if header.Difficulty != expectedDifficulty {
			str := fmt.Sprintf("block difficulty of %08x is not "+
				"the expected value of %08x", header.Difficulty,
				expectedDifficulty)
			return ruleError(ErrUnexpectedDifficulty, str)
		}
	}

	return nil
}

// connectTransactions validates every transaction in the block against the
// passed view, which must be a clone of the parent block's account state, and
// applies them in order.  Applying as it validates is what enforces per-sender
// nonce sequencing within the block: a second transaction from a sender is
// checked against the state left by the first.
//
// On success the view holds the account state as of this block.
func (b *BlockChain) connectTransactions(view *state.View, block *types.SerializedBlock) error {
	msgBlock := block.Block()
	transactions := msgBlock.Transactions

	var totalFees uint64
	seenSenders := make(map[types.Address]struct{})
	for _, tx := range transactions[1:] {
		err := ValidateTransaction(tx, view, b.params.AddressVersion)
		if err != nil {
			// A nonce failure for a sender that already has an
			// earlier transaction in this block means the block
			// tries to spend the same sequence slot twice.
			if IsRuleErrorCode(err, ErrNonceMismatch) {
				sender := tx.From.Normalize()
				if _, seen := seenSenders[sender]; seen {
					str := fmt.Sprintf("block contains "+
						"conflicting transactions from "+
						"sender %s at nonce %d", sender,
						tx.Nonce)
					return ruleError(ErrDoubleSpend, str)
				}
			}
			return err
		}
		if err := view.ApplyTransaction(tx); err != nil {
			return AssertError(fmt.Sprintf("validated transaction "+
				"failed to apply: %v", err))
		}
		seenSenders[tx.From.Normalize()] = struct{}{}

		// Sanity bounds each fee to the maximum issuance, so checking
		// the running total against the same bound after every add
		// keeps the accumulator from ever wrapping.
		totalFees += tx.Fee
		if totalFees > types.MaxAtoms {
			str := fmt.Sprintf("total fees for block are %d which "+
				"is higher than the max allowed of %d",
				totalFees, uint64(types.MaxAtoms))
			return ruleError(ErrBadCoinbaseValue, str)
		}
	}

	// The coinbase must pay exactly the block subsidy plus the fees
	// collected from the block's transactions.
	coinbase := transactions[0]
	expected := b.calcBlockSubsidy(msgBlock.Header.Height) + totalFees
	if coinbase.Amount != expected {
		str := fmt.Sprintf("coinbase pays %d, expected %d (subsidy "+
			"plus %d in fees)", coinbase.Amount, expected, totalFees)
		return ruleError(ErrBadCoinbaseValue, str)
	}
	if err := view.ApplyCoinbase(coinbase.To, coinbase.Amount); err != nil {
		return AssertError(fmt.Sprintf("validated coinbase failed to "+
			"apply: %v", err))
	}
	return nil
}

// maybeAcceptBlock potentially accepts a block into the block chain.  It
// performs several contextual validation checks, validates the block's
// transactions against the parent's account state, and if everything passes
// creates a new block node, adds it to the index and calls connectBestChain
// to potentially make it the new canonical tip.
//
// The returned bool indicates whether the block ended up on the main chain.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) maybeAcceptBlock(block *types.SerializedBlock, flags BehaviorFlags) (bool, error) {
	prevHash := &block.Block().Header.ParentHash
	prevNode := b.index.LookupNode(prevHash)
	if prevNode == nil {
		return false, AssertError(fmt.Sprintf("maybeAcceptBlock called "+
			"with unknown parent %v", prevHash))
	}

	err := b.checkBlockContext(block, prevNode, flags)
	if err != nil {
		return false, err
	}

	// Validate and apply the block's transactions against a clone of the
	// parent's account state.  Any failure rejects the block without
	// touching chain state.
	view := prevNode.view.Clone()
	err = b.connectTransactions(view, block)
	if err != nil {
		return false, err
	}

	// The block is valid.  Record it in the arena.
	newNode := newBlockNode(block, prevNode, view)
	newNode.status = statusValid
	b.index.AddNode(newNode)

	// Connect the block to the chain that has the most cumulative proof
	// of work, reorganizing if necessary.
	isMainChain, err := b.connectBestChain(newNode)
	if err != nil {
		return false, err
	}

	// Notify the caller that the new block was accepted into the block
	// chain.  The caller would typically want to react by relaying the
	// block to other peers.
	b.sendNotification(BlockAccepted, block)

	return isMainChain, nil
}

// connectBestChain handles connecting the passed block node to the chain
// while respecting proper chain selection according to the chain with the
// most cumulative proof of work.  A side-branch block that does not overtake
// the current tip is simply recorded; one that does triggers a reorganize.
//
// Ties in cumulative work go to the lexicographically smaller tip hash so
// fork choice is deterministic under any arrival order.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) connectBestChain(node *blockNode) (bool, error) {
	// The common case is extending the current canonical tip.
	if node.parent == b.bestNode {
		b.setNewBestChain(node)
		b.sendNotification(BlockConnected, node.block)
		return true, nil
	}

	// The block is on a side branch.  It becomes canonical only when its
	// branch carries strictly more work than the current tip, or equal
	// work with a smaller tip hash.
	cmp := node.workSum.Cmp(b.bestNode.workSum)
	if cmp < 0 || (cmp == 0 && !node.hash.Less(&b.bestNode.hash)) {
		log.Infof("Block %v extends a side chain at height %d, "+
			"current best is %v at height %d", &node.hash,
			node.height, &b.bestNode.hash, b.bestNode.height)
		return false, nil
	}

	// The side branch has overtaken the canonical chain.
	log.Infof("REORGANIZE: block %v is causing a reorganize", &node.hash)
	err := b.reorganizeChain(node)
	if err != nil {
		return false, err
	}
	return true, nil
}

// findFork walks both branches back to their closest common ancestor.
func findFork(a, c *blockNode) *blockNode {
	for a.height > c.height {
		a = a.parent
	}
	for c.height > a.height {
		c = c.parent
	}
	for a != c {
		a = a.parent
		c = c.parent
	}
	return a
}

// reorganizeChain switches the canonical chain from the current best tip to
// the branch ending at newTip.  It walks the old branch back to the common
// ancestor, disconnecting each block, then connects the new branch forward.
// Because every node carries its own account view, switching state is just a
// matter of repointing the tip; the notifications carry the block contents so
// the mempool can return abandoned transactions to the pool and purge newly
// confirmed ones.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) reorganizeChain(newTip *blockNode) error {
	fork := findFork(b.bestNode, newTip)

	// Disconnect the old branch, tip first.
	for n := b.bestNode; n != fork; n = n.parent {
		n.status &^= statusMainChain
		b.sendNotification(BlockDisconnected, n.block)
	}

	// Collect the new branch in forward order.
	attach := make([]*blockNode, 0, newTip.height-fork.height)
	for n := newTip; n != fork; n = n.parent {
		attach = append(attach, n)
	}

	// Connect the new branch, oldest first.
	for i := len(attach) - 1; i >= 0; i-- {
		n := attach[i]
		n.status |= statusMainChain
		b.sendNotification(BlockConnected, n.block)
	}

	oldTip := b.bestNode
	b.setNewBestChain(newTip)

	log.Infof("REORGANIZE: old best chain head was %v at height %d",
		&oldTip.hash, oldTip.height)
	log.Infof("REORGANIZE: new best chain head is %v at height %d",
		&newTip.hash, newTip.height)
	b.sendNotification(ReorganizeDone, newTip.block)
	return nil
}

// setNewBestChain points the chain at a new canonical tip, refreshes the
// cached best-state snapshot and bumps the tip version so mining loops
// notice the change.
//
// This function MUST be called with the chain lock held (for writes).
func (b *BlockChain) setNewBestChain(node *blockNode) {
	node.status |= statusMainChain
	b.bestNode = node
	b.stateSnapshot = newBestState(node)
	atomic.AddUint64(&b.tipVersion, 1)
}
