// Copyright (c) 2025 The luna developers
// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/state"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/core/types/pow"
)

// blockStatus is a bit field representing the validation state of the block.
type blockStatus byte

const (
	// statusValid indicates that the block has been fully validated.
	statusValid blockStatus = 1 << iota

	// statusMainChain indicates the block is currently on the canonical
	// chain.  Accepted blocks without this flag are side-branch blocks.
	statusMainChain
)

// blockNode represents a block within the block chain arena.  Nodes know
// their parent; children are tracked separately in the block index, so no
// reference cycles arise.  The chain state lock protects all mutable fields.
type blockNode struct {
	// parent is the parent block for this node.  It is nil for the
	// genesis node.
	parent *blockNode

	// hash is the block identifier.
	hash hash.Hash

	// height is the position in the block chain.
	height uint64

	// workSum is the total amount of work in the branch ending at this
	// node, genesis included.
	workSum *big.Int

	// Some header fields kept unpacked for convenience during fork
	// choice and difficulty calculation.
	bits      uint32
	timestamp int64

	// block retains the full block so reorgs and snapshot export never
	// need a separate store.
	block *types.SerializedBlock

	// view is the account state as of this block, used to validate
	// children without replaying from genesis.
	view *state.View

	status blockStatus
}

// newBlockNode returns a new block node for the given block and parent.  The
// cumulative work is the parent's work plus this block's.
func newBlockNode(block *types.SerializedBlock, parent *blockNode, view *state.View) *blockNode {
	header := &block.Block().Header
	node := &blockNode{
		parent:    parent,
		hash:      *block.Hash(),
		height:    header.Height,
		workSum:   pow.CalcWork(header.Difficulty),
		bits:      header.Difficulty,
		timestamp: header.Timestamp.Unix(),
		block:     block,
		view:      view,
	}
	if parent != nil {
		node.workSum = node.workSum.Add(parent.workSum, node.workSum)
	}
	return node
}

// Ancestor returns the ancestor block node at the provided height by
// following the chain backwards from this node.  The returned block will be
// nil when a height is requested that is after the height of the passed node.
func (node *blockNode) Ancestor(height uint64) *blockNode {
	if height > node.height {
		return nil
	}
	n := node
	for n != nil && n.height != height {
		n = n.parent
	}
	return n
}

// Header reconstructs the block header for this node.
func (node *blockNode) Header() *types.BlockHeader {
	return &node.block.Block().Header
}

// Time returns the node's timestamp as a time.Time.
func (node *blockNode) Time() time.Time {
	return time.Unix(node.timestamp, 0)
}

// isMainChain reports whether the node currently sits on the canonical
// chain.
func (node *blockNode) isMainChain() bool {
	return node.status&statusMainChain != 0
}
