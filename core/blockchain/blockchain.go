// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements luna block handling and chain selection
// rules.
package blockchain

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/state"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/params"
)

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view
// of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur as the function name implies.
type BestState struct {
	Hash       hash.Hash // The hash of the block.
	Height     uint64    // The height of the block.
	Bits       uint32    // The difficulty bits of the block.
	BlockSize  uint64    // The size of the block.
	NumTxns    uint64    // The number of txns in the block.
	MedianTime time.Time // The timestamp of the block.
}

// newBestState returns a new best stats instance for the given block node.
func newBestState(node *blockNode) *BestState {
	return &BestState{
		Hash:       node.hash,
		Height:     node.height,
		Bits:       node.bits,
		BlockSize:  uint64(node.block.Block().SerializeSize()),
		NumTxns:    uint64(len(node.block.Block().Transactions)),
		MedianTime: node.Time(),
	}
}

// Config is a descriptor which specifies the blockchain instance
// configuration.
type Config struct {
	// ChainParams identifies which chain parameters the chain is
	// associated with.
	//
	// This field is required.
	ChainParams *params.Params

	// Notifications defines a callback to which notifications will be
	// sent when various events take place.  See the documentation for
	// Notification and NotificationType for details on the types and
	// contents of notifications.
	//
	// This field can be nil if the caller is not interested in receiving
	// notifications.
	Notifications NotificationCallback
}

// BlockChain provides functions for working with the luna block chain.  It
// includes functionality such as rejecting duplicate blocks, ensuring blocks
// follow all rules, orphan handling and best chain selection with
// reorganization.
type BlockChain struct {
	params        *params.Params
	notifications NotificationCallback

	// tipVersion is incremented every time the canonical tip changes.
	// Mining loops poll it to detect stale work.  It is accessed
	// atomically and kept outside the chain lock on purpose.
	tipVersion uint64

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// index houses the entire accepted block arena, canonical and side
	// branches alike.
	index *blockIndex

	// bestNode is the tip of the branch the fork-choice rule currently
	// prefers.
	bestNode *blockNode

	// These fields are related to handling of orphan blocks.  They are
	// protected by a combination of the chain lock and the orphan lock.
	orphanLock   sync.RWMutex
	orphans      map[hash.Hash]*orphanBlock
	prevOrphans  map[hash.Hash][]*orphanBlock
	oldestOrphan *orphanBlock

	// stateSnapshot caches information about the current best chain so
	// callers don't need to take the chain lock for cheap queries.
	stateSnapshot *BestState

	// pendingNotes collects notifications generated while the chain lock
	// is held.  ProcessBlock drains and delivers them once the lock is
	// released so callbacks can safely call back into the chain.
	pendingNotes []*Notification
}

// New returns a BlockChain instance using the provided configuration details
// with the genesis block of the configured network already in place.
func New(config *Config) (*BlockChain, error) {
	if config.ChainParams == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}

	b := &BlockChain{
		params:        config.ChainParams,
		notifications: config.Notifications,
		index:         newBlockIndex(),
		orphans:       make(map[hash.Hash]*orphanBlock),
		prevOrphans:   make(map[hash.Hash][]*orphanBlock),
	}

	// Install the genesis block.  It is the only block with no parent and
	// an empty starting account view.
	genesis := types.NewBlock(config.ChainParams.GenesisBlock)
	genesisNode := newBlockNode(genesis, nil, state.NewView())
	genesisNode.status = statusValid | statusMainChain
	b.index.AddNode(genesisNode)
	b.bestNode = genesisNode
	b.stateSnapshot = newBestState(genesisNode)

	log.Infof("Chain state (height %d, hash %v)", b.bestNode.height,
		&b.bestNode.hash)
	return b, nil
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must
// be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.chainLock.RLock()
	snapshot := b.stateSnapshot
	b.chainLock.RUnlock()
	return snapshot
}

// TipVersion returns a counter that changes every time the canonical tip
// does.  Comparing two reads is a cheap way for a mining loop to detect that
// its parent went stale.
//
// This function is safe for concurrent access.
func (b *BlockChain) TipVersion() uint64 {
	return atomic.LoadUint64(&b.tipVersion)
}

// HaveBlock returns whether or not the chain instance has the block
// represented by the passed hash.  This includes checking the various places
// a block can be like part of the main chain, on a side chain, or in the
// orphan pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(h *hash.Hash) bool {
	return b.index.HaveBlock(h) || b.IsKnownOrphan(h)
}

// MainChainHasBlock returns whether or not the block with the given hash is
// in the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainChainHasBlock(h *hash.Hash) bool {
	b.chainLock.RLock()
	node := b.index.LookupNode(h)
	onMain := node != nil && node.isMainChain()
	b.chainLock.RUnlock()
	return onMain
}

// BlockByHash returns the block from the chain arena with the given hash.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockByHash(h *hash.Hash) (*types.SerializedBlock, error) {
	node := b.index.LookupNode(h)
	if node == nil {
		return nil, fmt.Errorf("unable to find block %v in chain", h)
	}
	return node.block, nil
}

// BlockByHeight returns the block at the given height of the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockByHeight(height uint64) (*types.SerializedBlock, error) {
	b.chainLock.RLock()
	node := b.bestNode.Ancestor(height)
	b.chainLock.RUnlock()
	if node == nil {
		return nil, fmt.Errorf("no block at height %d exists", height)
	}
	return node.block, nil
}

// Account returns the confirmed balance and nonce of the given address as of
// the canonical tip.  Unknown addresses report zero for both.
//
// This function is safe for concurrent access.
func (b *BlockChain) Account(addr types.Address) state.Account {
	b.chainLock.RLock()
	acct := b.bestNode.view.Account(addr)
	b.chainLock.RUnlock()
	return acct
}

// StateView returns a clone of the account view as of the canonical tip.
// Callers own the clone and may mutate it freely, which is what the mempool
// and the block assembler do during speculative validation.
//
// This function is safe for concurrent access.
func (b *BlockChain) StateView() *state.View {
	b.chainLock.RLock()
	view := b.bestNode.view.Clone()
	b.chainLock.RUnlock()
	return view
}

// TotalIssued returns the cumulative coinbase issuance of the canonical
// chain, which conservation requires to equal the sum of every confirmed
// balance.
//
// This function is safe for concurrent access.
func (b *BlockChain) TotalIssued() uint64 {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	var total uint64
	for n := b.bestNode; n != nil; n = n.parent {
		txns := n.block.Block().Transactions
		if len(txns) > 0 && txns[0].IsCoinBase() && txns[0].To != "" {
			total += b.calcBlockSubsidy(n.height)
		}
	}
	return total
}
