// Copyright (c) 2025 The luna developers
// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"container/heap"
	"time"

	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/blockchain"
	"github.com/lunaproject/lunad/core/merkle"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/params"
)

// TxSource represents a source of transactions to consider for inclusion in
// new blocks.
//
// The interface contract requires that all of these methods are safe for
// concurrent access with respect to the source.
type TxSource interface {
	// LastUpdated returns the last time a transaction was added to or
	// removed from the source pool.
	LastUpdated() time.Time

	// MiningDescs returns a slice of mining descriptors for all the
	// transactions in the source pool.
	MiningDescs() []*types.TxDesc

	// HaveTransaction returns whether or not the passed transaction hash
	// exists in the source pool.
	HaveTransaction(h *hash.Hash) bool
}

// BlockTemplate houses a block that has yet to be solved along with
// additional details about the fees and the number of transactions it
// contains.
type BlockTemplate struct {
	// Block is a block that is ready to be solved by miners.  Thus, it is
	// completely valid with the exception of satisfying the proof-of-work
	// requirement.
	Block *types.Block

	// Fees contains the amount of fees each transaction in the block pays,
	// in base-transaction order with a zero entry for the coinbase.
	Fees []uint64

	// Height is the height at which the block template connects to the
	// chain.
	Height uint64
}

// NewBlockTemplate returns a new block template that is ready to be solved
// using the transactions from the passed transaction source and a coinbase
// that pays to payToAddress.
//
// Transactions are selected greedily by descending fee per KB.  A
// transaction whose sender has an earlier-nonce transaction still pending
// enters the queue only after that predecessor is selected, so per-sender
// nonce order always survives into the block regardless of fee ordering.
// Transactions that no longer apply against the confirmed state are skipped;
// the pool purges them on the next block connect.
func NewBlockTemplate(policy *Policy, chainParams *params.Params,
	chain *blockchain.BlockChain, txSource TxSource,
	payToAddress types.Address) (*BlockTemplate, error) {

	best := chain.BestSnapshot()
	nextHeight := best.Height + 1
	view := chain.StateView()

	// Split the pool snapshot into immediately-eligible transactions and
	// ones waiting on an earlier nonce from the same sender.
	sourceTxns := txSource.MiningDescs()
	priorityQueue := newTxPriorityQueue(len(sourceTxns))
	waiting := make(map[types.Address]map[uint64]*types.TxDesc)
	for _, txDesc := range sourceTxns {
		tx := txDesc.Tx.Transaction()
		if txDesc.FeePerKB < policy.TxMinFeePerKB {
			continue
		}
		sender := tx.From.Normalize()
		if tx.Nonce == view.Account(sender).Nonce+1 {
			heap.Push(priorityQueue, txDesc)
			continue
		}
		if waiting[sender] == nil {
			waiting[sender] = make(map[uint64]*types.TxDesc)
		}
		waiting[sender][tx.Nonce] = txDesc
	}

	// Reserve the first slot for the coinbase, which is built once the
	// total fees are known.
	blockTxns := make([]*types.Transaction, 1, len(sourceTxns)+1)
	txFees := make([]uint64, 1, len(sourceTxns)+1)
	blockSize := types.MaxBlockHeaderPayload
	var totalFees uint64

	for priorityQueue.Len() > 0 {
		txDesc := heap.Pop(priorityQueue).(*types.TxDesc)
		tx := txDesc.Tx.Transaction()

		// Enforce block limits.  A transaction that does not fit is
		// skipped rather than ending selection, since a smaller one
		// later in the queue still might.
		txSize := tx.SerializeSize()
		if blockSize+txSize > policy.BlockMaxSize {
			log.Tracef("Skipping tx %v: size %d exceeds remaining "+
				"block space", txDesc.Tx.Hash(), txSize)
			continue
		}
		if len(blockTxns)+1 > chainParams.MaxTxPerBlock {
			break
		}

		// Applying against the working view enforces nonce sequencing
		// and available balance across everything already selected.
		if err := view.ApplyTransaction(tx); err != nil {
			log.Tracef("Skipping tx %v: %v", txDesc.Tx.Hash(), err)
			continue
		}

		blockTxns = append(blockTxns, tx)
		txFees = append(txFees, tx.Fee)
		blockSize += txSize
		totalFees += tx.Fee

		// Selecting this transaction may unblock the sender's next
		// nonce.
		sender := tx.From.Normalize()
		if next, exists := waiting[sender][tx.Nonce+1]; exists {
			heap.Push(priorityQueue, next)
			delete(waiting[sender], tx.Nonce+1)
		}
	}

	// Build the coinbase now that the fee total is known.  The coinbase
	// nonce doubles as an extra-nonce so distinct candidates at the same
	// height never share a transaction root; see UpdateExtraNonce.
	coinbase := &types.Transaction{
		Version:   types.TxVersion,
		To:        payToAddress,
		Amount:    chain.CalcBlockSubsidy(nextHeight) + totalFees,
		Timestamp: time.Unix(time.Now().Unix(), 0),
	}
	blockTxns[0] = coinbase
	txFees[0] = 0

	// The block timestamp has one-second precision and may not go
	// backwards past the parent.
	ts := time.Unix(time.Now().Unix(), 0)
	if ts.Before(best.MedianTime) {
		ts = best.MedianTime
	}

	reqDifficulty, err := chain.CalcNextRequiredDifficulty()
	if err != nil {
		return nil, err
	}

	wrappedTxns := make([]*types.Tx, len(blockTxns))
	for i, tx := range blockTxns {
		wrappedTxns[i] = types.NewTx(tx)
	}
	block := &types.Block{
		Header: types.BlockHeader{
			Version:    types.BlockVersion,
			ParentHash: best.Hash,
			TxRoot:     merkle.CalcMerkleRoot(wrappedTxns),
			Height:     nextHeight,
			Difficulty: reqDifficulty,
			Timestamp:  ts,
		},
		Transactions: blockTxns,
	}

	log.Debugf("Created new block template (%d transactions, %d in "+
		"fees, target difficulty %08x)", len(blockTxns), totalFees,
		reqDifficulty)

	return &BlockTemplate{
		Block:  block,
		Fees:   txFees,
		Height: nextHeight,
	}, nil
}

// UpdateExtraNonce updates the extra nonce carried in the template's
// coinbase and recomputes the transaction root to match.  Mining controllers
// call this once per worker so concurrent workers never race over identical
// candidate blocks.
func UpdateExtraNonce(template *BlockTemplate, extraNonce uint64) {
	template.Block.Transactions[0].Nonce = extraNonce

	wrappedTxns := make([]*types.Tx, len(template.Block.Transactions))
	for i, tx := range template.Block.Transactions {
		wrappedTxns[i] = types.NewTx(tx)
	}
	template.Block.Header.TxRoot = merkle.CalcMerkleRoot(wrappedTxns)
}

// UpdateBlockTime updates the timestamp in the header of the passed block to
// the current time while respecting the parent constraint, for long-running
// solve attempts on slow networks.
func UpdateBlockTime(block *types.Block, chain *blockchain.BlockChain) {
	ts := time.Unix(time.Now().Unix(), 0)
	best := chain.BestSnapshot()
	if ts.Before(best.MedianTime) {
		ts = best.MedianTime
	}
	block.Header.Timestamp = ts
}
