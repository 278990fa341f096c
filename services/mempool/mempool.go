// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/blockchain"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/metrics"
)

// TxDesc is a descriptor containing a transaction in the mempool along with
// additional metadata.
type TxDesc struct {
	types.TxDesc
}

// TxPool is used as a source of transactions that need to be mined into
// blocks and relayed to other peers.  It is safe for concurrent access from
// multiple peers.
type TxPool struct {
	// lastUpdated tracks the last time a transaction was added to or
	// removed from the pool.  It is accessed atomically.
	lastUpdated int64

	mtx sync.RWMutex
	cfg Config

	pool map[hash.Hash]*TxDesc

	// bySender indexes pending transactions by sender and nonce so
	// speculative admission and conflict purging never scan the pool.
	bySender map[types.Address]map[uint64]*types.Tx

	// confirmed records the hashes of transactions that have been mined
	// into the canonical chain, so a replayed submission is refused as a
	// duplicate rather than bounced off a nonce check.
	confirmed map[hash.Hash]struct{}
}

// New returns a new memory pool for validating and storing standalone
// transactions until they are mined into a block.
func New(cfg *Config) *TxPool {
	return &TxPool{
		cfg:       *cfg,
		pool:      make(map[hash.Hash]*TxDesc),
		bySender:  make(map[types.Address]map[uint64]*types.Tx),
		confirmed: make(map[hash.Hash]struct{}),
	}
}

// Count returns the number of transactions in the main pool.  It does not
// include the orphan pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	count := len(mp.pool)
	mp.mtx.RUnlock()
	return count
}

// HaveTransaction returns whether or not the passed transaction hash already
// exists in the main pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) HaveTransaction(h *hash.Hash) bool {
	mp.mtx.RLock()
	_, have := mp.pool[*h]
	mp.mtx.RUnlock()
	return have
}

// IsConfirmed returns whether the passed transaction hash has been observed
// in a connected block.
//
// This function is safe for concurrent access.
func (mp *TxPool) IsConfirmed(h *hash.Hash) bool {
	mp.mtx.RLock()
	_, have := mp.confirmed[*h]
	mp.mtx.RUnlock()
	return have
}

// TxHashes returns a slice of hashes for all of the transactions in the
// memory pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxHashes() []*hash.Hash {
	mp.mtx.RLock()
	hashes := make([]*hash.Hash, 0, len(mp.pool))
	for h := range mp.pool {
		hCopy := h
		hashes = append(hashes, &hCopy)
	}
	mp.mtx.RUnlock()
	return hashes
}

// TxDescs returns a slice of descriptors for all the transactions in the
// pool.  The descriptors are to be treated as read only.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	mp.mtx.RUnlock()
	return descs
}

// MiningDescs returns a slice of mining descriptors for all the transactions
// in the pool, which is how the block assembler consumes pool contents.
//
// This function is safe for concurrent access.
func (mp *TxPool) MiningDescs() []*types.TxDesc {
	mp.mtx.RLock()
	descs := make([]*types.TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, &desc.TxDesc)
	}
	mp.mtx.RUnlock()
	return descs
}

// LastUpdated returns the last time a transaction was added to or removed
// from the main pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}

// touch records a pool mutation and refreshes the exported size gauge.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) touch() {
	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
	metrics.MempoolSizeGauge.Update(int64(len(mp.pool)))
}

// calcFeePerKB returns the fee the transaction pays per 1000 bytes of its
// serialized size.  Tiny transactions round up to one byte to avoid division
// by zero.
func calcFeePerKB(tx *types.Transaction) uint64 {
	size := tx.SerializeSize()
	if size <= 0 {
		size = 1
	}
	return tx.Fee * 1000 / uint64(size)
}

// removeTransaction removes the passed transaction from the pool indexes.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransaction(tx *types.Tx) {
	txHash := tx.Hash()
	desc, exists := mp.pool[*txHash]
	if !exists {
		return
	}
	delete(mp.pool, *txHash)

	sender := desc.Tx.Tx.From.Normalize()
	if pending := mp.bySender[sender]; pending != nil {
		delete(pending, desc.Tx.Tx.Nonce)
		if len(pending) == 0 {
			delete(mp.bySender, sender)
		}
	}
	mp.touch()
}

// RemoveTransaction removes the passed transaction from the mempool.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(tx *types.Tx) {
	mp.mtx.Lock()
	mp.removeTransaction(tx)
	mp.mtx.Unlock()
}

// limitPoolSize makes room for one more transaction when the pool is at
// capacity by evicting the entry with the lowest fee per KB.  When the
// incoming transaction itself has the lowest priority it is rejected with
// RejectPoolFull instead.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) limitPoolSize(incomingFeePerKB uint64) error {
	if len(mp.pool) < mp.cfg.Policy.MaxTxPoolSize {
		return nil
	}

	var lowest *TxDesc
	for _, desc := range mp.pool {
		if lowest == nil || desc.FeePerKB < lowest.FeePerKB {
			lowest = desc
		}
	}
	if lowest == nil || incomingFeePerKB <= lowest.FeePerKB {
		str := fmt.Sprintf("mempool is full (%d entries) and the "+
			"transaction does not pay enough to displace any entry",
			len(mp.pool))
		return txRuleError(RejectPoolFull, str)
	}

	log.Debugf("Evicting transaction %v (fee rate %d) for a higher "+
		"priority arrival", lowest.Tx.Hash(), lowest.FeePerKB)
	mp.removeTransaction(lowest.Tx)
	return nil
}

// maybeAcceptTransaction is the main workhorse for handling insertion of new
// standalone transactions into a memory pool.  It includes support for
// duplicate rejection, admission policy enforcement and speculative
// validation against the confirmed account state extended by the sender's
// already-pending transactions.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) maybeAcceptTransaction(tx *types.Tx) (*TxDesc, error) {
	txHash := tx.Hash()

	// Don't accept the transaction if it already exists in the pool or
	// has already been mined.  The second case matters because the
	// transaction hash excludes the signature, so a re-signed replay of a
	// confirmed transfer still collides here.
	if _, exists := mp.pool[*txHash]; exists {
		str := fmt.Sprintf("already have transaction %v", txHash)
		return nil, txRuleError(RejectDuplicate, str)
	}
	if _, exists := mp.confirmed[*txHash]; exists {
		str := fmt.Sprintf("transaction %v is already confirmed", txHash)
		return nil, txRuleError(RejectDuplicate, str)
	}

	msgTx := tx.Transaction()
	if msgTx.IsCoinBase() {
		str := fmt.Sprintf("transaction %v is an individual coinbase",
			txHash)
		return nil, txRuleError(RejectInvalid, str)
	}

	serializedSize := msgTx.SerializeSize()
	if serializedSize > mp.cfg.Policy.MaxTxSize {
		str := fmt.Sprintf("transaction %v is %d bytes, limit %d",
			txHash, serializedSize, mp.cfg.Policy.MaxTxSize)
		return nil, txRuleError(RejectNonstandard, str)
	}

	feePerKB := calcFeePerKB(msgTx)
	if feePerKB < mp.cfg.Policy.MinRelayTxFee {
		str := fmt.Sprintf("transaction %v pays %d atoms/kB, minimum "+
			"is %d", txHash, feePerKB, mp.cfg.Policy.MinRelayTxFee)
		return nil, txRuleError(RejectInsufficientFee, str)
	}

	// Only one pending transaction per sender-nonce slot.
	sender := msgTx.From.Normalize()
	if pending := mp.bySender[sender]; pending != nil {
		if existing, exists := pending[msgTx.Nonce]; exists {
			str := fmt.Sprintf("transaction %v conflicts with "+
				"pending transaction %v at nonce %d", txHash,
				existing.Hash(), msgTx.Nonce)
			return nil, txRuleError(RejectDuplicate, str)
		}
	}

	// Validate against the confirmed state extended by the sender's
	// already-admitted transactions.  Extending the view is what allows a
	// second transaction with the next sequential nonce to be accepted
	// speculatively before the first confirms; anything beyond the
	// contiguous run still fails the nonce check.
	view := mp.cfg.StateView()
	confirmedNonce := view.Account(sender).Nonce
	for nonce := confirmedNonce + 1; ; nonce++ {
		pendingTx, exists := mp.bySender[sender][nonce]
		if !exists {
			break
		}
		if err := view.ApplyTransaction(pendingTx.Transaction()); err != nil {
			break
		}
	}
	err := blockchain.ValidateTransaction(msgTx, view,
		mp.cfg.ChainParams.AddressVersion)
	if err != nil {
		return nil, wrapChainError(err)
	}

	// Enforce the pool capacity, possibly evicting a lower-priority
	// entry to make room.
	if err := mp.limitPoolSize(feePerKB); err != nil {
		return nil, err
	}

	bestHeight := mp.cfg.BestHeight()
	desc := &TxDesc{
		TxDesc: types.TxDesc{
			Tx:       tx,
			Added:    time.Now(),
			Height:   bestHeight,
			Fee:      msgTx.Fee,
			FeePerKB: feePerKB,
		},
	}
	mp.pool[*txHash] = desc
	if mp.bySender[sender] == nil {
		mp.bySender[sender] = make(map[uint64]*types.Tx)
	}
	mp.bySender[sender][msgTx.Nonce] = tx
	mp.touch()

	log.Debugf("Accepted transaction %v (pool size: %d)", txHash,
		len(mp.pool))
	return desc, nil
}

// ProcessTransaction is the main workhorse for handling insertion of new
// standalone transactions into the memory pool.  It is the entry point used
// by the wallet facade and the remote-transaction handler.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessTransaction(tx *types.Tx) (*TxDesc, error) {
	mp.mtx.Lock()
	desc, err := mp.maybeAcceptTransaction(tx)
	mp.mtx.Unlock()

	if err != nil {
		log.Debugf("Rejected transaction %v: %v", tx.Hash(), err)
	}
	return desc, err
}

// BlockConnected removes from the pool every transaction confirmed by the
// passed block and purges any pending transaction the new confirmed state
// makes unreplayable, which is any entry whose sender nonce is now at or
// below the confirmed nonce.
//
// The block contents carry everything needed, so nothing is read back from
// the chain.
//
// This function is safe for concurrent access.
func (mp *TxPool) BlockConnected(block *types.SerializedBlock) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, tx := range block.Transactions() {
		msgTx := tx.Transaction()
		if msgTx.IsCoinBase() {
			continue
		}
		mp.confirmed[*tx.Hash()] = struct{}{}
		mp.removeTransaction(tx)

		// Drop pending entries from the same sender whose nonces the
		// confirmation superseded.
		sender := msgTx.From.Normalize()
		for nonce, pendingTx := range mp.bySender[sender] {
			if nonce <= msgTx.Nonce {
				log.Debugf("Purging superseded transaction "+
					"%v (nonce %d)", pendingTx.Hash(), nonce)
				mp.removeTransaction(pendingTx)
			}
		}
	}
}

// BlockDisconnected returns the transactions of a block abandoned by a
// reorganization to the pool so a later block on the new branch can confirm
// them.  The entries skip full validation on the way back in: readmission is
// cheap, and both block assembly and block validation re-check every
// transaction against confirmed state anyway.
//
// This function is safe for concurrent access.
func (mp *TxPool) BlockDisconnected(block *types.SerializedBlock) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, tx := range block.Transactions() {
		msgTx := tx.Transaction()
		if msgTx.IsCoinBase() {
			continue
		}
		txHash := tx.Hash()
		delete(mp.confirmed, *txHash)

		if _, exists := mp.pool[*txHash]; exists {
			continue
		}
		sender := msgTx.From.Normalize()
		if pending := mp.bySender[sender]; pending != nil {
			if _, exists := pending[msgTx.Nonce]; exists {
				continue
			}
		}

		desc := &TxDesc{
			TxDesc: types.TxDesc{
				Tx:       tx,
				Added:    time.Now(),
				Height:   block.Height() - 1,
				Fee:      msgTx.Fee,
				FeePerKB: calcFeePerKB(msgTx),
			},
		}
		mp.pool[*txHash] = desc
		if mp.bySender[sender] == nil {
			mp.bySender[sender] = make(map[uint64]*types.Tx)
		}
		mp.bySender[sender][msgTx.Nonce] = tx
		mp.touch()

		log.Debugf("Returned transaction %v to the pool after "+
			"disconnect of block %v", txHash, block.Hash())
	}
}
