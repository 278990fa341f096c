// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"bytes"
	"time"

	"github.com/lunaproject/lunad/common/hash"
	s "github.com/lunaproject/lunad/core/serialization"
)

// MaxBlockHeaderPayload is the number of bytes a serialized block header
// occupies: Version 4 bytes + ParentHash 32 bytes + TxRoot 32 bytes +
// Height 8 bytes + Difficulty 4 bytes + Timestamp 8 bytes + Nonce 8 bytes.
const MaxBlockHeaderPayload = 4 + (hash.HashSize * 2) + 8 + 4 + 8 + 8

// MaxBlockPayload is the maximum number of bytes a serialized block can be.
const MaxBlockPayload = 1000000

// MaxTxPerBlock is the maximum number of transactions that could possibly
// fit into a block.
const MaxTxPerBlock = (MaxBlockPayload / minTxPayload) + 1

// BlockVersion is the current block version.
const BlockVersion uint32 = 1

// BlockHeader defines information about a block.  The header alone is hashed
// during the proof-of-work search; the transactions are committed to through
// the TxRoot.
type BlockHeader struct {
	// Version of the block.
	Version uint32 `json:"version"`

	// ParentHash is the hash of the previous block in the chain.  The
	// genesis block carries the zero hash.
	ParentHash hash.Hash `json:"parent_hash"`

	// TxRoot is the merkle root of the block's transactions.
	TxRoot hash.Hash `json:"tx_root"`

	// Height is the distance of the block from genesis.
	Height uint64 `json:"height"`

	// Difficulty is the compact-form target the block hash must not
	// exceed.
	Difficulty uint32 `json:"difficulty"`

	// Timestamp is the time the block was assembled, second precision.
	Timestamp time.Time `json:"timestamp"`

	// Nonce is the field varied during the proof-of-work search.
	Nonce uint64 `json:"nonce"`
}

// serialize writes the canonical header bytes hashed by the proof of work.
func (h *BlockHeader) serialize(w *bytes.Buffer) {
	// Writes to a bytes.Buffer cannot fail.
	_ = s.WriteElements(w, h.Version, &h.ParentHash, &h.TxRoot,
		h.Height, h.Difficulty, h.Timestamp, h.Nonce)
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() hash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, MaxBlockHeaderPayload))
	h.serialize(buf)
	return hash.HashH(buf.Bytes())
}

// Block defines a block containing header and transactions within it.
// Transactions[0] is always the coinbase paying the block reward to the
// miner.
type Block struct {
	Header       BlockHeader    `json:"header"`
	Transactions []*Transaction `json:"transactions"`
}

// BlockHash computes the block identifier hash for this block.
func (b *Block) BlockHash() hash.Hash {
	return b.Header.BlockHash()
}

// SerializeSize returns the number of bytes it would take to serialize the
// block.
func (b *Block) SerializeSize() int {
	n := MaxBlockHeaderPayload
	for _, tx := range b.Transactions {
		n += tx.SerializeSize()
	}
	return n
}

// AddTransaction appends a transaction to the block.
func (b *Block) AddTransaction(tx *Transaction) {
	b.Transactions = append(b.Transactions, tx)
}

// SerializedBlock provides easier and more efficient manipulation of raw
// blocks.  It memoizes the block hash and the wrapped transactions on first
// access.
type SerializedBlock struct {
	block   *Block
	hash    hash.Hash
	hashSet bool
	txs     []*Tx
}

// NewBlock returns a new instance of the serialized block given an underlying
// Block.
func NewBlock(block *Block) *SerializedBlock {
	return &SerializedBlock{block: block}
}

// Block returns the underlying Block.
func (sb *SerializedBlock) Block() *Block {
	return sb.block
}

// Hash returns the block identifier hash, calculating it on first access.
func (sb *SerializedBlock) Hash() *hash.Hash {
	if !sb.hashSet {
		sb.hash = sb.block.BlockHash()
		sb.hashSet = true
	}
	return &sb.hash
}

// Height returns the height recorded in the block header.
func (sb *SerializedBlock) Height() uint64 {
	return sb.block.Header.Height
}

// Transactions returns the block's transactions wrapped with cached-hash
// Tx instances.  The wrappers are built on first access and reused.
func (sb *SerializedBlock) Transactions() []*Tx {
	if sb.txs == nil {
		sb.txs = make([]*Tx, len(sb.block.Transactions))
		for i, tx := range sb.block.Transactions {
			sb.txs[i] = NewTx(tx)
		}
	}
	return sb.txs
}
