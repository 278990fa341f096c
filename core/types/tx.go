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

// TxVersion is the current transaction version.
const TxVersion uint32 = 1

// minTxPayload is the minimum size in bytes a serialized transaction can be:
// version, four length prefixes, amount, fee, nonce and timestamp.
const minTxPayload = 4 + 4*4 + 8 + 8 + 8 + 8

// Transaction is a transfer of value between two accounts.  It is immutable
// once signed; every field except Signature is covered by the signature and
// by the transaction hash.
type Transaction struct {
	Version   uint32    `json:"version"`
	From      Address   `json:"from"`
	To        Address   `json:"to"`
	Amount    uint64    `json:"amount"`
	Fee       uint64    `json:"fee"`
	Nonce     uint64    `json:"nonce"`
	Timestamp time.Time `json:"timestamp"`

	// SenderKey is the serialized public key the signature verifies
	// against.  The sender address must be derivable from it.
	SenderKey []byte `json:"sender_key"`
	Signature []byte `json:"signature"`
}

// IsCoinBase determines whether or not a transaction is the block reward
// transaction.  A coinbase has no sender account and is neither signed nor
// nonce-sequenced.
func (t *Transaction) IsCoinBase() bool {
	return t.From == ""
}

// SerializeSize returns the number of bytes it would take to serialize the
// transaction.
func (t *Transaction) SerializeSize() int {
	return minTxPayload + len(t.From) + len(t.To) +
		len(t.SenderKey) + len(t.Signature)
}

// serializePayload writes every field except the signature.  These are the
// bytes the sender signs and the bytes the transaction hash commits to.
func (t *Transaction) serializePayload(w *bytes.Buffer) {
	// Writes to a bytes.Buffer cannot fail.
	_ = s.WriteElements(w, t.Version, string(t.From), string(t.To),
		t.Amount, t.Fee, t.Nonce, t.Timestamp, t.SenderKey)
}

// SigHash returns the digest the transaction signature must cover.
func (t *Transaction) SigHash() hash.Hash {
	var buf bytes.Buffer
	buf.Grow(t.SerializeSize())
	t.serializePayload(&buf)
	return hash.HashH(buf.Bytes())
}

// TxHash generates the content hash that identifies the transaction.  The
// signature is excluded, so differently-signed copies of the same transfer
// share one identity.
func (t *Transaction) TxHash() hash.Hash {
	return t.SigHash()
}

// Tx defines a transaction structure that is used to house the underlying
// transaction along with cached data such as its hash.
type Tx struct {
	Tx *Transaction

	hash    hash.Hash
	hashSet bool
}

// NewTx returns a new instance of a transaction given an underlying
// Transaction.
func NewTx(t *Transaction) *Tx {
	return &Tx{Tx: t}
}

// Transaction returns the underlying transaction.
func (t *Tx) Transaction() *Transaction {
	return t.Tx
}

// Hash returns the hash of the transaction.  The hash is calculated on first
// access and cached for subsequent calls.
func (t *Tx) Hash() *hash.Hash {
	if !t.hashSet {
		t.hash = t.Tx.TxHash()
		t.hashSet = true
	}
	return &t.hash
}

// TxDesc is a descriptor about a transaction in a transaction source along
// with additional metadata.
type TxDesc struct {
	// Tx is the transaction associated with the entry.
	Tx *Tx

	// Added is the time when the entry was added to the source pool.
	Added time.Time

	// Height is the best block height when the entry was added to the
	// source pool.
	Height uint64

	// Fee is the total fee the transaction associated with the entry pays.
	Fee uint64

	// FeePerKB is the fee the transaction pays in atoms per 1000 bytes.
	FeePerKB uint64
}
