// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"
)

func newTestTransaction(t *testing.T) (*Transaction, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	assert.Nil(t, err)
	to, _, err := ed25519.GenerateKey(rand.Reader)
	assert.Nil(t, err)

	tx := &Transaction{
		Version:   TxVersion,
		From:      NewAddressFromPubKey(pub, 0x27),
		To:        NewAddressFromPubKey(to, 0x27),
		Amount:    30,
		Fee:       1,
		Nonce:     1,
		Timestamp: time.Unix(1735689700, 0),
		SenderKey: pub,
	}
	return tx, priv
}

func TestTxHashExcludesSignature(t *testing.T) {
	tx, priv := newTestTransaction(t)
	unsignedHash := tx.TxHash()

	sigHash := tx.SigHash()
	tx.Signature = ed25519.Sign(priv, sigHash.Bytes())

	// Signing must not change the transaction identity, so a re-signed
	// duplicate of the same transfer is recognizable as a duplicate.
	signedHash := tx.TxHash()
	assert.True(t, unsignedHash.IsEqual(&signedHash))

	// Any signed field change must change the identity.
	tx.Amount++
	changedHash := tx.TxHash()
	assert.False(t, unsignedHash.IsEqual(&changedHash))
}

func TestTxSignatureVerifies(t *testing.T) {
	tx, priv := newTestTransaction(t)
	sigHash := tx.SigHash()
	tx.Signature = ed25519.Sign(priv, sigHash.Bytes())

	assert.True(t, ed25519.Verify(ed25519.PublicKey(tx.SenderKey),
		sigHash.Bytes(), tx.Signature))

	// The signature covers every other field.
	tx.Nonce++
	tampered := tx.SigHash()
	assert.False(t, ed25519.Verify(ed25519.PublicKey(tx.SenderKey),
		tampered.Bytes(), tx.Signature))
}

func TestIsCoinBase(t *testing.T) {
	tx, _ := newTestTransaction(t)
	assert.False(t, tx.IsCoinBase())

	coinbase := &Transaction{
		Version: TxVersion,
		To:      tx.To,
		Amount:  50 * AtomsPerCoin,
	}
	assert.True(t, coinbase.IsCoinBase())
}

func TestTxWrapperCachesHash(t *testing.T) {
	tx, _ := newTestTransaction(t)
	wrapped := NewTx(tx)

	first := wrapped.Hash()
	second := wrapped.Hash()
	assert.True(t, first == second)
	assert.Equal(t, tx, wrapped.Transaction())
}
