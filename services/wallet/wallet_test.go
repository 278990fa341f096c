// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"

	"github.com/lunaproject/lunad/core/state"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/database"
	"github.com/lunaproject/lunad/params"
)

// fakeChain serves confirmed account state from a plain map.
type fakeChain struct {
	accounts map[types.Address]state.Account
}

func newFakeChain() *fakeChain {
	return &fakeChain{accounts: make(map[types.Address]state.Account)}
}

func (c *fakeChain) Account(addr types.Address) state.Account {
	return c.accounts[addr.Normalize()]
}

// collectSubmitter records submitted transactions and can be switched to
// reject them.
type collectSubmitter struct {
	txs    []*types.Tx
	reject bool
}

func (s *collectSubmitter) submit(tx *types.Tx) error {
	if s.reject {
		return errors.New("rejected")
	}
	s.txs = append(s.txs, tx)
	return nil
}

func newTestWallet(t *testing.T) (*Wallet, *fakeChain, *collectSubmitter, database.DB) {
	db := database.NewMemDB()
	chain := newFakeChain()
	submitter := &collectSubmitter{}
	w, err := Open(db, &params.PrivNetParams, chain, submitter.submit)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return w, chain, submitter, db
}

// TestNewAddress checks generation, lookup and deterministic listing.
func TestNewAddress(t *testing.T) {
	w, _, _, _ := newTestWallet(t)

	assert.Equal(t, 0, len(w.Addresses()))

	addr1, err := w.NewAddress()
	assert.Nil(t, err)
	assert.True(t, addr1.IsValid())
	assert.True(t, w.HasAddress(addr1))

	addr2, err := w.NewAddress()
	assert.Nil(t, err)
	assert.NotEqual(t, addr1, addr2)

	addrs := w.Addresses()
	assert.Equal(t, 2, len(addrs))
	assert.True(t, addrs[0] < addrs[1])

	other, err := w.NewAddress()
	assert.Nil(t, err)
	assert.True(t, w.HasAddress(other))
	assert.False(t, w.HasAddress(types.Address("LUN_nonsense")))
}

// TestOpenPersistence checks keys survive a close and reopen of the store.
func TestOpenPersistence(t *testing.T) {
	db := database.NewMemDB()
	chain := newFakeChain()
	submitter := &collectSubmitter{}

	w, err := Open(db, &params.PrivNetParams, chain, submitter.submit)
	assert.Nil(t, err)
	addr, err := w.NewAddress()
	assert.Nil(t, err)

	// A second wallet over the same store sees the key and can still sign
	// with it.
	reopened, err := Open(db, &params.PrivNetParams, chain, submitter.submit)
	assert.Nil(t, err)
	assert.True(t, reopened.HasAddress(addr))

	chain.accounts[addr] = state.Account{Balance: 100}
	tx, err := reopened.NewTransaction(addr, addr, 10, 1)
	assert.Nil(t, err)
	msgTx := tx.Transaction()
	sigHash := msgTx.SigHash()
	assert.True(t, ed25519.Verify(ed25519.PublicKey(msgTx.SenderKey),
		sigHash.Bytes(), msgTx.Signature))

	// A corrupt stored key fails the reopen.
	assert.Nil(t, db.Put(append(keyPrefix, "LUN_bogus"...), []byte{1, 2, 3}))
	_, err = Open(db, &params.PrivNetParams, chain, submitter.submit)
	assert.NotNil(t, err)
}

// TestNewTransaction checks signing and nonce sequencing across pending
// transfers.
func TestNewTransaction(t *testing.T) {
	w, chain, _, _ := newTestWallet(t)
	from, err := w.NewAddress()
	assert.Nil(t, err)
	to, err := w.NewAddress()
	assert.Nil(t, err)
	chain.accounts[from] = state.Account{Balance: 1000, Nonce: 4}

	// No key for a foreign address.
	_, err = w.NewTransaction(to.Normalize()+"x", from, 10, 1)
	assert.NotNil(t, err)

	// Invalid recipients are refused before signing.
	_, err = w.NewTransaction(from, types.Address("LUN_nonsense"), 10, 1)
	assert.NotNil(t, err)

	// The first transfer continues from the confirmed nonce; building a
	// second before the first confirms advances past it.
	tx1, err := w.NewTransaction(from, to, 10, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(5), tx1.Transaction().Nonce)

	tx2, err := w.NewTransaction(from, to, 10, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(6), tx2.Transaction().Nonce)

	// Once the chain catches up past the wallet's bookkeeping, the
	// confirmed nonce wins.
	chain.accounts[from] = state.Account{Balance: 1000, Nonce: 9}
	tx3, err := w.NewTransaction(from, to, 10, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(10), tx3.Transaction().Nonce)

	sig := tx1.Transaction()
	assert.Equal(t, from, sig.From)
	assert.Equal(t, to, sig.To)
	assert.Equal(t, uint64(10), sig.Amount)
	assert.Equal(t, uint64(1), sig.Fee)
	sigHash := sig.SigHash()
	assert.True(t, ed25519.Verify(ed25519.PublicKey(sig.SenderKey),
		sigHash.Bytes(), sig.Signature))
}

// TestSend checks submission and the nonce rollback on rejection.
func TestSend(t *testing.T) {
	w, chain, submitter, _ := newTestWallet(t)
	from, err := w.NewAddress()
	assert.Nil(t, err)
	to, err := w.NewAddress()
	assert.Nil(t, err)
	chain.accounts[from] = state.Account{Balance: 1000}

	tx1, err := w.Send(from, to, 10, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), tx1.Transaction().Nonce)
	assert.Equal(t, 1, len(submitter.txs))

	// A rejected submission releases its nonce so the next attempt reuses
	// it instead of leaving a gap.
	submitter.reject = true
	_, err = w.Send(from, to, 10, 1)
	assert.NotNil(t, err)

	submitter.reject = false
	tx2, err := w.Send(from, to, 10, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(2), tx2.Transaction().Nonce)
	assert.Equal(t, 2, len(submitter.txs))

	// Balance passes through the chain query.
	assert.Equal(t, uint64(1000), w.Balance(from).Balance)
}
