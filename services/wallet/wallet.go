// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet provides key management and transaction construction on top
// of the consensus core.  It talks to the chain through a read-only account
// query and hands finished transactions to the mempool through a submitter
// callback, so it carries no consensus logic of its own.
package wallet

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/lunaproject/lunad/core/state"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/database"
	"github.com/lunaproject/lunad/params"
)

// keyPrefix namespaces wallet key material inside the shared store.
var keyPrefix = []byte("wallet/key/")

// ChainQuery is the read-only view of confirmed state the wallet needs.
type ChainQuery interface {
	Account(addr types.Address) state.Account
}

// TxSubmitter delivers a signed transaction to the mempool.
type TxSubmitter func(tx *types.Tx) error

// Wallet manages a set of ed25519 keys and builds signed transfers with
// correctly sequenced nonces.
type Wallet struct {
	mtx sync.Mutex

	params *params.Params
	db     database.DB
	chain  ChainQuery
	submit TxSubmitter

	keys map[types.Address]ed25519.PrivateKey

	// lastNonce tracks the highest nonce handed out per address so that
	// several transfers can be built before the first confirms.
	lastNonce map[types.Address]uint64
}

// Open loads wallet keys from the store and returns a ready wallet.
func Open(db database.DB, chainParams *params.Params, chain ChainQuery, submit TxSubmitter) (*Wallet, error) {
	w := &Wallet{
		params:    chainParams,
		db:        db,
		chain:     chain,
		submit:    submit,
		keys:      make(map[types.Address]ed25519.PrivateKey),
		lastNonce: make(map[types.Address]uint64),
	}

	err := db.ForEach(keyPrefix, func(key, value []byte) error {
		addr := types.Address(key[len(keyPrefix):]).Normalize()
		if len(value) != ed25519.PrivateKeySize {
			return fmt.Errorf("stored key for %s is %d bytes, "+
				"want %d", addr, len(value), ed25519.PrivateKeySize)
		}
		w.keys[addr] = ed25519.PrivateKey(value)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Wallet opened with %d addresses", len(w.keys))
	return w, nil
}

// NewAddress generates a fresh key pair, persists it and returns the derived
// address.
func (w *Wallet) NewAddress() (types.Address, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", err
	}
	addr := types.NewAddressFromPubKey(pub, w.params.AddressVersion)

	w.mtx.Lock()
	defer w.mtx.Unlock()
	if err := w.db.Put(append(keyPrefix, addr...), priv); err != nil {
		return "", err
	}
	w.keys[addr] = priv

	log.Infof("Generated new address %s", addr)
	return addr, nil
}

// Addresses returns every address the wallet holds a key for, sorted for
// deterministic output.
func (w *Wallet) Addresses() []types.Address {
	w.mtx.Lock()
	addrs := make([]types.Address, 0, len(w.keys))
	for addr := range w.keys {
		addrs = append(addrs, addr)
	}
	w.mtx.Unlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// HasAddress reports whether the wallet holds the key for the given address.
func (w *Wallet) HasAddress(addr types.Address) bool {
	w.mtx.Lock()
	_, ok := w.keys[addr.Normalize()]
	w.mtx.Unlock()
	return ok
}

// Balance returns the confirmed balance and nonce of the given address.
func (w *Wallet) Balance(addr types.Address) state.Account {
	return w.chain.Account(addr)
}

// nextNonce returns the nonce the next transfer from addr must carry, which
// is one past the larger of the confirmed nonce and the last nonce the
// wallet already used on a pending transfer.
//
// This function MUST be called with the wallet lock held.
func (w *Wallet) nextNonce(addr types.Address) uint64 {
	nonce := w.chain.Account(addr).Nonce
	if last := w.lastNonce[addr]; last > nonce {
		nonce = last
	}
	return nonce + 1
}

// NewTransaction builds and signs a transfer from one of the wallet's
// addresses.  The transaction is not submitted; use Send for that.
func (w *Wallet) NewTransaction(from, to types.Address, amount, fee uint64) (*types.Tx, error) {
	from = from.Normalize()
	to = to.Normalize()

	w.mtx.Lock()
	defer w.mtx.Unlock()

	priv, ok := w.keys[from]
	if !ok {
		return nil, fmt.Errorf("wallet holds no key for address %s", from)
	}
	if !to.IsValid() {
		return nil, fmt.Errorf("recipient address %q is not valid", to)
	}

	tx := &types.Transaction{
		Version:   types.TxVersion,
		From:      from,
		To:        to,
		Amount:    amount,
		Fee:       fee,
		Nonce:     w.nextNonce(from),
		Timestamp: time.Unix(time.Now().Unix(), 0),
		SenderKey: priv.Public().(ed25519.PublicKey),
	}
	sigHash := tx.SigHash()
	tx.Signature = ed25519.Sign(priv, sigHash.Bytes())

	w.lastNonce[from] = tx.Nonce
	return types.NewTx(tx), nil
}

// Send builds, signs and submits a transfer.  A rejected submission releases
// the nonce it reserved so the next attempt does not leave a gap.
func (w *Wallet) Send(from, to types.Address, amount, fee uint64) (*types.Tx, error) {
	tx, err := w.NewTransaction(from, to, amount, fee)
	if err != nil {
		return nil, err
	}

	if err := w.submit(tx); err != nil {
		w.mtx.Lock()
		if w.lastNonce[from.Normalize()] == tx.Transaction().Nonce {
			w.lastNonce[from.Normalize()] = tx.Transaction().Nonce - 1
		}
		w.mtx.Unlock()
		return nil, err
	}

	log.Infof("Submitted transaction %v: %s -> %s, amount %d, fee %d",
		tx.Hash(), from, to, amount, fee)
	return tx, nil
}
