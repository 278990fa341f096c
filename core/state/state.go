// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package state models the confirmed account view of the chain: a mapping
// from address to balance and nonce.  Views are value-semantics snapshots;
// the chain keeps one per accepted block so parents can be re-derived without
// replaying from genesis.
package state

import (
	"fmt"

	"github.com/lunaproject/lunad/core/types"
)

// Account is the confirmed balance and nonce of a single address.  The nonce
// is the number of confirmed transactions the address has sent, so the next
// valid transaction nonce is always Nonce+1.
type Account struct {
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// View is an account-state snapshot.  It is not safe for concurrent mutation;
// the chain manager guards it with its own lock and hands out clones to
// readers.
type View struct {
	accounts map[types.Address]Account
}

// NewView returns an empty account view.
func NewView() *View {
	return &View{accounts: make(map[types.Address]Account)}
}

// Clone returns a deep copy of the view.  Cheap enough at wallet-toolkit
// scale, and it keeps reorg logic trivially correct: every block node owns an
// independent snapshot.
func (v *View) Clone() *View {
	nv := &View{accounts: make(map[types.Address]Account, len(v.accounts))}
	for addr, acct := range v.accounts {
		nv.accounts[addr] = acct
	}
	return nv
}

// Account looks up the account for the given address.  Unknown addresses
// report a zero balance and zero nonce.
func (v *View) Account(addr types.Address) Account {
	return v.accounts[addr.Normalize()]
}

// NumAccounts returns the number of addresses with recorded state.
func (v *View) NumAccounts() int {
	return len(v.accounts)
}

// Accounts returns a copy of the underlying mapping, for serialization.
func (v *View) Accounts() map[types.Address]Account {
	m := make(map[types.Address]Account, len(v.accounts))
	for addr, acct := range v.accounts {
		m[addr] = acct
	}
	return m
}

// SetAccount overwrites the state of one address.  It is only for rebuilding
// a view from a serialized snapshot.
func (v *View) SetAccount(addr types.Address, acct Account) {
	v.accounts[addr.Normalize()] = acct
}

// TotalAtoms sums every balance in the view.  Conservation says this must
// equal the cumulative issuance of the canonical chain.
func (v *View) TotalAtoms() uint64 {
	var total uint64
	for _, acct := range v.accounts {
		total += acct.Balance
	}
	return total
}

// ApplyTransaction debits the sender by amount+fee, credits the recipient by
// amount and advances the sender nonce.  The caller must have validated the
// transaction first; Apply still refuses to drive a balance negative or skip
// a nonce so that a validation bug cannot corrupt state silently.
func (v *View) ApplyTransaction(tx *types.Transaction) error {
	from := tx.From.Normalize()
	to := tx.To.Normalize()

	sender := v.accounts[from]
	total := tx.Amount + tx.Fee
	if total < tx.Amount {
		return fmt.Errorf("account %s spend of %d + %d overflows",
			from, tx.Amount, tx.Fee)
	}
	if sender.Balance < total {
		return fmt.Errorf("account %s balance %d cannot cover %d",
			from, sender.Balance, total)
	}
	if tx.Nonce != sender.Nonce+1 {
		return fmt.Errorf("account %s nonce %d, transaction nonce %d",
			from, sender.Nonce, tx.Nonce)
	}

	recipient := v.accounts[to]
	if from != to && recipient.Balance+tx.Amount < recipient.Balance {
		return fmt.Errorf("account %s balance overflows crediting %d",
			to, tx.Amount)
	}

	sender.Balance -= total
	sender.Nonce = tx.Nonce
	v.accounts[from] = sender

	recipient = v.accounts[to]
	recipient.Balance += tx.Amount
	v.accounts[to] = recipient
	return nil
}

// ApplyCoinbase credits the block reward plus collected fees to the miner.
// Coinbase credits are the only way value enters the view.
func (v *View) ApplyCoinbase(to types.Address, amount uint64) error {
	addr := to.Normalize()
	acct := v.accounts[addr]
	if acct.Balance+amount < acct.Balance {
		return fmt.Errorf("account %s balance overflows crediting %d",
			addr, amount)
	}
	acct.Balance += amount
	v.accounts[addr] = acct
	return nil
}
