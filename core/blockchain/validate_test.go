// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lunaproject/lunad/core/state"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/core/types/pow"
	"github.com/lunaproject/lunad/params"
)

func TestCheckTransactionSanity(t *testing.T) {
	alice := newTestAccount(t)
	bob := newTestAccount(t)

	good := alice.transferTo(bob.addr, 30, 1, 1)
	assert.Nil(t, CheckTransactionSanity(good))

	// Zero amount.
	zeroAmount := alice.transferTo(bob.addr, 0, 1, 1)
	assert.True(t, IsRuleErrorCode(CheckTransactionSanity(zeroAmount),
		ErrMalformedTx))

	// Zero nonce.
	zeroNonce := alice.transferTo(bob.addr, 30, 1, 0)
	assert.True(t, IsRuleErrorCode(CheckTransactionSanity(zeroNonce),
		ErrMalformedTx))

	// Invalid recipient.
	badTo := alice.transferTo(types.Address("LUN_garbage"), 30, 1, 1)
	assert.True(t, IsRuleErrorCode(CheckTransactionSanity(badTo),
		ErrMalformedTx))

	// Amounts above the maximum issuance, including totals that wrap.
	hugeAmount := alice.transferTo(bob.addr, types.MaxAtoms+1, 1, 1)
	assert.True(t, IsRuleErrorCode(CheckTransactionSanity(hugeAmount),
		ErrMalformedTx))

	hugeFee := alice.transferTo(bob.addr, 30, types.MaxAtoms+1, 1)
	assert.True(t, IsRuleErrorCode(CheckTransactionSanity(hugeFee),
		ErrMalformedTx))

	wrapping := alice.transferTo(bob.addr, ^uint64(0), 100, 1)
	assert.True(t, IsRuleErrorCode(CheckTransactionSanity(wrapping),
		ErrMalformedTx))

	// Truncated sender key.
	truncated := alice.transferTo(bob.addr, 30, 1, 1)
	truncated.SenderKey = truncated.SenderKey[:16]
	assert.True(t, IsRuleErrorCode(CheckTransactionSanity(truncated),
		ErrMalformedTx))

	// A signed coinbase is malformed.
	signedCoinbase := alice.transferTo(bob.addr, 30, 0, 1)
	signedCoinbase.From = ""
	assert.True(t, IsRuleErrorCode(CheckTransactionSanity(signedCoinbase),
		ErrMalformedTx))
}

func TestValidateTransaction(t *testing.T) {
	version := params.PrivNetParams.AddressVersion
	alice := newTestAccount(t)
	bob := newTestAccount(t)

	view := state.NewView()
	view.SetAccount(alice.addr, state.Account{Balance: 100, Nonce: 0})

	// The happy path mirrors a funded sender's first transfer.
	tx := alice.transferTo(bob.addr, 30, 1, 1)
	assert.Nil(t, ValidateTransaction(tx, view, version))

	// Validation is pure: the view is unchanged.
	assert.Equal(t, state.Account{Balance: 100, Nonce: 0},
		view.Account(alice.addr))

	// Tampering after signing breaks the signature.
	tampered := alice.transferTo(bob.addr, 30, 1, 1)
	tampered.Amount = 31
	assert.True(t, IsRuleErrorCode(
		ValidateTransaction(tampered, view, version), ErrBadTxSignature))

	// A valid signature from a key that does not hash to the claimed
	// sender is also a signature failure.
	stolen := bob.transferTo(alice.addr, 1, 1, 1)
	stolen.From = alice.addr
	sigHash := stolen.SigHash()
	stolen.Signature = bob.signBytes(sigHash.Bytes())
	assert.True(t, IsRuleErrorCode(
		ValidateTransaction(stolen, view, version), ErrBadTxSignature))

	// Nonce gap.
	gap := alice.transferTo(bob.addr, 30, 1, 2)
	assert.True(t, IsRuleErrorCode(
		ValidateTransaction(gap, view, version), ErrNonceMismatch))

	// Replay of an already-confirmed nonce.
	view.SetAccount(alice.addr, state.Account{Balance: 69, Nonce: 1})
	replay := alice.transferTo(bob.addr, 30, 1, 1)
	assert.True(t, IsRuleErrorCode(
		ValidateTransaction(replay, view, version), ErrNonceMismatch))

	// Overspend: the fee counts against the balance too.
	overspend := alice.transferTo(bob.addr, 69, 1, 2)
	assert.True(t, IsRuleErrorCode(
		ValidateTransaction(overspend, view, version),
		ErrInsufficientFunds))

	// Coinbases never pass standalone validation.
	coinbase := &types.Transaction{
		Version: types.TxVersion,
		To:      bob.addr,
		Amount:  50,
	}
	assert.True(t, IsRuleErrorCode(
		ValidateTransaction(coinbase, view, version), ErrMalformedTx))
}

func TestCheckBlockSanity(t *testing.T) {
	chain := newTestChain(t)
	miner := newTestAccount(t)

	block := buildBlockOn(t, chain, genesisBlock(chain), miner.addr)
	assert.Nil(t, checkBlockSanity(block, chain.params.PowLimit,
		chain.params.MaxTxPerBlock, BFNone))

	// A block whose declared transaction root does not commit to its
	// transactions is rejected.
	badRoot := *block.Block()
	badRoot.Header.TxRoot[0] ^= 0x01
	solveBlock(t, &badRoot)
	err := checkBlockSanity(types.NewBlock(&badRoot), chain.params.PowLimit,
		chain.params.MaxTxPerBlock, BFNone)
	assert.True(t, IsRuleErrorCode(err, ErrBadTxRoot))

	// An unsolved block fails the proof of work check.
	unsolved := *block.Block()
	unsolved.Header.Nonce = block.Block().Header.Nonce + 1
	h := unsolved.Header.BlockHash()
	if pow.HashToBig(&h).Cmp(pow.CompactToBig(unsolved.Header.Difficulty)) <= 0 {
		t.Skip("incremented nonce still solves the block")
	}
	err = checkBlockSanity(types.NewBlock(&unsolved), chain.params.PowLimit,
		chain.params.MaxTxPerBlock, BFNone)
	assert.True(t, IsRuleErrorCode(err, ErrHighHash))

	// A block without transactions has no coinbase.
	empty := *block.Block()
	empty.Transactions = nil
	solveBlock(t, &empty)
	err = checkBlockSanity(types.NewBlock(&empty), chain.params.PowLimit,
		chain.params.MaxTxPerBlock, BFNoPoWCheck)
	assert.True(t, IsRuleErrorCode(err, ErrNoTransactions))
}
