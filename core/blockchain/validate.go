// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/lunaproject/lunad/common/hash"
	"github.com/lunaproject/lunad/core/merkle"
	"github.com/lunaproject/lunad/core/state"
	"github.com/lunaproject/lunad/core/types"
	"github.com/lunaproject/lunad/core/types/pow"
)

// MaxTimeOffsetSeconds is the maximum number of seconds a block time is
// allowed to be ahead of the current time.
const MaxTimeOffsetSeconds = 2 * 60 * 60

// CheckTransactionSanity performs the context-free well-formedness checks on
// a transaction.  These checks do not depend on account state, so they can be
// run on a transaction in isolation.
func CheckTransactionSanity(tx *types.Transaction) error {
	if tx.IsCoinBase() {
		// A coinbase carries no sender credentials.
		if len(tx.SenderKey) != 0 || len(tx.Signature) != 0 {
			return ruleError(ErrMalformedTx, "coinbase transaction "+
				"must not carry a sender key or signature")
		}
		if !tx.To.IsValid() {
			str := fmt.Sprintf("coinbase recipient address %q is "+
				"not valid", tx.To)
			return ruleError(ErrMalformedTx, str)
		}
		if tx.Amount > types.MaxAtoms {
			str := fmt.Sprintf("coinbase pays %d which is higher "+
				"than the max allowed of %d", tx.Amount,
				uint64(types.MaxAtoms))
			return ruleError(ErrMalformedTx, str)
		}
		return nil
	}

	if !tx.From.IsValid() {
		str := fmt.Sprintf("transaction sender address %q is not valid",
			tx.From)
		return ruleError(ErrMalformedTx, str)
	}
	if !tx.To.IsValid() {
		str := fmt.Sprintf("transaction recipient address %q is not valid",
			tx.To)
		return ruleError(ErrMalformedTx, str)
	}
	if tx.Amount == 0 {
		return ruleError(ErrMalformedTx, "transaction amount must be "+
			"greater than zero")
	}

	// Amount and fee are bounded by the maximum issuance so that no sum
	// of per-transaction values in a block can wrap a 64-bit accumulator.
	if tx.Amount > types.MaxAtoms {
		str := fmt.Sprintf("transaction amount of %d is higher than "+
			"the max allowed of %d", tx.Amount, uint64(types.MaxAtoms))
		return ruleError(ErrMalformedTx, str)
	}
	if tx.Fee > types.MaxAtoms {
		str := fmt.Sprintf("transaction fee of %d is higher than the "+
			"max allowed of %d", tx.Fee, uint64(types.MaxAtoms))
		return ruleError(ErrMalformedTx, str)
	}
	if total := tx.Amount + tx.Fee; total > types.MaxAtoms {
		str := fmt.Sprintf("transaction spends %d which is higher "+
			"than the max allowed of %d", total,
			uint64(types.MaxAtoms))
		return ruleError(ErrMalformedTx, str)
	}
	if tx.Nonce == 0 {
		return ruleError(ErrMalformedTx, "transaction nonce must be "+
			"greater than zero")
	}
	if len(tx.SenderKey) != ed25519.PublicKeySize {
		str := fmt.Sprintf("transaction sender key is %d bytes, want %d",
			len(tx.SenderKey), ed25519.PublicKeySize)
		return ruleError(ErrMalformedTx, str)
	}
	if len(tx.Signature) != ed25519.SignatureSize {
		str := fmt.Sprintf("transaction signature is %d bytes, want %d",
			len(tx.Signature), ed25519.SignatureSize)
		return ruleError(ErrMalformedTx, str)
	}
	return nil
}

// checkTransactionSignature ensures the transaction signature verifies
// against the embedded sender key over the signed payload and that the
// sender address is the one the key hashes to.  The second check stops a
// valid signature from being replayed under someone else's account.
func checkTransactionSignature(tx *types.Transaction, addrVersion byte) error {
	sigHash := tx.SigHash()
	if !ed25519.Verify(ed25519.PublicKey(tx.SenderKey), sigHash.Bytes(),
		tx.Signature) {
		return ruleError(ErrBadTxSignature, "transaction signature "+
			"does not verify against the sender key")
	}
	derived := types.NewAddressFromPubKey(tx.SenderKey, addrVersion)
	if !derived.IsEqual(tx.From) {
		str := fmt.Sprintf("sender key hashes to address %s, "+
			"transaction claims %s", derived, tx.From)
		return ruleError(ErrBadTxSignature, str)
	}
	return nil
}

// ValidateTransaction runs the full stateful validation sequence on a single
// non-coinbase transaction against the provided account view.  The checks run
// in a fixed order and the first failure wins: well-formedness, signature,
// nonce sequencing, then balance.  The view is not modified.
func ValidateTransaction(tx *types.Transaction, view *state.View, addrVersion byte) error {
	if tx.IsCoinBase() {
		return ruleError(ErrMalformedTx, "coinbase transactions may "+
			"only appear as the first transaction of a block")
	}
	if err := CheckTransactionSanity(tx); err != nil {
		return err
	}
	if err := checkTransactionSignature(tx, addrVersion); err != nil {
		return err
	}

	acct := view.Account(tx.From)
	if tx.Nonce != acct.Nonce+1 {
		str := fmt.Sprintf("transaction nonce %d for sender %s, "+
			"expected %d", tx.Nonce, tx.From, acct.Nonce+1)
		return ruleError(ErrNonceMismatch, str)
	}
	total := tx.Amount + tx.Fee
	if acct.Balance < total {
		str := fmt.Sprintf("sender %s has balance %d, transaction "+
			"spends %d", tx.From, acct.Balance, total)
		return ruleError(ErrInsufficientFunds, str)
	}
	return nil
}

// checkProofOfWork ensures the block header bits which indicate the target
// difficulty is in min/max range and that the block hash is less than the
// target difficulty as claimed.
//
// The flags modify the behavior of this function as follows:
//  - BFNoPoWCheck: The check to ensure the block hash is less than the target
//    difficulty is not performed.
func checkProofOfWork(header *types.BlockHeader, powLimit *big.Int, flags BehaviorFlags) error {
	// The target difficulty must be larger than zero.
	target := pow.CompactToBig(header.Difficulty)
	if target.Sign() <= 0 {
		str := fmt.Sprintf("block target difficulty of %064x is too low",
			target)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The target difficulty must be less than the maximum allowed.
	if target.Cmp(powLimit) > 0 {
		str := fmt.Sprintf("block target difficulty of %064x is "+
			"higher than max of %064x", target, powLimit)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The block hash must be less than the claimed target unless the flag
	// to avoid proof of work checks is set.
	if flags&BFNoPoWCheck != BFNoPoWCheck {
		blockHash := header.BlockHash()
		hashNum := pow.HashToBig(&blockHash)
		if hashNum.Cmp(target) > 0 {
			str := fmt.Sprintf("block hash of %064x is higher than "+
				"expected max of %064x", hashNum, target)
			return ruleError(ErrHighHash, str)
		}
	}
	return nil
}

// checkBlockSanity performs the context-free checks on a block: structural
// limits, coinbase placement, merkle commitment, per-transaction sanity and
// the proof of work.  Contextual checks that need the parent block or account
// state live in maybeAcceptBlock.
func checkBlockSanity(block *types.SerializedBlock, powLimit *big.Int, maxTxPerBlock int, flags BehaviorFlags) error {
	msgBlock := block.Block()
	header := &msgBlock.Header

	if err := checkProofOfWork(header, powLimit, flags); err != nil {
		return err
	}

	// A block must have at least one transaction, the coinbase.
	numTx := len(msgBlock.Transactions)
	if numTx == 0 {
		return ruleError(ErrNoTransactions, "block does not contain "+
			"any transactions")
	}
	if numTx > maxTxPerBlock {
		str := fmt.Sprintf("block contains %d transactions, limit %d",
			numTx, maxTxPerBlock)
		return ruleError(ErrTooManyTransactions, str)
	}

	// A block must not exceed the maximum allowed block payload when
	// serialized.
	serializedSize := msgBlock.SerializeSize()
	if serializedSize > types.MaxBlockPayload {
		str := fmt.Sprintf("serialized block is %d bytes, limit %d",
			serializedSize, types.MaxBlockPayload)
		return ruleError(ErrBlockTooBig, str)
	}

	// A block timestamp must not have a greater precision than one second
	// and must not be more than the allowed offset ahead of the current
	// time.
	if !header.Timestamp.Equal(time.Unix(header.Timestamp.Unix(), 0)) {
		str := fmt.Sprintf("block timestamp of %v has a higher "+
			"precision than one second", header.Timestamp)
		return ruleError(ErrInvalidTime, str)
	}
	maxTimestamp := time.Now().Add(time.Second * MaxTimeOffsetSeconds)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	// The first transaction in a block must be the coinbase and no other
	// transaction may be one.
	transactions := block.Transactions()
	if !transactions[0].Transaction().IsCoinBase() {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in "+
			"block is not the coinbase")
	}
	for i, tx := range transactions[1:] {
		if tx.Transaction().IsCoinBase() {
			str := fmt.Sprintf("block contains second coinbase at "+
				"index %d", i+1)
			return ruleError(ErrMultipleCoinbases, str)
		}
	}

	// Do some preliminary checks on each transaction to ensure they are
	// sane before continuing.
	for _, tx := range transactions {
		if err := CheckTransactionSanity(tx.Transaction()); err != nil {
			return err
		}
	}

	// Build the merkle tree and ensure the calculated root matches the
	// entry in the block header.  This also has the effect of caching all
	// of the transaction hashes in the block to speed up future hash
	// checks.
	calculatedTxRoot := merkle.CalcMerkleRoot(transactions)
	if !header.TxRoot.IsEqual(&calculatedTxRoot) {
		str := fmt.Sprintf("block transaction root is invalid: block "+
			"header indicates %v, but calculated value is %v",
			header.TxRoot, calculatedTxRoot)
		return ruleError(ErrBadTxRoot, str)
	}

	// Check for duplicate transactions.  This check will be fairly quick
	// since the transaction hashes are already cached due to building the
	// merkle tree above.
	existingTxHashes := make(map[hash.Hash]struct{}, len(transactions))
	for _, tx := range transactions {
		if _, exists := existingTxHashes[*tx.Hash()]; exists {
			str := fmt.Sprintf("block contains duplicate "+
				"transaction %v", tx.Hash())
			return ruleError(ErrDuplicateTx, str)
		}
		existingTxHashes[*tx.Hash()] = struct{}{}
	}

	return nil
}
