// Copyright (c) 2025 The luna developers
// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateBlock indicates a block with the same hash already
	// exists.
	ErrDuplicateBlock ErrorCode = iota

	// ErrBlockTooBig indicates the serialized block size exceeds the
	// maximum allowed size.
	ErrBlockTooBig

	// ErrTooManyTransactions indicates the block contains more
	// transactions than are allowed.
	ErrTooManyTransactions

	// ErrNoTransactions indicates the block does not have at least one
	// transaction.  A valid block must have at least the coinbase
	// transaction.
	ErrNoTransactions

	// ErrFirstTxNotCoinbase indicates the first transaction in a block
	// is not a coinbase transaction.
	ErrFirstTxNotCoinbase

	// ErrMultipleCoinbases indicates a block contains more than one
	// coinbase transaction.
	ErrMultipleCoinbases

	// ErrBadTxRoot indicates the calculated transaction merkle root does
	// not match the expected value from the block header.
	ErrBadTxRoot

	// ErrDuplicateTx indicates a block contains an identical transaction
	// more than once.
	ErrDuplicateTx

	// ErrBadBlockHeight indicates the block height in the header does not
	// follow its parent.
	ErrBadBlockHeight

	// ErrInvalidTime indicates the time in the passed block has a
	// precision that is more than one second.  The consensus rules
	// require timestamps to have a maximum precision of one second.
	ErrInvalidTime

	// ErrTimeTooOld indicates the time is before its parent block's time.
	ErrTimeTooOld

	// ErrTimeTooNew indicates the time is too far in the future as
	// compared to the current time.
	ErrTimeTooNew

	// ErrUnexpectedDifficulty indicates specified bits do not align with
	// the expected value either because it doesn't match the calculated
	// value based on the difficulty retarget rules or it is out of the
	// valid range.
	ErrUnexpectedDifficulty

	// ErrHighHash indicates the block does not hash to a value which is
	// lower than the required target difficulty.
	ErrHighHash

	// ErrMalformedTx indicates a transaction failed the well-formedness
	// checks: missing sender or recipient, zero amount, or an invalid
	// address.
	ErrMalformedTx

	// ErrBadTxSignature indicates a transaction signature does not verify
	// against the sender's public key, or the public key does not map to
	// the sender address.
	ErrBadTxSignature

	// ErrNonceMismatch indicates a transaction nonce is not exactly one
	// greater than the sender's confirmed nonce, leaving a gap in the
	// sequence.
	ErrNonceMismatch

	// ErrInsufficientFunds indicates the sender's confirmed balance does
	// not cover the transaction amount plus fee.
	ErrInsufficientFunds

	// ErrDoubleSpend indicates a block carries transactions from one
	// sender whose nonces are not strictly sequential starting at the
	// sender's confirmed nonce, or a nonce that was already consumed.
	ErrDoubleSpend

	// ErrBadCoinbaseValue indicates the amount of a coinbase transaction
	// does not match the expected block subsidy plus collected fees.
	ErrBadCoinbaseValue

	// ErrStateCorruption indicates a serialized chain snapshot failed its
	// integrity check on reload.  This is the only condition the core
	// treats as unrecoverable; it is surfaced, never repaired.
	ErrStateCorruption
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:       "ErrDuplicateBlock",
	ErrBlockTooBig:          "ErrBlockTooBig",
	ErrTooManyTransactions:  "ErrTooManyTransactions",
	ErrNoTransactions:       "ErrNoTransactions",
	ErrFirstTxNotCoinbase:   "ErrFirstTxNotCoinbase",
	ErrMultipleCoinbases:    "ErrMultipleCoinbases",
	ErrBadTxRoot:            "ErrBadTxRoot",
	ErrDuplicateTx:          "ErrDuplicateTx",
	ErrBadBlockHeight:       "ErrBadBlockHeight",
	ErrInvalidTime:          "ErrInvalidTime",
	ErrTimeTooOld:           "ErrTimeTooOld",
	ErrTimeTooNew:           "ErrTimeTooNew",
	ErrUnexpectedDifficulty: "ErrUnexpectedDifficulty",
	ErrHighHash:             "ErrHighHash",
	ErrMalformedTx:          "ErrMalformedTx",
	ErrBadTxSignature:       "ErrBadTxSignature",
	ErrNonceMismatch:        "ErrNonceMismatch",
	ErrInsufficientFunds:    "ErrInsufficientFunds",
	ErrDoubleSpend:          "ErrDoubleSpend",
	ErrBadCoinbaseValue:     "ErrBadCoinbaseValue",
	ErrStateCorruption:      "ErrStateCorruption",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block or transaction failed due to one of the many
// validation rules.  The caller can use type assertions to determine if a
// failure was specifically due to a rule violation and access the ErrorCode
// field to ascertain the specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsRuleErrorCode returns whether err is a RuleError carrying the given code.
func IsRuleErrorCode(err error, c ErrorCode) bool {
	rerr, ok := err.(RuleError)
	return ok && rerr.ErrorCode == c
}
