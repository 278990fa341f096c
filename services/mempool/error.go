// Copyright (c) 2025 The luna developers
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/lunaproject/lunad/core/blockchain"
)

// RejectCode represents the reason a transaction was refused admission to
// the pool.
type RejectCode uint8

// These constants define the various supported reject codes.
const (
	RejectInvalid RejectCode = iota
	RejectDuplicate
	RejectNonstandard
	RejectInsufficientFee
	RejectPoolFull
)

// Map of reject codes back to strings for pretty printing.
var rejectCodeStrings = map[RejectCode]string{
	RejectInvalid:         "REJECT_INVALID",
	RejectDuplicate:       "REJECT_DUPLICATE",
	RejectNonstandard:     "REJECT_NONSTANDARD",
	RejectInsufficientFee: "REJECT_INSUFFICIENTFEE",
	RejectPoolFull:        "REJECT_POOLFULL",
}

// String returns the RejectCode in human-readable form.
func (code RejectCode) String() string {
	if s, ok := rejectCodeStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown RejectCode (%d)", uint8(code))
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a transaction failed due to one of the many validation rules.
// The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and use the Err field to access the
// underlying error, which will be either a TxRuleError or a
// blockchain.RuleError.
type RuleError struct {
	Err error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.Err == nil {
		return "<nil>"
	}
	return e.Err.Error()
}

// TxRuleError identifies a rule violation related to a transaction.  It is
// used to indicate that processing of a transaction failed due to one of the
// many validation rules.
type TxRuleError struct {
	RejectCode  RejectCode
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e TxRuleError) Error() string {
	return e.Description
}

// txRuleError creates an underlying TxRuleError with the given a set of
// arguments and returns a RuleError that encapsulates it.
func txRuleError(c RejectCode, desc string) RuleError {
	return RuleError{
		Err: TxRuleError{RejectCode: c, Description: desc},
	}
}

// chainRuleError returns a RuleError that encapsulates the given
// blockchain.RuleError.
func chainRuleError(chainErr blockchain.RuleError) RuleError {
	return RuleError{
		Err: chainErr,
	}
}

// IsErrorCode reports whether the passed error wraps a TxRuleError with the
// given reject code.
func IsErrorCode(err error, c RejectCode) bool {
	rerr, ok := err.(RuleError)
	if !ok {
		return false
	}
	txErr, ok := rerr.Err.(TxRuleError)
	return ok && txErr.RejectCode == c
}

// wrapChainError converts the passed error, which is expected to have come
// from blockchain validation, into a mempool rule error.  Non-rule errors
// pass through unchanged so unexpected failures stay loud.
func wrapChainError(err error) error {
	if cerr, ok := err.(blockchain.RuleError); ok {
		return chainRuleError(cerr)
	}
	return err
}
