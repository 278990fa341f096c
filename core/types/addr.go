// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/lunaproject/lunad/common/hash"
)

// AddressPrefix is the human-readable prefix carried by every luna address.
const AddressPrefix = "LUN_"

// addrIDSize is the length of the payload encoded into an address: a
// 20-byte public key hash.
const addrIDSize = 20

// Address is the string form of a luna account identifier: the AddressPrefix
// followed by the base58check encoding of a versioned public key hash.
type Address string

// NewAddressFromPubKey derives the address that corresponds to the passed
// serialized public key for the given network address version byte.
func NewAddressFromPubKey(serializedPubKey []byte, version byte) Address {
	pkHash := hash.Hash160(serializedPubKey)
	return Address(AddressPrefix + base58.CheckEncode(pkHash, version))
}

// DecodeAddress parses an address string, verifying the prefix and the
// base58check checksum.  It returns the embedded public key hash and address
// version.
func DecodeAddress(addr Address) ([]byte, byte, error) {
	s := string(addr)
	if !strings.HasPrefix(strings.ToUpper(s), AddressPrefix) {
		return nil, 0, fmt.Errorf("address %q missing %s prefix", s, AddressPrefix)
	}
	decoded, version, err := base58.CheckDecode(s[len(AddressPrefix):])
	if err != nil {
		return nil, 0, fmt.Errorf("address %q checksum mismatch: %v", s, err)
	}
	if len(decoded) != addrIDSize {
		return nil, 0, fmt.Errorf("address %q has a %d byte payload, want %d",
			s, len(decoded), addrIDSize)
	}
	return decoded, version, nil
}

// IsValid returns whether the address parses cleanly.
func (a Address) IsValid() bool {
	_, _, err := DecodeAddress(a)
	return err == nil
}

// Normalize strips surrounding quotes and whitespace and canonicalizes the
// prefix case.  The base58 payload is case sensitive and left untouched.
func (a Address) Normalize() Address {
	s := strings.Trim(string(a), `'" `)
	if len(s) >= len(AddressPrefix) &&
		strings.EqualFold(s[:len(AddressPrefix)], AddressPrefix) {
		s = AddressPrefix + s[len(AddressPrefix):]
	}
	return Address(s)
}

// IsEqual compares two addresses after normalization.
func (a Address) IsEqual(other Address) bool {
	return a.Normalize() == other.Normalize()
}

func (a Address) String() string {
	return string(a)
}
