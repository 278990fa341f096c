// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package types

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"
)

func TestAddressRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	assert.Nil(t, err)

	addr := NewAddressFromPubKey(pub, 0x27)
	assert.True(t, addr.IsValid())

	payload, version, err := DecodeAddress(addr)
	assert.Nil(t, err)
	assert.Equal(t, byte(0x27), version)
	assert.Equal(t, addrIDSize, len(payload))

	// The same key under a different version byte yields a different
	// address.
	other := NewAddressFromPubKey(pub, 0x17)
	assert.False(t, addr.IsEqual(other))
}

func TestDecodeAddressRejects(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	assert.Nil(t, err)
	addr := NewAddressFromPubKey(pub, 0x27)

	// Missing prefix.
	_, _, err = DecodeAddress(addr[len(AddressPrefix):])
	assert.NotNil(t, err)

	// Corrupted checksum: flip a payload character.
	raw := []byte(addr)
	last := len(raw) - 1
	if raw[last] == 'x' {
		raw[last] = 'y'
	} else {
		raw[last] = 'x'
	}
	_, _, err = DecodeAddress(Address(raw))
	assert.NotNil(t, err)
}

func TestAddressNormalize(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	assert.Nil(t, err)
	addr := NewAddressFromPubKey(pub, 0x27)

	quoted := Address(`"` + string(addr) + `" `)
	assert.Equal(t, addr, quoted.Normalize())
	assert.True(t, addr.IsEqual(quoted))

	// Prefix case is canonicalized, payload case is preserved.
	lowerPrefix := Address("lun_" + string(addr[len(AddressPrefix):]))
	assert.Equal(t, addr, lowerPrefix.Normalize())
}
