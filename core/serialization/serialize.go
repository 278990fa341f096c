// Copyright (c) 2025 The luna developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package serialization implements the canonical byte encoding used when
// hashing headers and transactions.  The encoding is fixed little-endian with
// length-prefixed variable fields, so a given structure always serializes to
// the same bytes on every platform.
package serialization

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/lunaproject/lunad/common/hash"
)

// littleEndian is a convenience variable since binary.LittleEndian is quite
// long.
var littleEndian = binary.LittleEndian

// WriteElements writes multiple items to w.  It is equivalent to calling
// WriteElement for each item.
func WriteElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := WriteElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteElement writes the little endian representation of element to w.
func WriteElement(w io.Writer, element interface{}) error {
	var scratch [8]byte
	switch e := element.(type) {
	case uint32:
		b := scratch[0:4]
		littleEndian.PutUint32(b, e)
		_, err := w.Write(b)
		return err

	case uint64:
		b := scratch[0:8]
		littleEndian.PutUint64(b, e)
		_, err := w.Write(b)
		return err

	case int64:
		b := scratch[0:8]
		littleEndian.PutUint64(b, uint64(e))
		_, err := w.Write(b)
		return err

	case time.Time:
		b := scratch[0:8]
		littleEndian.PutUint64(b, uint64(e.Unix()))
		_, err := w.Write(b)
		return err

	case *hash.Hash:
		_, err := w.Write(e[:])
		return err

	case hash.Hash:
		_, err := w.Write(e[:])
		return err

	case string:
		return WriteVarBytes(w, []byte(e))

	case []byte:
		return WriteVarBytes(w, e)
	}

	return fmt.Errorf("unsupported element type %T", element)
}

// WriteVarBytes writes a length-prefixed byte slice to w.
func WriteVarBytes(w io.Writer, b []byte) error {
	var scratch [4]byte
	littleEndian.PutUint32(scratch[:], uint32(len(b)))
	if _, err := w.Write(scratch[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
