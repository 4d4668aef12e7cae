// Package varint packs unsigned integers into the varint encoding used by the
// document envelope and the serialization format identifier.
package varint

import (
	"encoding/binary"
	"errors"
)

// Errors.
var (
	ErrBufferEmpty    = errors.New("varint: buffer empty")
	ErrBufferTooSmall = errors.New("varint: buffer too small")
	ErrOverflow       = errors.New("varint: value overflows target type")
)

// Pack8 packs a uint8 into a varint of one or two bytes.
func Pack8(n uint8) []byte {
	if n < 0x80 {
		return []byte{n}
	}
	return []byte{n, 0x01}
}

// Unpack8 unpacks a varint into a uint8 and returns the number of bytes read.
func Unpack8(blob []byte) (uint8, int, error) {
	switch {
	case len(blob) == 0:
		return 0, 0, ErrBufferEmpty
	case blob[0] < 0x80:
		return blob[0], 1, nil
	case len(blob) == 1:
		return 0, 0, ErrBufferTooSmall
	case blob[1] != 0x01:
		return 0, 0, ErrOverflow
	}
	return blob[0], 2, nil
}

// Pack64 packs a uint64 into a varint.
func Pack64(n uint64) []byte {
	return binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64), n)
}

// Unpack64 unpacks a varint into a uint64 and returns the number of bytes read.
func Unpack64(blob []byte) (uint64, int, error) {
	n, read := binary.Uvarint(blob)
	switch {
	case read == 0:
		return 0, 0, ErrBufferTooSmall
	case read < 0:
		return 0, 0, ErrOverflow
	}
	return n, read, nil
}
