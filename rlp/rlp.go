// Package rlp implements Recursive Length Prefix encoding and decoding
// for the item kinds EVM transaction serialization needs: byte strings,
// unsigned integers and nested lists.
package rlp

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrNegativeBigInt is returned when a negative big.Int is passed to Encode.
	ErrNegativeBigInt = errors.New("rlp: cannot encode negative big.Int")

	// ErrUnsupportedType is returned when Encode receives a value outside the
	// supported item kinds. This signals a programming error in the caller,
	// not bad user input.
	ErrUnsupportedType = errors.New("rlp: unsupported item type")

	errShortInput   = errors.New("rlp: input too short")
	errTrailing     = errors.New("rlp: trailing bytes after item")
	errNonCanonical = errors.New("rlp: non-canonical encoding")
)

// Encode serializes item according to the RLP rules.
//
// Supported item kinds:
//   - []byte and string: byte strings. A single byte below 0x80 encodes as
//     itself, short strings get a 0x80+len prefix, long strings a 0xb7+lenOfLen
//     header followed by the big-endian length.
//   - uint, uint64 and *big.Int: minimal big-endian byte strings. Zero encodes
//     as the empty string (0x80). A nil *big.Int is treated as zero.
//   - []any (recursively) and [][]byte: lists with a 0xc0+len or 0xf7+lenOfLen
//     header over the concatenated item payload.
//
// Any other type returns ErrUnsupportedType.
func Encode(item any) ([]byte, error) {
	return appendItem(nil, item)
}

// EncodeList serializes items as a single RLP list.
func EncodeList(items ...any) ([]byte, error) {
	return appendItem(nil, items)
}

func appendItem(dst []byte, item any) ([]byte, error) {
	switch v := item.(type) {
	case []byte:
		return appendBytes(dst, v), nil
	case string:
		return appendBytes(dst, []byte(v)), nil
	case uint:
		return appendBytes(dst, uintBytes(uint64(v))), nil
	case uint64:
		return appendBytes(dst, uintBytes(v)), nil
	case *big.Int:
		b, err := BigIntBytes(v)
		if err != nil {
			return nil, err
		}
		return appendBytes(dst, b), nil
	case []any:
		return appendList(dst, v)
	case [][]byte:
		items := make([]any, len(v))
		for i, b := range v {
			items[i] = b
		}
		return appendList(dst, items)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, item)
	}
}

func appendList(dst []byte, items []any) ([]byte, error) {
	var payload []byte
	for _, it := range items {
		var err error
		payload, err = appendItem(payload, it)
		if err != nil {
			return nil, err
		}
	}
	dst = appendHeader(dst, 0xc0, len(payload))
	return append(dst, payload...), nil
}

func appendBytes(dst, b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return append(dst, b[0])
	}
	dst = appendHeader(dst, 0x80, len(b))
	return append(dst, b...)
}

// appendHeader writes the length header for a string (base 0x80) or a
// list (base 0xc0) payload of n bytes.
func appendHeader(dst []byte, base byte, n int) []byte {
	if n <= 55 {
		return append(dst, base+byte(n))
	}
	lenBytes := uintBytes(uint64(n))
	dst = append(dst, base+55+byte(len(lenBytes)))
	return append(dst, lenBytes...)
}

// uintBytes returns the minimal big-endian representation of v.
// Zero yields an empty slice.
func uintBytes(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var buf [8]byte
	i := 8
	for v > 0 {
		i--
		buf[i] = byte(v)
		v >>= 8
	}
	return buf[i:]
}

// BigIntBytes returns the minimal big-endian representation of v, treating
// nil as zero. Negative values return ErrNegativeBigInt.
func BigIntBytes(v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegativeBigInt
	}
	if v.Sign() == 0 {
		return nil, nil
	}
	return v.Bytes(), nil
}

// Decode parses a single RLP item and returns it as []byte for byte strings
// or []any for lists (with the same leaf convention recursively). The input
// must contain exactly one item; trailing bytes are an error, as are the
// non-canonical encodings (padded lengths, single bytes wrapped in a string
// header).
func Decode(data []byte) (any, error) {
	item, rest, err := decodeItem(data)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, errTrailing
	}
	return item, nil
}

func decodeItem(data []byte) (any, []byte, error) {
	if len(data) == 0 {
		return nil, nil, errShortInput
	}
	prefix := data[0]
	switch {
	case prefix < 0x80:
		return []byte{prefix}, data[1:], nil

	case prefix <= 0xb7:
		size := int(prefix - 0x80)
		if len(data) < 1+size {
			return nil, nil, errShortInput
		}
		if size == 1 && data[1] < 0x80 {
			return nil, nil, fmt.Errorf("%w: single byte below 0x80 must encode as itself", errNonCanonical)
		}
		return copyBytes(data[1 : 1+size]), data[1+size:], nil

	case prefix <= 0xbf:
		size, rest, err := readLongLength(data, prefix-0xb7)
		if err != nil {
			return nil, nil, err
		}
		if len(rest) < size {
			return nil, nil, errShortInput
		}
		return copyBytes(rest[:size]), rest[size:], nil

	case prefix <= 0xf7:
		size := int(prefix - 0xc0)
		if len(data) < 1+size {
			return nil, nil, errShortInput
		}
		items, err := decodeListPayload(data[1 : 1+size])
		if err != nil {
			return nil, nil, err
		}
		return items, data[1+size:], nil

	default:
		size, rest, err := readLongLength(data, prefix-0xf7)
		if err != nil {
			return nil, nil, err
		}
		if len(rest) < size {
			return nil, nil, errShortInput
		}
		items, err := decodeListPayload(rest[:size])
		if err != nil {
			return nil, nil, err
		}
		return items, rest[size:], nil
	}
}

// readLongLength reads a lenOfLen-byte big-endian payload length following
// the header byte and enforces canonical form: no leading zero byte and a
// value that actually required the long form.
func readLongLength(data []byte, lenOfLen byte) (int, []byte, error) {
	n := int(lenOfLen)
	if len(data) < 1+n {
		return 0, nil, errShortInput
	}
	lenBytes := data[1 : 1+n]
	if lenBytes[0] == 0 {
		return 0, nil, fmt.Errorf("%w: length has leading zero", errNonCanonical)
	}
	var size uint64
	for _, b := range lenBytes {
		if size > (1<<56)-1 {
			return 0, nil, fmt.Errorf("rlp: length overflow")
		}
		size = size<<8 | uint64(b)
	}
	if size <= 55 {
		return 0, nil, fmt.Errorf("%w: long form used for short payload", errNonCanonical)
	}
	return int(size), data[1+n:], nil
}

func decodeListPayload(payload []byte) ([]any, error) {
	items := []any{}
	for len(payload) > 0 {
		item, rest, err := decodeItem(payload)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		payload = rest
	}
	return items, nil
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
