// Package codec implements the canonical, byte-exact wire encoding used to
// content-address blocks, transactions, tensor tasks and claims. Encoding is
// little-endian and fixed; variable-length arrays are prefixed with an
// unsigned varint length, in the spirit of the Bitcoin-style compact size
// encoding.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

var errNonCanonicalVarInt = "non-canonical varint %x - discriminant %x must " +
	"be encoded using fewer bytes"

// ReadVarInt reads a variable length integer from r and returns it as a uint64.
func ReadVarInt(r io.Reader) (uint64, error) {
	var discriminantBuf [1]byte
	if _, err := io.ReadFull(r, discriminantBuf[:]); err != nil {
		return 0, err
	}
	discriminant := discriminantBuf[0]

	var rv uint64
	switch discriminant {
	case 0xff:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv = binary.LittleEndian.Uint64(buf[:])
		if rv < 0x100000000 {
			return 0, fmt.Errorf(errNonCanonicalVarInt, rv, discriminant)
		}
	case 0xfe:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv = uint64(binary.LittleEndian.Uint32(buf[:]))
		if rv < 0x10000 {
			return 0, fmt.Errorf(errNonCanonicalVarInt, rv, discriminant)
		}
	case 0xfd:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv = uint64(binary.LittleEndian.Uint16(buf[:]))
		if rv < 0xfd {
			return 0, fmt.Errorf(errNonCanonicalVarInt, rv, discriminant)
		}
	default:
		rv = uint64(discriminant)
	}
	return rv, nil
}

// WriteVarInt serializes val to w using a variable number of bytes
// depending on its magnitude.
func WriteVarInt(w io.Writer, val uint64) error {
	switch {
	case val < 0xfd:
		_, err := w.Write([]byte{byte(val)})
		return err
	case val <= math.MaxUint16:
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf)
		return err
	case val <= math.MaxUint32:
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf)
		return err
	default:
		buf := make([]byte, 9)
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], val)
		_, err := w.Write(buf)
		return err
	}
}

// VarIntSerializeSize returns the number of bytes it would take to encode
// val as a varint.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= math.MaxUint16:
		return 3
	case val <= math.MaxUint32:
		return 5
	default:
		return 9
	}
}

// WriteVarBytes writes the varint-prefixed length of b followed by b itself.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadVarBytes reads a varint-prefixed byte slice, rejecting lengths beyond
// maxAllowed to bound allocation from malformed or malicious input.
func ReadVarBytes(r io.Reader, maxAllowed uint64) ([]byte, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if length > maxAllowed {
		return nil, fmt.Errorf("varbytes length %d exceeds max allowed %d", length, maxAllowed)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
