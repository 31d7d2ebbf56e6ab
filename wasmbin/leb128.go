package wasmbin

import (
	"errors"
	"fmt"
)

var errOverflow = errors.New("wasmbin: LEB128 overflow")

// AppendULEB128 appends the unsigned LEB128 encoding of v to b.
func AppendULEB128(b []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

// AppendSLEB128 appends the signed LEB128 encoding of v to b.
func AppendSLEB128(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0)
		if !done {
			c |= 0x80
		}
		b = append(b, c)
		if done {
			return b
		}
	}
}

// decodeULEB128 reads an unsigned value of at most bits bits.
func decodeULEB128(b []byte, bits uint) (uint64, int, error) {
	var (
		v     uint64
		shift uint
	)
	for i, c := range b {
		if shift >= bits {
			return 0, 0, errOverflow
		}
		v |= uint64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if bits < 64 && v>>bits != 0 {
				return 0, 0, errOverflow
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("wasmbin: truncated LEB128")
}

// decodeSLEB128 reads a signed value of at most bits bits.
func decodeSLEB128(b []byte, bits uint) (int64, int, error) {
	var (
		v     int64
		shift uint
	)
	for i, c := range b {
		if shift >= bits {
			return 0, 0, errOverflow
		}
		v |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				v |= -1 << shift
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("wasmbin: truncated LEB128")
}
