// Package mem moves byte buffers across the guest/host boundary.
package mem

import "unsafe"

// BufLimit is the capacity, in bytes, of a buffer handed to the host.
type BufLimit = uint32

const readBufLimit BufLimit = 2048

// readBuf is reused for results that fit, which is the common case.
var readBuf = make([]byte, readBufLimit)

// GetBytes calls fn with a guest buffer. fn writes at most limit bytes and
// returns the full length of the value; when that is larger than limit,
// GetBytes allocates a buffer of that size and calls fn again.
func GetBytes(fn func(ptr uint32, limit BufLimit) (len uint32)) []byte {
	return getBytes(readBuf, func(b []byte) uint32 {
		return fn(SliceToPtr(b), BufLimit(len(b)))
	})
}

func getBytes(scratch []byte, fn func(b []byte) uint32) []byte {
	size := fn(scratch)
	if size == 0 {
		return nil
	}
	if size <= uint32(len(scratch)) {
		out := make([]byte, size)
		copy(out, scratch)
		return out
	}

	buf := make([]byte, size)
	_ = fn(buf)
	return buf
}

// BytesToPtr returns the address and length of b. The caller must keep b
// alive until the host has read it.
func BytesToPtr(b []byte) (ptr, size uint32) {
	if len(b) == 0 {
		return 0, 0
	}
	return SliceToPtr(b), uint32(len(b))
}

// StringToPtr is BytesToPtr for strings.
func StringToPtr(s string) (ptr, size uint32) {
	if s == "" {
		return 0, 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s)))), uint32(len(s))
}

func SliceToPtr(b []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
}
