package wasmtest

import "github.com/runjs/runjs/wasmbin"

// Code concatenates instruction sequences.
func Code(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func I32Const(v int32) []byte {
	return wasmbin.AppendSLEB128([]byte{0x41}, int64(v))
}

func I64Const(v int64) []byte {
	return wasmbin.AppendSLEB128([]byte{0x42}, v)
}

func Call(idx uint32) []byte {
	return wasmbin.AppendULEB128([]byte{0x10}, uint64(idx))
}

func LocalGet(idx uint32) []byte {
	return wasmbin.AppendULEB128([]byte{0x20}, uint64(idx))
}

func LocalSet(idx uint32) []byte {
	return wasmbin.AppendULEB128([]byte{0x21}, uint64(idx))
}

func GlobalGet(idx uint32) []byte {
	return wasmbin.AppendULEB128([]byte{0x23}, uint64(idx))
}

func GlobalSet(idx uint32) []byte {
	return wasmbin.AppendULEB128([]byte{0x24}, uint64(idx))
}

// I32Store stores an i32 at the address on the stack plus offset.
func I32Store(offset uint32) []byte {
	return wasmbin.AppendULEB128([]byte{0x36, 0x02}, uint64(offset))
}

// I32Store8 stores the low byte of an i32.
func I32Store8(offset uint32) []byte {
	return wasmbin.AppendULEB128([]byte{0x3a, 0x00}, uint64(offset))
}

// I32Load8U loads an unsigned byte from the address on the stack plus
// offset.
func I32Load8U(offset uint32) []byte {
	return wasmbin.AppendULEB128([]byte{0x2d, 0x00}, uint64(offset))
}

// If opens a block without results that runs when the condition is
// non-zero. Close it with End.
var If = []byte{0x04, 0x40}

var (
	End         = []byte{0x0b}
	I32Eq       = []byte{0x46}
	Drop        = []byte{0x1a}
	Unreachable = []byte{0x00}
	I32Add      = []byte{0x6a}
	// MemoryGrow grows memory 0 by the page count on the stack.
	MemoryGrow = []byte{0x40, 0x00}
)

// FdWrite writes len bytes at ptr to fd through the WASI import at index
// fdWrite, using scratch (16 bytes) for the iovec and result. It leaves
// nothing on the stack.
func FdWrite(fdWrite uint32, fd, ptr, length, scratch int32) []byte {
	return Code(
		I32Const(scratch), I32Const(ptr), I32Store(0),
		I32Const(scratch), I32Const(length), I32Store(4),
		I32Const(fd), I32Const(scratch), I32Const(1), I32Const(scratch+8), Call(fdWrite), Drop,
	)
}
