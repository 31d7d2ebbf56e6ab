package mem

import (
	"bytes"
	"testing"
)

// writer returns a host stand-in that copies value into the buffer it is
// given and reports the full length.
func writer(value []byte, calls *int) func(b []byte) uint32 {
	return func(b []byte) uint32 {
		*calls++
		copy(b, value)
		return uint32(len(value))
	}
}

func TestGetBytesFits(t *testing.T) {
	var calls int
	scratch := make([]byte, 16)
	got := getBytes(scratch, writer([]byte("hello"), &calls))

	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("getBytes = %q, want %q", got, "hello")
	}
	if calls != 1 {
		t.Fatalf("host called %d times, want 1", calls)
	}

	scratch[0] = 'X'
	if got[0] != 'h' {
		t.Fatal("result aliases the scratch buffer")
	}
}

func TestGetBytesGrows(t *testing.T) {
	var calls int
	value := bytes.Repeat([]byte{0xab}, 40)
	got := getBytes(make([]byte, 16), writer(value, &calls))

	if !bytes.Equal(got, value) {
		t.Fatalf("getBytes returned %d bytes, want %d", len(got), len(value))
	}
	if calls != 2 {
		t.Fatalf("host called %d times, want 2", calls)
	}
}

func TestGetBytesEmpty(t *testing.T) {
	var calls int
	if got := getBytes(make([]byte, 16), writer(nil, &calls)); got != nil {
		t.Fatalf("getBytes = %v, want nil", got)
	}
}

func TestBytesToPtrEmpty(t *testing.T) {
	if ptr, size := BytesToPtr(nil); ptr != 0 || size != 0 {
		t.Fatalf("BytesToPtr(nil) = %d, %d", ptr, size)
	}
	if ptr, size := StringToPtr(""); ptr != 0 || size != 0 {
		t.Fatalf("StringToPtr(\"\") = %d, %d", ptr, size)
	}
	if _, size := StringToPtr("abc"); size != 3 {
		t.Fatalf("StringToPtr size = %d, want 3", size)
	}
}
