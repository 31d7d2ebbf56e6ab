package wasmbin

import (
	"fmt"
	"unicode/utf8"
)

// reader walks a section payload.
type reader struct {
	b   []byte
	off int
}

func (r *reader) done() bool { return r.off >= len(r.b) }

func (r *reader) errorf(format string, args ...any) error {
	return fmt.Errorf("wasmbin: offset %d: %s", r.off, fmt.Sprintf(format, args...))
}

func (r *reader) byte() (byte, error) {
	if r.done() {
		return 0, r.errorf("unexpected end of data")
	}
	c := r.b[r.off]
	r.off++
	return c, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || len(r.b)-r.off < n {
		return nil, r.errorf("need %d bytes, have %d", n, len(r.b)-r.off)
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) u32() (uint32, error) {
	v, n, err := decodeULEB128(r.b[r.off:], 32)
	if err != nil {
		return 0, r.errorf("%v", err)
	}
	r.off += n
	return uint32(v), nil
}

func (r *reader) u64() (uint64, error) {
	v, n, err := decodeULEB128(r.b[r.off:], 64)
	if err != nil {
		return 0, r.errorf("%v", err)
	}
	r.off += n
	return v, nil
}

func (r *reader) s32() (int32, error) {
	v, n, err := decodeSLEB128(r.b[r.off:], 32)
	if err != nil {
		return 0, r.errorf("%v", err)
	}
	r.off += n
	return int32(v), nil
}

func (r *reader) s64() (int64, error) {
	v, n, err := decodeSLEB128(r.b[r.off:], 64)
	if err != nil {
		return 0, r.errorf("%v", err)
	}
	r.off += n
	return v, nil
}

func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", r.errorf("name is not valid UTF-8")
	}
	return string(b), nil
}

// vec reads a count followed by that many elements.
func (r *reader) vec(each func() error) error {
	n, err := r.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		if err := each(); err != nil {
			return err
		}
	}
	return nil
}

// AppendName appends a length-prefixed UTF-8 name.
func AppendName(b []byte, s string) []byte {
	b = AppendULEB128(b, uint64(len(s)))
	return append(b, s...)
}
