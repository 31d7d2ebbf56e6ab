package wasmbin

import (
	"encoding/binary"
	"fmt"
)

// ExternKind is the kind of an import or export.
type ExternKind byte

const (
	ExternFunc   ExternKind = 0
	ExternTable  ExternKind = 1
	ExternMemory ExternKind = 2
	ExternGlobal ExternKind = 3
	ExternTag    ExternKind = 4
)

// ValType is a value type.
type ValType byte

const (
	ValI32       ValType = 0x7f
	ValI64       ValType = 0x7e
	ValF32       ValType = 0x7d
	ValF64       ValType = 0x7c
	ValV128      ValType = 0x7b
	ValFuncRef   ValType = 0x70
	ValExternRef ValType = 0x6f
)

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExternRef:
		return "externref"
	default:
		return fmt.Sprintf("valtype(0x%02x)", byte(v))
	}
}

// Numeric reports whether v is i32, i64, f32 or f64.
func (v ValType) Numeric() bool {
	switch v {
	case ValI32, ValI64, ValF32, ValF64:
		return true
	}
	return false
}

func readValType(r *reader) (ValType, error) {
	b, err := r.byte()
	if err != nil {
		return 0, err
	}
	switch v := ValType(b); v {
	case ValI32, ValI64, ValF32, ValF64, ValV128, ValFuncRef, ValExternRef:
		return v, nil
	default:
		return 0, r.errorf("unsupported value type 0x%02x", b)
	}
}

// Limits are the size bounds of a memory or table.
type Limits struct {
	Shared bool
	Is64   bool
	Min    uint64
	Max    uint64
	HasMax bool
}

func readLimits(r *reader) (Limits, error) {
	flags, err := r.byte()
	if err != nil {
		return Limits{}, err
	}
	if flags > 0x07 {
		return Limits{}, r.errorf("invalid limits flags 0x%02x", flags)
	}
	l := Limits{
		HasMax: flags&0x01 != 0,
		Shared: flags&0x02 != 0,
		Is64:   flags&0x04 != 0,
	}
	read := func() (uint64, error) {
		if l.Is64 {
			return r.u64()
		}
		v, err := r.u32()
		return uint64(v), err
	}
	if l.Min, err = read(); err != nil {
		return Limits{}, err
	}
	if l.HasMax {
		if l.Max, err = read(); err != nil {
			return Limits{}, err
		}
	}
	return l, nil
}

func appendLimits(b []byte, l Limits) []byte {
	var flags byte
	if l.HasMax {
		flags |= 0x01
	}
	if l.Shared {
		flags |= 0x02
	}
	if l.Is64 {
		flags |= 0x04
	}
	b = append(b, flags)
	b = AppendULEB128(b, l.Min)
	if l.HasMax {
		b = AppendULEB128(b, l.Max)
	}
	return b
}

// Import is one entry of the import section. Only the fields for its
// Kind are set.
type Import struct {
	Module string
	Name   string
	Kind   ExternKind

	TypeIndex uint32 // func, tag
	Limits    Limits // table, memory
	Global    GlobalType
}

// GlobalType is the type of a global.
type GlobalType struct {
	Type    ValType
	Mutable bool
}

func readGlobalType(r *reader) (GlobalType, error) {
	t, err := readValType(r)
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.byte()
	if err != nil {
		return GlobalType{}, err
	}
	if mut > 1 {
		return GlobalType{}, r.errorf("invalid mutability 0x%02x", mut)
	}
	return GlobalType{Type: t, Mutable: mut == 1}, nil
}

// DecodeImports decodes an import section payload.
func DecodeImports(payload []byte) ([]Import, error) {
	r := &reader{b: payload}
	var out []Import
	err := r.vec(func() error {
		var (
			im  Import
			err error
		)
		if im.Module, err = r.name(); err != nil {
			return err
		}
		if im.Name, err = r.name(); err != nil {
			return err
		}
		kind, err := r.byte()
		if err != nil {
			return err
		}
		im.Kind = ExternKind(kind)

		switch im.Kind {
		case ExternFunc:
			im.TypeIndex, err = r.u32()
		case ExternTable:
			if _, err = readValType(r); err == nil {
				im.Limits, err = readLimits(r)
			}
		case ExternMemory:
			im.Limits, err = readLimits(r)
		case ExternGlobal:
			im.Global, err = readGlobalType(r)
		case ExternTag:
			if _, err = r.byte(); err == nil {
				im.TypeIndex, err = r.u32()
			}
		default:
			err = r.errorf("unknown import kind %d", kind)
		}
		if err != nil {
			return err
		}
		out = append(out, im)
		return nil
	})
	return out, trailing(r, err)
}

// DecodeMemories decodes a memory section payload.
func DecodeMemories(payload []byte) ([]Limits, error) {
	r := &reader{b: payload}
	var out []Limits
	err := r.vec(func() error {
		l, err := readLimits(r)
		out = append(out, l)
		return err
	})
	return out, trailing(r, err)
}

// EncodeMemories encodes a memory section payload.
func EncodeMemories(mems []Limits) []byte {
	b := AppendULEB128(nil, uint64(len(mems)))
	for _, l := range mems {
		b = appendLimits(b, l)
	}
	return b
}

// Global is a defined global. Init is its constant initializer including
// the trailing end opcode.
type Global struct {
	GlobalType
	Init []byte
}

// DecodeGlobals decodes a global section payload.
func DecodeGlobals(payload []byte) ([]Global, error) {
	r := &reader{b: payload}
	var out []Global
	err := r.vec(func() error {
		gt, err := readGlobalType(r)
		if err != nil {
			return err
		}
		init, err := readConstExpr(r)
		if err != nil {
			return err
		}
		out = append(out, Global{GlobalType: gt, Init: init})
		return nil
	})
	return out, trailing(r, err)
}

// EncodeGlobals encodes a global section payload.
func EncodeGlobals(globals []Global) []byte {
	b := AppendULEB128(nil, uint64(len(globals)))
	for _, g := range globals {
		b = append(b, byte(g.Type))
		if g.Mutable {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		b = append(b, g.Init...)
	}
	return b
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

// DecodeExports decodes an export section payload.
func DecodeExports(payload []byte) ([]Export, error) {
	r := &reader{b: payload}
	var out []Export
	err := r.vec(func() error {
		name, err := r.name()
		if err != nil {
			return err
		}
		kind, err := r.byte()
		if err != nil {
			return err
		}
		if kind > byte(ExternTag) {
			return r.errorf("unknown export kind %d", kind)
		}
		idx, err := r.u32()
		if err != nil {
			return err
		}
		out = append(out, Export{Name: name, Kind: ExternKind(kind), Index: idx})
		return nil
	})
	return out, trailing(r, err)
}

// EncodeExports encodes an export section payload.
func EncodeExports(exports []Export) []byte {
	b := AppendULEB128(nil, uint64(len(exports)))
	for _, e := range exports {
		b = AppendName(b, e.Name)
		b = append(b, byte(e.Kind))
		b = AppendULEB128(b, uint64(e.Index))
	}
	return b
}

// DataSegment is one entry of the data section.
type DataSegment struct {
	Passive bool
	Memory  uint32
	// Offset is the constant offset expression of an active segment,
	// including the trailing end opcode.
	Offset []byte
	Init   []byte
}

// DecodeData decodes a data section payload.
func DecodeData(payload []byte) ([]DataSegment, error) {
	r := &reader{b: payload}
	var out []DataSegment
	err := r.vec(func() error {
		flag, err := r.u32()
		if err != nil {
			return err
		}
		var seg DataSegment
		switch flag {
		case 0:
			seg.Offset, err = readConstExpr(r)
		case 1:
			seg.Passive = true
		case 2:
			if seg.Memory, err = r.u32(); err == nil {
				seg.Offset, err = readConstExpr(r)
			}
		default:
			err = r.errorf("invalid data segment flag %d", flag)
		}
		if err != nil {
			return err
		}
		n, err := r.u32()
		if err != nil {
			return err
		}
		if seg.Init, err = r.bytes(int(n)); err != nil {
			return err
		}
		out = append(out, seg)
		return nil
	})
	return out, trailing(r, err)
}

// EncodeData encodes a data section payload.
func EncodeData(segments []DataSegment) []byte {
	b := AppendULEB128(nil, uint64(len(segments)))
	for _, s := range segments {
		switch {
		case s.Passive:
			b = append(b, 1)
		case s.Memory == 0:
			b = append(b, 0)
			b = append(b, s.Offset...)
		default:
			b = append(b, 2)
			b = AppendULEB128(b, uint64(s.Memory))
			b = append(b, s.Offset...)
		}
		b = AppendULEB128(b, uint64(len(s.Init)))
		b = append(b, s.Init...)
	}
	return b
}

// DecodeU32 decodes a payload holding a single index, as the start and
// data count sections do.
func DecodeU32(payload []byte) (uint32, error) {
	r := &reader{b: payload}
	v, err := r.u32()
	return v, trailing(r, err)
}

// EncodeU32 is the inverse of DecodeU32.
func EncodeU32(v uint32) []byte {
	return AppendULEB128(nil, uint64(v))
}

func trailing(r *reader, err error) error {
	if err != nil {
		return err
	}
	if !r.done() {
		return r.errorf("%d trailing bytes", len(r.b)-r.off)
	}
	return nil
}

// Constant expression opcodes.
const (
	opEnd       = 0x0b
	opGlobalGet = 0x23
	opI32Const  = 0x41
	opI64Const  = 0x42
	opF32Const  = 0x43
	opF64Const  = 0x44
	opI32Add    = 0x6a
	opI32Sub    = 0x6b
	opI32Mul    = 0x6c
	opI64Add    = 0x7c
	opI64Sub    = 0x7d
	opI64Mul    = 0x7e
	opRefNull   = 0xd0
	opRefFunc   = 0xd2
	opSIMD      = 0xfd
	simdV128    = 0x0c
)

// readConstExpr returns the bytes of a constant expression up to and
// including its end opcode.
func readConstExpr(r *reader) ([]byte, error) {
	start := r.off
	for {
		op, err := r.byte()
		if err != nil {
			return nil, err
		}
		switch op {
		case opEnd:
			return r.b[start:r.off], nil
		case opI32Const:
			_, err = r.s32()
		case opI64Const:
			_, err = r.s64()
		case opF32Const:
			_, err = r.bytes(4)
		case opF64Const:
			_, err = r.bytes(8)
		case opGlobalGet, opRefFunc:
			_, err = r.u32()
		case opRefNull:
			_, err = r.byte()
		case opI32Add, opI32Sub, opI32Mul, opI64Add, opI64Sub, opI64Mul:
		case opSIMD:
			var sub uint32
			if sub, err = r.u32(); err == nil {
				if sub != simdV128 {
					err = r.errorf("unsupported SIMD opcode %d in constant expression", sub)
				} else {
					_, err = r.bytes(16)
				}
			}
		default:
			err = r.errorf("unsupported opcode 0x%02x in constant expression", op)
		}
		if err != nil {
			return nil, err
		}
	}
}

// ConstExpr returns a constant initializer of type t whose value has the
// raw bits v, as reported by a runtime for a global of that type.
func ConstExpr(t ValType, v uint64) ([]byte, error) {
	var b []byte
	switch t {
	case ValI32:
		b = AppendSLEB128([]byte{opI32Const}, int64(int32(uint32(v))))
	case ValI64:
		b = AppendSLEB128([]byte{opI64Const}, int64(v))
	case ValF32:
		b = binary.LittleEndian.AppendUint32([]byte{opF32Const}, uint32(v))
	case ValF64:
		b = binary.LittleEndian.AppendUint64([]byte{opF64Const}, v)
	default:
		return nil, fmt.Errorf("wasmbin: no constant form for %s", t)
	}
	return append(b, opEnd), nil
}

// I32ConstExpr returns the expression `i32.const v; end`.
func I32ConstExpr(v int32) []byte {
	b := AppendSLEB128([]byte{opI32Const}, int64(v))
	return append(b, opEnd)
}
