package wasmbin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULEB128(t *testing.T) {
	tests := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
		{math.MaxUint32, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	}
	for _, tt := range tests {
		got := AppendULEB128(nil, tt.v)
		assert.Equal(t, tt.want, got)

		v, n, err := decodeULEB128(got, 64)
		require.NoError(t, err)
		assert.Equal(t, tt.v, v)
		assert.Equal(t, len(got), n)
	}
}

func TestSLEB128(t *testing.T) {
	tests := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-64, []byte{0x40}},
		{-123456, []byte{0xc0, 0xbb, 0x78}},
	}
	for _, tt := range tests {
		got := AppendSLEB128(nil, tt.v)
		assert.Equal(t, tt.want, got)

		v, n, err := decodeSLEB128(got, 64)
		require.NoError(t, err)
		assert.Equal(t, tt.v, v)
		assert.Equal(t, len(got), n)
	}
}

func TestLEB128Errors(t *testing.T) {
	_, _, err := decodeULEB128([]byte{0x80, 0x80}, 32)
	assert.Error(t, err, "truncated")

	_, _, err = decodeULEB128([]byte{0xff, 0xff, 0xff, 0xff, 0x1f}, 32)
	assert.Error(t, err, "exceeds 32 bits")

	_, _, err = decodeULEB128([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, 32)
	assert.Error(t, err, "too long")
}

func TestParseRejectsNonWasm(t *testing.T) {
	for _, b := range [][]byte{nil, []byte("\x00asm"), []byte("\x00asm\x02\x00\x00\x00"), []byte("hello world!")} {
		_, err := Parse(b)
		assert.ErrorIs(t, err, ErrNotWasm)
	}
}

func TestParseTruncatedSection(t *testing.T) {
	b := append(append([]byte{}, magic...), version...)
	b = append(b, byte(SectionType), 0x05, 0x01)
	_, err := Parse(b)
	assert.Error(t, err)
}

func sampleModule() *Module {
	return &Module{Sections: []Section{
		{ID: SectionType, Payload: []byte{0x01, 0x60, 0x00, 0x00}},
		{ID: SectionFunction, Payload: []byte{0x01, 0x00}},
		{ID: SectionMemory, Payload: EncodeMemories([]Limits{{Min: 1}})},
		{ID: SectionExport, Payload: EncodeExports([]Export{{Name: "f", Kind: ExternFunc}})},
		{ID: SectionCode, Payload: []byte{0x01, 0x02, 0x00, 0x0b}},
		{ID: SectionCustom, Payload: AppendName(nil, "name")},
	}}
}

func TestEncodeParseIdentity(t *testing.T) {
	encoded := sampleModule().Encode()

	m, err := Parse(encoded)
	require.NoError(t, err)
	assert.Equal(t, sampleModule().Sections, m.Sections)
	assert.Equal(t, encoded, m.Encode())
	assert.Equal(t, "name", m.Sections[5].CustomName())
	assert.Equal(t, "", m.Sections[0].CustomName())
}

func TestReplaceInsertsInOrder(t *testing.T) {
	m := sampleModule()

	m.Replace(SectionGlobal, EncodeGlobals(nil))
	m.Replace(SectionData, EncodeData(nil))
	m.Replace(SectionDataCount, EncodeU32(0))
	m.Replace(SectionStart, EncodeU32(0))
	m.Replace(SectionImport, []byte{0x00})

	var ids []SectionID
	for _, s := range m.Sections {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []SectionID{
		SectionType, SectionImport, SectionFunction, SectionMemory, SectionGlobal,
		SectionExport, SectionStart, SectionDataCount, SectionCode, SectionData, SectionCustom,
	}, ids)

	m.Replace(SectionStart, EncodeU32(3))
	s, ok := m.Section(SectionStart)
	require.True(t, ok)
	assert.Equal(t, []byte{0x03}, s.Payload)
}

func TestRemove(t *testing.T) {
	m := sampleModule()
	m.Remove(func(s Section) bool { return s.ID == SectionCustom })
	_, ok := m.Section(SectionCustom)
	assert.False(t, ok)
	assert.Len(t, m.Sections, 5)
}

func TestImports(t *testing.T) {
	var p []byte
	p = AppendULEB128(p, 4)
	p = AppendName(AppendName(p, "wasi_snapshot_preview1"), "fd_write")
	p = append(p, byte(ExternFunc), 0x02)
	p = AppendName(AppendName(p, "env"), "memory")
	p = append(p, byte(ExternMemory), 0x01, 0x01, 0x10)
	p = AppendName(AppendName(p, "env"), "sp")
	p = append(p, byte(ExternGlobal), byte(ValI32), 0x01)
	p = AppendName(AppendName(p, "env"), "table")
	p = append(p, byte(ExternTable), byte(ValFuncRef), 0x00, 0x02)

	imports, err := DecodeImports(p)
	require.NoError(t, err)
	require.Len(t, imports, 4)
	assert.Equal(t, Import{Module: "wasi_snapshot_preview1", Name: "fd_write", Kind: ExternFunc, TypeIndex: 2}, imports[0])
	assert.Equal(t, Limits{Min: 1, Max: 16, HasMax: true}, imports[1].Limits)
	assert.Equal(t, GlobalType{Type: ValI32, Mutable: true}, imports[2].Global)
	assert.Equal(t, Limits{Min: 2}, imports[3].Limits)
}

func TestMemoriesRoundTrip(t *testing.T) {
	mems := []Limits{{Min: 2}, {Min: 1, Max: 65536, HasMax: true}, {Min: 1, Max: 4, HasMax: true, Shared: true}}
	got, err := DecodeMemories(EncodeMemories(mems))
	require.NoError(t, err)
	assert.Equal(t, mems, got)
}

func TestGlobalsRoundTrip(t *testing.T) {
	f32, err := ConstExpr(ValF32, uint64(math.Float32bits(1.5)))
	require.NoError(t, err)

	globals := []Global{
		{GlobalType: GlobalType{Type: ValI32, Mutable: true}, Init: I32ConstExpr(-7)},
		{GlobalType: GlobalType{Type: ValF32}, Init: f32},
		{GlobalType: GlobalType{Type: ValI64}, Init: []byte{opGlobalGet, 0x00, opEnd}},
		{GlobalType: GlobalType{Type: ValI32}, Init: []byte{opI32Const, 0x01, opI32Const, 0x02, opI32Add, opEnd}},
	}
	got, err := DecodeGlobals(EncodeGlobals(globals))
	require.NoError(t, err)
	assert.Equal(t, globals, got)
}

func TestConstExpr(t *testing.T) {
	tests := []struct {
		name string
		t    ValType
		v    uint64
		want []byte
	}{
		{name: "i32 negative", t: ValI32, v: uint64(uint32(0xffffffff)), want: []byte{opI32Const, 0x7f, opEnd}},
		{name: "i32 large", t: ValI32, v: 1 << 20, want: append(AppendSLEB128([]byte{opI32Const}, 1<<20), opEnd)},
		{name: "i64", t: ValI64, v: 300, want: []byte{opI64Const, 0xac, 0x02, opEnd}},
		{name: "f64", t: ValF64, v: math.Float64bits(2), want: []byte{opF64Const, 0, 0, 0, 0, 0, 0, 0, 0x40, opEnd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConstExpr(tt.t, tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ConstExpr(ValV128, 0)
	assert.Error(t, err)
}

func TestConstExprRejectsNonConstant(t *testing.T) {
	var p []byte
	p = AppendULEB128(p, 1)
	p = append(p, byte(ValI32), 0x00, 0x20, 0x00, opEnd) // local.get 0

	_, err := DecodeGlobals(p)
	assert.Error(t, err)
}

func TestDataRoundTrip(t *testing.T) {
	segs := []DataSegment{
		{Offset: I32ConstExpr(1024), Init: []byte("hello")},
		{Passive: true, Init: []byte{1, 2, 3}},
		{Memory: 1, Offset: I32ConstExpr(0), Init: []byte{}},
	}
	got, err := DecodeData(EncodeData(segs))
	require.NoError(t, err)
	assert.Equal(t, segs, got)
}

func TestExportsRoundTrip(t *testing.T) {
	exports := []Export{
		{Name: "memory", Kind: ExternMemory},
		{Name: "start", Kind: ExternFunc, Index: 300},
		{Name: "g", Kind: ExternGlobal, Index: 2},
	}
	got, err := DecodeExports(EncodeExports(exports))
	require.NoError(t, err)
	assert.Equal(t, exports, got)
}

func TestTrailingBytes(t *testing.T) {
	_, err := DecodeU32([]byte{0x01, 0x02})
	assert.Error(t, err)

	v, err := DecodeU32(EncodeU32(129))
	require.NoError(t, err)
	assert.Equal(t, uint32(129), v)
}
