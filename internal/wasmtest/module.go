// Package wasmtest assembles small WebAssembly modules for tests.
package wasmtest

import (
	"sort"

	"github.com/runjs/runjs/wasmbin"
)

// FuncType is a function signature.
type FuncType struct {
	Params  []wasmbin.ValType
	Results []wasmbin.ValType
}

// Import is a function import.
type Import struct {
	Module string
	Name   string
	Type   uint32
}

// Func is a defined function. Body holds its instructions without the
// final end opcode.
type Func struct {
	Type   uint32
	Locals []wasmbin.ValType
	Body   []byte
}

// Module describes a module. Imported functions come first in the
// function index space.
type Module struct {
	Types     []FuncType
	Imports   []Import
	Memory    *wasmbin.Limits
	Globals   []wasmbin.Global
	Funcs     []Func
	Exports   []wasmbin.Export
	Start     *uint32
	Data      []wasmbin.DataSegment
	DataCount bool
	// Custom sections are appended after all others.
	Custom map[string][]byte
}

// Build encodes the module.
func (m Module) Build() []byte {
	mod := &wasmbin.Module{}
	add := func(id wasmbin.SectionID, payload []byte) {
		mod.Sections = append(mod.Sections, wasmbin.Section{ID: id, Payload: payload})
	}

	if len(m.Types) > 0 {
		p := wasmbin.AppendULEB128(nil, uint64(len(m.Types)))
		for _, t := range m.Types {
			p = append(p, 0x60)
			p = appendValTypes(p, t.Params)
			p = appendValTypes(p, t.Results)
		}
		add(wasmbin.SectionType, p)
	}

	if len(m.Imports) > 0 {
		p := wasmbin.AppendULEB128(nil, uint64(len(m.Imports)))
		for _, im := range m.Imports {
			p = wasmbin.AppendName(p, im.Module)
			p = wasmbin.AppendName(p, im.Name)
			p = append(p, byte(wasmbin.ExternFunc))
			p = wasmbin.AppendULEB128(p, uint64(im.Type))
		}
		add(wasmbin.SectionImport, p)
	}

	if len(m.Funcs) > 0 {
		p := wasmbin.AppendULEB128(nil, uint64(len(m.Funcs)))
		for _, f := range m.Funcs {
			p = wasmbin.AppendULEB128(p, uint64(f.Type))
		}
		add(wasmbin.SectionFunction, p)
	}

	if m.Memory != nil {
		add(wasmbin.SectionMemory, wasmbin.EncodeMemories([]wasmbin.Limits{*m.Memory}))
	}
	if len(m.Globals) > 0 {
		add(wasmbin.SectionGlobal, wasmbin.EncodeGlobals(m.Globals))
	}
	if len(m.Exports) > 0 {
		add(wasmbin.SectionExport, wasmbin.EncodeExports(m.Exports))
	}
	if m.Start != nil {
		add(wasmbin.SectionStart, wasmbin.EncodeU32(*m.Start))
	}
	if m.DataCount {
		add(wasmbin.SectionDataCount, wasmbin.EncodeU32(uint32(len(m.Data))))
	}

	if len(m.Funcs) > 0 {
		p := wasmbin.AppendULEB128(nil, uint64(len(m.Funcs)))
		for _, f := range m.Funcs {
			body := wasmbin.AppendULEB128(nil, uint64(len(f.Locals)))
			for _, l := range f.Locals {
				body = append(body, 0x01, byte(l))
			}
			body = append(body, f.Body...)
			body = append(body, 0x0b)
			p = wasmbin.AppendULEB128(p, uint64(len(body)))
			p = append(p, body...)
		}
		add(wasmbin.SectionCode, p)
	}

	if len(m.Data) > 0 {
		add(wasmbin.SectionData, wasmbin.EncodeData(m.Data))
	}

	names := make([]string, 0, len(m.Custom))
	for name := range m.Custom {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		add(wasmbin.SectionCustom, append(wasmbin.AppendName(nil, name), m.Custom[name]...))
	}

	return mod.Encode()
}

func appendValTypes(b []byte, ts []wasmbin.ValType) []byte {
	b = wasmbin.AppendULEB128(b, uint64(len(ts)))
	for _, t := range ts {
		b = append(b, byte(t))
	}
	return b
}

// Active returns an active data segment for memory 0 at offset.
func Active(offset int32, data []byte) wasmbin.DataSegment {
	return wasmbin.DataSegment{Offset: wasmbin.I32ConstExpr(offset), Init: data}
}

// MutableI32 returns a mutable i32 global initialized to v.
func MutableI32(v int32) wasmbin.Global {
	return wasmbin.Global{
		GlobalType: wasmbin.GlobalType{Type: wasmbin.ValI32, Mutable: true},
		Init:       wasmbin.I32ConstExpr(v),
	}
}

// ExportFunc exports function index idx as name.
func ExportFunc(name string, idx uint32) wasmbin.Export {
	return wasmbin.Export{Name: name, Kind: wasmbin.ExternFunc, Index: idx}
}

// ExportMemory exports memory 0 as name.
func ExportMemory(name string) wasmbin.Export {
	return wasmbin.Export{Name: name, Kind: wasmbin.ExternMemory}
}

// Pages returns limits with the given minimum.
func Pages(min uint64) *wasmbin.Limits {
	return &wasmbin.Limits{Min: min}
}
