// Package wasmbin reads and writes WebAssembly binaries at section level.
//
// Only the sections that preinitialization and optimization rewrite are
// decoded: imports, memories, globals, exports, start, data and data count.
// Every other section is carried through as raw bytes.
package wasmbin

import (
	"bytes"
	"errors"
	"fmt"
)

// SectionID identifies a section of a module.
type SectionID byte

const (
	SectionCustom    SectionID = 0
	SectionType      SectionID = 1
	SectionImport    SectionID = 2
	SectionFunction  SectionID = 3
	SectionTable     SectionID = 4
	SectionMemory    SectionID = 5
	SectionGlobal    SectionID = 6
	SectionExport    SectionID = 7
	SectionStart     SectionID = 8
	SectionElement   SectionID = 9
	SectionCode      SectionID = 10
	SectionData      SectionID = 11
	SectionDataCount SectionID = 12
	SectionTag       SectionID = 13
)

var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6d}
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// ErrNotWasm is returned for input that does not start with the Wasm
// magic number and version 1.
var ErrNotWasm = errors.New("wasmbin: not a WebAssembly 1.0 binary")

// Section is one section with its payload undecoded.
type Section struct {
	ID      SectionID
	Payload []byte
}

// CustomName returns the name of a custom section, or "" for other
// sections.
func (s Section) CustomName() string {
	if s.ID != SectionCustom {
		return ""
	}
	r := reader{b: s.Payload}
	name, err := r.name()
	if err != nil {
		return ""
	}
	return name
}

// Module is a parsed module: its sections in file order.
type Module struct {
	Sections []Section
}

// Parse splits b into sections. Payloads alias b.
func Parse(b []byte) (*Module, error) {
	if len(b) < 8 || !bytes.Equal(b[:4], magic) || !bytes.Equal(b[4:8], version) {
		return nil, ErrNotWasm
	}

	r := reader{b: b, off: 8}
	m := &Module{}
	for !r.done() {
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		if id > byte(SectionTag) {
			return nil, r.errorf("unknown section id %d", id)
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		payload, err := r.bytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", id, err)
		}
		m.Sections = append(m.Sections, Section{ID: SectionID(id), Payload: payload})
	}
	return m, nil
}

// Encode serializes the module.
func (m *Module) Encode() []byte {
	out := append(append([]byte{}, magic...), version...)
	for _, s := range m.Sections {
		out = append(out, byte(s.ID))
		out = AppendULEB128(out, uint64(len(s.Payload)))
		out = append(out, s.Payload...)
	}
	return out
}

// Section returns the first section with the given id.
func (m *Module) Section(id SectionID) (Section, bool) {
	for _, s := range m.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Replace swaps the payload of the section with the given id, or inserts
// the section after the known sections that precede it when the module
// has none.
func (m *Module) Replace(id SectionID, payload []byte) {
	for i, s := range m.Sections {
		if s.ID == id {
			m.Sections[i].Payload = payload
			return
		}
	}

	at := 0
	for i, s := range m.Sections {
		if s.ID != SectionCustom && order(s.ID) < order(id) {
			at = i + 1
		}
	}
	m.Sections = append(m.Sections, Section{})
	copy(m.Sections[at+1:], m.Sections[at:])
	m.Sections[at] = Section{ID: id, Payload: payload}
}

// Remove drops every section for which drop returns true.
func (m *Module) Remove(drop func(Section) bool) {
	kept := m.Sections[:0]
	for _, s := range m.Sections {
		if !drop(s) {
			kept = append(kept, s)
		}
	}
	m.Sections = kept
}

// order is the position of a known section in a valid module. Tag and data
// count sections are placed out of id order by the format.
func order(id SectionID) int {
	switch id {
	case SectionTag:
		return int(SectionMemory)*2 + 1
	case SectionDataCount:
		return int(SectionElement)*2 + 1
	default:
		return int(id) * 2
	}
}
