package snapshot

import (
	"fmt"
	"strconv"

	"github.com/runjs/runjs/wasmbin"
)

const globalExportPrefix = "__runjs_global_"

// layout is what the snapshot needs to know about a module.
type layout struct {
	module *wasmbin.Module

	importedGlobals int
	globals         []wasmbin.Global
	// mutable holds the positions in globals of the mutable globals.
	mutable []int

	memory       *wasmbin.Limits
	exports      []wasmbin.Export
	hasDataCount bool
}

// inspect parses binary and checks it can be snapshotted.
func inspect(binary []byte) (*layout, error) {
	m, err := wasmbin.Parse(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	l := &layout{module: m}

	if s, ok := m.Section(wasmbin.SectionImport); ok {
		imports, err := wasmbin.DecodeImports(s.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: import section: %w", ErrUnsupported, err)
		}
		for _, im := range imports {
			switch im.Kind {
			case wasmbin.ExternMemory:
				return nil, fmt.Errorf("%w: imported memory %s.%s", ErrUnsupported, im.Module, im.Name)
			case wasmbin.ExternGlobal:
				l.importedGlobals++
			}
		}
	}

	if s, ok := m.Section(wasmbin.SectionMemory); ok {
		mems, err := wasmbin.DecodeMemories(s.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: memory section: %w", ErrUnsupported, err)
		}
		switch {
		case len(mems) > 1:
			return nil, fmt.Errorf("%w: %d memories", ErrUnsupported, len(mems))
		case len(mems) == 1 && mems[0].Is64:
			return nil, fmt.Errorf("%w: 64-bit memory", ErrUnsupported)
		case len(mems) == 1 && mems[0].Shared:
			return nil, fmt.Errorf("%w: shared memory", ErrUnsupported)
		case len(mems) == 1:
			l.memory = &mems[0]
		}
	}

	if s, ok := m.Section(wasmbin.SectionGlobal); ok {
		if l.globals, err = wasmbin.DecodeGlobals(s.Payload); err != nil {
			return nil, fmt.Errorf("%w: global section: %w", ErrUnsupported, err)
		}
		for i, g := range l.globals {
			if !g.Mutable {
				continue
			}
			if !g.Type.Numeric() {
				return nil, fmt.Errorf("%w: mutable %s global %d", ErrUnsupported, g.Type, l.importedGlobals+i)
			}
			l.mutable = append(l.mutable, i)
		}
	}

	if s, ok := m.Section(wasmbin.SectionExport); ok {
		if l.exports, err = wasmbin.DecodeExports(s.Payload); err != nil {
			return nil, fmt.Errorf("%w: export section: %w", ErrUnsupported, err)
		}
	}

	if s, ok := m.Section(wasmbin.SectionData); ok {
		segs, err := wasmbin.DecodeData(s.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: data section: %w", ErrUnsupported, err)
		}
		for i, seg := range segs {
			if seg.Passive {
				return nil, fmt.Errorf("%w: passive data segment %d", ErrUnsupported, i)
			}
		}
	}
	_, l.hasDataCount = m.Section(wasmbin.SectionDataCount)

	return l, nil
}

func globalExportName(i int) string {
	return globalExportPrefix + strconv.Itoa(i)
}

func (l *layout) exported(name string) bool {
	for _, e := range l.exports {
		if e.Name == name && e.Kind == wasmbin.ExternFunc {
			return true
		}
	}
	return false
}

// instrument returns a copy of the module that also exports every mutable
// defined global.
func (l *layout) instrument() []byte {
	m := &wasmbin.Module{Sections: append([]wasmbin.Section(nil), l.module.Sections...)}

	exports := append([]wasmbin.Export(nil), l.exports...)
	for _, i := range l.mutable {
		exports = append(exports, wasmbin.Export{
			Name:  globalExportName(i),
			Kind:  wasmbin.ExternGlobal,
			Index: uint32(l.importedGlobals + i),
		})
	}
	m.Replace(wasmbin.SectionExport, wasmbin.EncodeExports(exports))
	return m.Encode()
}

// state is what initialization left behind.
type state struct {
	memory  []byte
	globals map[int]uint64
}

// rewrite returns the original module with st baked in. The start
// function and the removed exports will not be called again.
func (l *layout) rewrite(st state, removeExports []string, maxSegments int) ([]byte, error) {
	m := &wasmbin.Module{Sections: append([]wasmbin.Section(nil), l.module.Sections...)}

	if len(l.mutable) > 0 {
		globals := append([]wasmbin.Global(nil), l.globals...)
		for _, i := range l.mutable {
			init, err := wasmbin.ConstExpr(globals[i].Type, st.globals[i])
			if err != nil {
				return nil, err
			}
			globals[i].Init = init
		}
		m.Replace(wasmbin.SectionGlobal, wasmbin.EncodeGlobals(globals))
	}

	var segs []wasmbin.DataSegment
	if l.memory != nil {
		mem := *l.memory
		if pages := uint64(len(st.memory)) / pageSize; pages > mem.Min {
			mem.Min = pages
		}
		m.Replace(wasmbin.SectionMemory, wasmbin.EncodeMemories([]wasmbin.Limits{mem}))
		segs = dataSegments(st.memory, maxSegments)
	}
	if len(segs) > 0 {
		m.Replace(wasmbin.SectionData, wasmbin.EncodeData(segs))
	} else {
		m.Remove(func(s wasmbin.Section) bool { return s.ID == wasmbin.SectionData })
	}
	if l.hasDataCount {
		m.Replace(wasmbin.SectionDataCount, wasmbin.EncodeU32(uint32(len(segs))))
	}

	exports := make([]wasmbin.Export, 0, len(l.exports))
	for _, e := range l.exports {
		if e.Kind == wasmbin.ExternFunc && contains(removeExports, e.Name) {
			continue
		}
		exports = append(exports, e)
	}
	if len(l.exports) > 0 {
		m.Replace(wasmbin.SectionExport, wasmbin.EncodeExports(exports))
	}

	m.Remove(func(s wasmbin.Section) bool { return s.ID == wasmbin.SectionStart })
	return m.Encode(), nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
