package runtime

import (
	"context"
	"io"
)

// ValueType represents WASM value types
type ValueType int

const (
	ValueTypeI32 ValueType = iota
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
	// ValueTypeOther covers vector and reference types.
	ValueTypeOther
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return "other"
	}
}

// HostFunc is a host function body. Parameters are read from stack and
// results are written back to it, starting at index 0.
type HostFunc func(ctx context.Context, mem Memory, stack []uint64)

// HostFunction represents a single host function definition
type HostFunction struct {
	Name        string
	Func        HostFunc
	ParamTypes  []ValueType
	ResultTypes []ValueType
}

// HostModule represents a collection of host functions that can be instantiated in any runtime
type HostModule struct {
	Name      string
	Functions []HostFunction
}

// NewHostModule creates a new host module with the given name
func NewHostModule(name string) *HostModule {
	return &HostModule{Name: name}
}

// AddFunction adds a host function to the module
func (hm *HostModule) AddFunction(name string, params, results []ValueType, fn HostFunc) *HostModule {
	hm.Functions = append(hm.Functions, HostFunction{
		Name:        name,
		Func:        fn,
		ParamTypes:  params,
		ResultTypes: results,
	})
	return hm
}

// InstanceOptions controls how a module is instantiated.
type InstanceOptions struct {
	// Stdin, Stdout and Stderr, when any is set, select the runtime's own
	// WASI implementation wired to these streams; unset streams are empty.
	// When all are nil the process's stdio is passed through.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Deterministic keeps the guest's clocks and random source fixed. It
	// only applies when streams are set.
	Deterministic bool

	// StartFunctions are called in order during instantiation. None are
	// called when empty.
	StartFunctions []string
}

// PassThrough reports whether the process's stdio is handed to the guest.
func (o InstanceOptions) PassThrough() bool {
	return o.Stdin == nil && o.Stdout == nil && o.Stderr == nil
}

// Mode selects how a runtime executes code.
type Mode string

const (
	ModeInterpreter Mode = "interpreter"
	ModeCompiler    Mode = "compiler"
)

// Config selects and configures a runtime.
type Config struct {
	// Type names a registered runtime. Defaults to "wazero".
	Type string `toml:"type"`
	Mode Mode   `toml:"mode"`
}
