// Package runtime provides an abstraction layer for WebAssembly runtime engines.
package runtime

import "context"

// Runtime represents a Wasm runtime engine
type Runtime interface {
	// Compile compiles the given Wasm binary into a CompiledModule
	Compile(ctx context.Context, binary []byte) (CompiledModule, error)
	// InstantiateWithHost links WASI and the given host module, then
	// instantiates module.
	InstantiateWithHost(ctx context.Context, module CompiledModule, host *HostModule, opts InstanceOptions) (ModuleInstance, Context, error)
	// Close closes the runtime and releases all resources
	Close(ctx context.Context) error
}

// CompiledModule represents a compiled Wasm module, ready for instantiation
type CompiledModule interface {
	// ExportedFunctions returns the names of the exported functions.
	ExportedFunctions() []string
	// Close releases the resources associated with the compiled module
	Close(ctx context.Context) error
}

// ModuleInstance represents an instantiated Wasm module
type ModuleInstance interface {
	// Function returns a handle to an exported function
	// Returns nil if the function is not found
	Function(name string) FunctionInstance
	// Memory returns the memory instance of the module
	// Returns nil if the module has no memory
	Memory() Memory
	// Global returns an exported global, or nil.
	Global(name string) Global
	// Close closes the instance and releases its resources
	Close(ctx context.Context) error
}

// FunctionInstance represents an exported function from a Wasm module
type FunctionInstance interface {
	// Call executes the function with the given parameters. A guest that
	// exits through WASI returns an *ExitError.
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Memory represents the linear memory of a Wasm module instance
type Memory interface {
	// Read reads 'size' bytes from the memory at 'offset'
	Read(offset uint32, size uint32) ([]byte, bool)
	// Write writes 'data' to the memory at 'offset'
	Write(offset uint32, data []byte) bool
	// Size returns the memory size in bytes.
	Size() uint32
}

// Global is an exported global variable.
type Global interface {
	Type() ValueType
	// Get returns the raw bits of the value.
	Get() uint64
}

// Context holds runtime-specific state (WASI, host modules, etc.)
// It is opaque to callers and managed entirely by runtime adapters
type Context interface {
	// WithRuntimeContext returns a context suitable for calling guest
	// functions of the instance this Context belongs to.
	WithRuntimeContext(ctx context.Context) context.Context
	// Close releases runtime-specific resources
	Close(ctx context.Context) error
}
