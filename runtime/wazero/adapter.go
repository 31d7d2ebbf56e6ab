package wazero

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/stealthrocket/wasi-go"
	wasigo "github.com/stealthrocket/wasi-go/imports"
	"github.com/stealthrocket/wasi-go/imports/wasi_snapshot_preview1"
	"github.com/stealthrocket/wazergo"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	wazerowasi "github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/runjs/runjs/runtime"
)

// wazeroRuntime implements runtime.Runtime using Wazero
type wazeroRuntime struct {
	runtime wazero.Runtime
}

// wazeroCompiledModule implements runtime.CompiledModule for Wazero
type wazeroCompiledModule struct {
	module wazero.CompiledModule
}

// wazeroModuleInstance implements runtime.ModuleInstance for Wazero
type wazeroModuleInstance struct {
	instance api.Module
}

// wazeroFunctionInstance implements runtime.FunctionInstance for Wazero
type wazeroFunctionInstance struct {
	function api.Function
}

// wazeroMemory implements runtime.Memory for Wazero
type wazeroMemory struct {
	memory api.Memory
}

type wazeroGlobal struct {
	global api.Global
}

// wazeroContext implements runtime.Context for Wazero
type wazeroContext struct {
	// Set when stdio is passed through with wasi-go.
	sys              wasi.System
	wasiP1HostModule *wasi_snapshot_preview1.Module

	// Set when the guest runs on wazero's own WASI.
	wasi api.Closer

	host api.Module
}

// Compile compiles the given Wasm binary into a CompiledModule
func (r *wazeroRuntime) Compile(ctx context.Context, binary []byte) (runtime.CompiledModule, error) {
	compiled, err := r.runtime.CompileModule(ctx, binary)
	if err != nil {
		return nil, fmt.Errorf("wazero compile error: %w: %w", runtime.ErrModuleCompileFailed, err)
	}
	return &wazeroCompiledModule{module: compiled}, nil
}

// InstantiateWithHost creates module instance with host functions and runtime-specific setup
func (r *wazeroRuntime) InstantiateWithHost(ctx context.Context, module runtime.CompiledModule, host *runtime.HostModule, opts runtime.InstanceOptions) (runtime.ModuleInstance, runtime.Context, error) {
	wazeroModule, ok := module.(*wazeroCompiledModule)
	if !ok {
		return nil, nil, fmt.Errorf("invalid module type for wazero runtime: %w", runtime.ErrInvalidConfiguration)
	}

	rc := &wazeroContext{}
	config := wazero.NewModuleConfig().WithStartFunctions(opts.StartFunctions...)

	if opts.PassThrough() {
		// Duplicate the process descriptors instead of reopening /dev/std*,
		// so file offsets are shared with the host and sockets work.
		wctx, sys, err := wasigo.NewBuilder().
			WithStdio(int(os.Stdin.Fd()), int(os.Stdout.Fd()), int(os.Stderr.Fd())).
			Instantiate(ctx, r.runtime)
		if err != nil {
			return nil, nil, fmt.Errorf("wasi instantiation failed: %w", err)
		}
		rc.sys = sys

		// Extract the wasi host module instance from the context as a workaround
		// to avoid panic when calling wasi functions with different context than the one used to instantiate the host module.
		rc.wasiP1HostModule, ok = moduleInstanceFor[*wasi_snapshot_preview1.Module](wctx)
		if !ok {
			rc.Close(ctx)
			return nil, nil, fmt.Errorf("failed to retrieve wasi host module instance: %w", runtime.ErrInvalidConfiguration)
		}
		ctx = wctx
	} else {
		closer, err := wazerowasi.Instantiate(ctx, r.runtime)
		if err != nil {
			return nil, nil, fmt.Errorf("wasi instantiation failed: %w", err)
		}
		rc.wasi = closer
		config = withStreams(config, opts)
	}

	if host != nil {
		mod, err := r.instantiateHostModule(ctx, host)
		if err != nil {
			rc.Close(ctx)
			return nil, nil, fmt.Errorf("host module instantiation failed: %w", err)
		}
		rc.host = mod
	}

	instance, err := r.runtime.InstantiateModule(ctx, wazeroModule.module, config)
	if err != nil {
		rc.Close(ctx)
		return nil, nil, fmt.Errorf("guest module instantiation failed: %w: %w", runtime.ErrModuleInstantiateFailed, exitError(err))
	}

	return &wazeroModuleInstance{instance: instance}, rc, nil
}

func withStreams(config wazero.ModuleConfig, opts runtime.InstanceOptions) wazero.ModuleConfig {
	if opts.Stdin != nil {
		config = config.WithStdin(opts.Stdin)
	} else {
		config = config.WithStdin(bytes.NewReader(nil))
	}
	if opts.Stdout != nil {
		config = config.WithStdout(opts.Stdout)
	}
	if opts.Stderr != nil {
		config = config.WithStderr(opts.Stderr)
	}
	// wazero's clocks and random source are fixed unless opted in.
	if !opts.Deterministic {
		config = config.
			WithSysWalltime().
			WithSysNanotime().
			WithSysNanosleep().
			WithRandSource(rand.Reader)
	}
	return config
}

// Close closes the runtime and releases all resources
func (r *wazeroRuntime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// ExportedFunctions returns the sorted names of the exported functions.
func (m *wazeroCompiledModule) ExportedFunctions() []string {
	defs := m.module.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the resources associated with the compiled module
func (m *wazeroCompiledModule) Close(ctx context.Context) error {
	return m.module.Close(ctx)
}

// Function returns a handle to an exported function
func (m *wazeroModuleInstance) Function(name string) runtime.FunctionInstance {
	fn := m.instance.ExportedFunction(name)
	if fn == nil {
		return nil
	}
	return &wazeroFunctionInstance{function: fn}
}

// Memory returns the memory instance of the module
func (m *wazeroModuleInstance) Memory() runtime.Memory {
	return wrapMemory(m.instance.Memory())
}

func (m *wazeroModuleInstance) Global(name string) runtime.Global {
	g := m.instance.ExportedGlobal(name)
	if g == nil {
		return nil
	}
	return &wazeroGlobal{global: g}
}

// Close closes the instance and releases its resources
func (m *wazeroModuleInstance) Close(ctx context.Context) error {
	return m.instance.Close(ctx)
}

// Call executes the function with the given parameters
func (f *wazeroFunctionInstance) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	res, err := f.function.Call(ctx, params...)
	if err != nil {
		return nil, exitError(err)
	}
	return res, nil
}

// Read reads 'size' bytes from the memory at 'offset'
func (mem *wazeroMemory) Read(offset uint32, size uint32) ([]byte, bool) {
	return mem.memory.Read(offset, size)
}

// Write writes 'data' to the memory at 'offset'
func (mem *wazeroMemory) Write(offset uint32, data []byte) bool {
	return mem.memory.Write(offset, data)
}

func (mem *wazeroMemory) Size() uint32 {
	return mem.memory.Size()
}

func (g *wazeroGlobal) Type() runtime.ValueType {
	return fromValueType(g.global.Type())
}

func (g *wazeroGlobal) Get() uint64 {
	return g.global.Get()
}

// Close releases runtime-specific resources
func (c *wazeroContext) Close(ctx context.Context) error {
	var errs []error
	if c.host != nil {
		errs = append(errs, c.host.Close(ctx))
	}
	if c.wasi != nil {
		errs = append(errs, c.wasi.Close(ctx))
	}
	if c.sys != nil {
		errs = append(errs, c.sys.Close(ctx))
	}
	return errors.Join(errs...)
}

// WithRuntimeContext returns a context configured for runtime-specific operations
func (c *wazeroContext) WithRuntimeContext(ctx context.Context) context.Context {
	if c.wasiP1HostModule == nil {
		return ctx
	}
	return withModuleInstance(ctx, c.wasiP1HostModule)
}

// instantiateHostModule creates and instantiates the host module with exported functions
func (r *wazeroRuntime) instantiateHostModule(ctx context.Context, hostModule *runtime.HostModule) (api.Module, error) {
	builder := r.runtime.NewHostModuleBuilder(hostModule.Name)

	for _, hostFunc := range hostModule.Functions {
		if hostFunc.Func == nil {
			return nil, fmt.Errorf("host function %s has no implementation: %w", hostFunc.Name, runtime.ErrInvalidConfiguration)
		}
		fn := hostFunc.Func

		paramTypes := make([]api.ValueType, len(hostFunc.ParamTypes))
		for i, vt := range hostFunc.ParamTypes {
			paramTypes[i] = convertValueType(vt)
		}

		resultTypes := make([]api.ValueType, len(hostFunc.ResultTypes))
		for i, vt := range hostFunc.ResultTypes {
			resultTypes[i] = convertValueType(vt)
		}

		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				fn(ctx, wrapMemory(mod.Memory()), stack)
			}), paramTypes, resultTypes).
			Export(hostFunc.Name)
	}

	return builder.Instantiate(ctx)
}

func wrapMemory(m api.Memory) runtime.Memory {
	if m == nil {
		return nil
	}
	return &wazeroMemory{memory: m}
}

// exitError converts wazero's exit error so callers do not depend on it.
func exitError(err error) error {
	var se *sys.ExitError
	if errors.As(err, &se) {
		return &runtime.ExitError{Code: se.ExitCode()}
	}
	return err
}

// convertValueType converts runtime.ValueType to api.ValueType
func convertValueType(vt runtime.ValueType) api.ValueType {
	switch vt {
	case runtime.ValueTypeI32:
		return api.ValueTypeI32
	case runtime.ValueTypeI64:
		return api.ValueTypeI64
	case runtime.ValueTypeF32:
		return api.ValueTypeF32
	case runtime.ValueTypeF64:
		return api.ValueTypeF64
	default:
		return api.ValueTypeI32 // default fallback
	}
}

func fromValueType(vt api.ValueType) runtime.ValueType {
	switch vt {
	case api.ValueTypeI32:
		return runtime.ValueTypeI32
	case api.ValueTypeI64:
		return runtime.ValueTypeI64
	case api.ValueTypeF32:
		return runtime.ValueTypeF32
	case api.ValueTypeF64:
		return runtime.ValueTypeF64
	default:
		return runtime.ValueTypeOther
	}
}

// moduleInstanceFor returns the module instance from the context that contains the internal
// state required for WASI host functions.
// NOTE: wasi-go returns context containing internal state when initializing the host module,
// and the same context is required when calling wasi functions exposed by wasi-go.
func moduleInstanceFor[T wazergo.Module](ctx context.Context) (res T, ok bool) {
	res, ok = ctx.Value((*wazergo.ModuleInstance[T])(nil)).(T)
	return
}

// withModuleInstance returns a Go context inheriting from ctx and containing the
// state needed for module instantiated from wazero host module to properly bind
// their methods to their receiver (e.g. the module instance).
func withModuleInstance[T wazergo.Module](ctx context.Context, instance T) context.Context {
	return context.WithValue(ctx, (*wazergo.ModuleInstance[T])(nil), instance)
}
