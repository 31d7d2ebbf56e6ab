// Package host loads a built module and runs its entry point with the
// runjs host functions linked in.
package host

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/runjs/runjs/bridge"
	"github.com/runjs/runjs/runtime"
	_ "github.com/runjs/runjs/runtime/wazero" // Register Wazero runtime
)

// Driver runs a built module. Each Run instantiates the module afresh, so
// the entry point of any one instance is called at most once.
type Driver struct {
	cfg    Config
	binary []byte
	abi    ABIVersion
	logger *zap.Logger

	mu sync.Mutex
}

// New reads and compiles the module at cfg.Path and checks that it exports
// the entry point and the ABI marker.
func New(ctx context.Context, cfg *Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	binary, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.NewRuntime(&cfg.Runtime)
	if err != nil {
		return nil, fmt.Errorf("wasm: error creating runtime: %w", err)
	}
	defer rt.Close(ctx)

	compiled, err := rt.Compile(ctx, binary)
	if err != nil {
		return nil, fmt.Errorf("wasm: error compiling module: %w", err)
	}

	exports := compiled.ExportedFunctions()
	if !slices.Contains(exports, StartExport) {
		return nil, fmt.Errorf("wasm: %s is not exported: %w", StartExport, ErrRequiredFunctionNotExported)
	}
	abi := detectABIVersion(exports)
	if abi == ABIUnknown {
		return nil, fmt.Errorf("wasm: %s is not exported: %w", abiVersionV1MarkerExport, ErrABIVersionMarkerNotExported)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{
		cfg:    *cfg,
		binary: binary,
		abi:    abi,
		logger: logger,
	}, nil
}

// ABI returns the ABI version the module was built against.
func (d *Driver) ABI() ABIVersion {
	return d.abi
}

// Run instantiates the module and calls its entry point once. A guest that
// traps or exits with a non-zero status yields ErrEvaluation.
func (d *Driver) Run(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	logger := d.logger.With(zap.String("run", uuid.NewString()))

	opts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithTimeout(d.cfg.HTTPTimeout),
	}
	if d.cfg.Transport != nil {
		opts = append(opts, bridge.WithTransport(d.cfg.Transport))
	}
	b, err := bridge.New(d.cfg.allowedOrigins(), opts...)
	if err != nil {
		return fmt.Errorf("wasm: error creating bridge: %w", err)
	}

	rt, err := runtime.NewRuntime(&d.cfg.Runtime)
	if err != nil {
		return fmt.Errorf("wasm: error creating runtime: %w", err)
	}
	defer rt.Close(ctx)

	compiled, err := rt.Compile(ctx, d.binary)
	if err != nil {
		return fmt.Errorf("wasm: error compiling module: %w", err)
	}

	stack := &Stack{Caller: b, Logger: logger}
	ctx = WithStack(ctx, stack)

	instance, rc, err := rt.InstantiateWithHost(ctx, compiled, NewHostModule(), runtime.InstanceOptions{
		Stdout: d.cfg.Stdout,
		Stderr: d.cfg.Stderr,
	})
	if err != nil {
		return fmt.Errorf("wasm: error instantiating module: %w", err)
	}
	defer rc.Close(ctx)
	defer instance.Close(ctx)

	start := instance.Function(StartExport)
	if start == nil {
		return fmt.Errorf("wasm: %s is not exported: %w", StartExport, ErrRequiredFunctionNotExported)
	}

	logger.Debug("calling entry point", zap.Stringer("abi", d.abi))
	_, err = start.Call(rc.WithRuntimeContext(ctx))
	if code, ok := runtime.ExitCode(err); ok && code == 0 {
		err = nil
	}
	logger.Debug("entry point returned", zap.Int("httpCalls", stack.Calls), zap.Error(err))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEvaluation, err)
	}
	return nil
}
