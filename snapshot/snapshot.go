// Package snapshot preinitializes a module: it runs the module's
// initialization once and writes a new module whose memory and globals
// start out in the state initialization left them in.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/runjs/runjs/bridge"
	"github.com/runjs/runjs/host"
	"github.com/runjs/runjs/runtime"
	_ "github.com/runjs/runjs/runtime/wazero" // Register Wazero runtime
)

const (
	// DefaultInitFunc is the export called to initialize the module.
	DefaultInitFunc = "runjs_initialize"

	reactorInit = "_initialize"
)

var (
	// ErrUnsupported is returned for modules whose state cannot be
	// captured.
	ErrUnsupported = errors.New("snapshot: unsupported module")
	// ErrInitFailed is returned when initialization traps, exits or is
	// missing.
	ErrInitFailed = errors.New("snapshot: initialization failed")
)

// Options configures Preinitialize.
type Options struct {
	// Stdin is the module's standard input during initialization.
	Stdin io.Reader
	// Stdout and Stderr receive the module's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// InitFunc defaults to DefaultInitFunc.
	InitFunc string

	// MaxSegments defaults to DefaultMaxSegments.
	MaxSegments int

	Runtime runtime.Config
	Logger  *zap.Logger
}

func (o *Options) initFunc() string {
	if o.InitFunc == "" {
		return DefaultInitFunc
	}
	return o.InitFunc
}

// Preinitialize runs the initialization of module and returns the
// snapshotted module. Initialization runs with fixed clocks and random
// source, so equal inputs produce equal outputs. The guest may log but
// every outbound call is refused.
func Preinitialize(ctx context.Context, module []byte, opts Options) ([]byte, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l, err := inspect(module)
	if err != nil {
		return nil, err
	}
	initFunc := opts.initFunc()
	if !l.exported(initFunc) {
		return nil, fmt.Errorf("%w: %s: %w", ErrInitFailed, initFunc, runtime.ErrFunctionNotExported)
	}

	st, err := l.run(ctx, initFunc, opts, logger)
	if err != nil {
		return nil, err
	}

	out, err := l.rewrite(st, []string{reactorInit, initFunc}, opts.MaxSegments)
	if err != nil {
		return nil, err
	}
	logger.Debug("snapshot written",
		zap.Int("memoryBytes", len(st.memory)),
		zap.Int("globals", len(st.globals)),
		zap.Int("size", len(out)),
	)
	return out, nil
}

// run instantiates the instrumented module, initializes it and reads back
// its state.
func (l *layout) run(ctx context.Context, initFunc string, opts Options, logger *zap.Logger) (state, error) {
	rt, err := runtime.NewRuntime(&opts.Runtime)
	if err != nil {
		return state{}, fmt.Errorf("snapshot: error creating runtime: %w", err)
	}
	defer rt.Close(ctx)

	compiled, err := rt.Compile(ctx, l.instrument())
	if err != nil {
		return state{}, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}

	deny, err := bridge.New([]string{}, bridge.WithLogger(logger))
	if err != nil {
		return state{}, err
	}
	ctx = host.WithStack(ctx, &host.Stack{Caller: deny, Logger: logger})

	stdin := opts.Stdin
	if stdin == nil {
		stdin = bytes.NewReader(nil)
	}
	var start []string
	if l.exported(reactorInit) {
		start = []string{reactorInit}
	}

	instance, rc, err := rt.InstantiateWithHost(ctx, compiled, host.NewHostModule(), runtime.InstanceOptions{
		Stdin:          stdin,
		Stdout:         opts.Stdout,
		Stderr:         opts.Stderr,
		Deterministic:  true,
		StartFunctions: start,
	})
	if err != nil {
		return state{}, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	defer rc.Close(ctx)
	defer instance.Close(ctx)

	logger.Debug("initializing module", zap.String("func", initFunc))
	if _, err := instance.Function(initFunc).Call(rc.WithRuntimeContext(ctx)); err != nil {
		return state{}, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	st := state{globals: make(map[int]uint64, len(l.mutable))}
	for _, i := range l.mutable {
		g := instance.Global(globalExportName(i))
		if g == nil {
			return state{}, fmt.Errorf("snapshot: global %d not exported", l.importedGlobals+i)
		}
		st.globals[i] = g.Get()
	}
	if l.memory != nil {
		mem := instance.Memory()
		data, ok := mem.Read(0, mem.Size())
		if !ok {
			return state{}, fmt.Errorf("snapshot: reading %d bytes of memory failed", mem.Size())
		}
		st.memory = append([]byte(nil), data...)
	}
	return st, nil
}
