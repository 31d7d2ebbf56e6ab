// Package optimize shrinks a built module: it drops custom sections that
// only carry debug or toolchain metadata, then runs Binaryen's wasm-opt
// when it is available, and finally checks the result still compiles.
package optimize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/runjs/runjs/runtime"
	_ "github.com/runjs/runjs/runtime/wazero" // Register Wazero runtime
	"github.com/runjs/runjs/wasmbin"
)

// WasmOptBinary is the name looked up on PATH when no binary is
// configured.
const WasmOptBinary = "wasm-opt"

var (
	// ErrParse is returned for input that is not a well-formed module.
	ErrParse = errors.New("optimize: cannot parse module")
	// ErrInvalid is returned when the optimized module does not compile.
	ErrInvalid = errors.New("optimize: optimized module is invalid")
	// ErrWasmOpt is returned when wasm-opt cannot be found or fails.
	ErrWasmOpt = errors.New("optimize: wasm-opt failed")
)

// Options configures Optimize.
type Options struct {
	// WasmOpt is the path of wasm-opt. When empty, it is looked up on
	// PATH.
	WasmOpt string
	// SkipWasmOpt disables wasm-opt entirely. Without it a missing
	// wasm-opt is an error.
	SkipWasmOpt bool
	// Args replaces the default wasm-opt arguments.
	Args []string

	Runtime runtime.Config
	Logger  *zap.Logger
}

// DefaultArgs are the wasm-opt arguments used unless Options.Args is set.
var DefaultArgs = []string{"-O3", "--strip-debug", "--strip-producers"}

// Optimize returns the optimized form of module.
func Optimize(ctx context.Context, module []byte, opts Options) ([]byte, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m, err := wasmbin.Parse(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	stripped := Strip(m)
	out := m.Encode()
	logger.Debug("stripped custom sections", zap.Strings("sections", stripped), zap.Int("size", len(out)))

	if !opts.SkipWasmOpt {
		bin := opts.WasmOpt
		if bin == "" {
			if bin, err = exec.LookPath(WasmOptBinary); err != nil {
				return nil, fmt.Errorf("%w: %w (install binaryen or skip wasm-opt explicitly)", ErrWasmOpt, err)
			}
		}
		args := opts.Args
		if args == nil {
			args = DefaultArgs
		}
		optimized, err := runWasmOpt(ctx, bin, args, out)
		if err != nil {
			return nil, err
		}
		logger.Debug("ran wasm-opt", zap.String("path", bin), zap.Int("size", len(optimized)))
		out = optimized
	} else {
		logger.Info("wasm-opt skipped, module is not optimized")
	}

	if err := validate(ctx, out, &opts.Runtime); err != nil {
		return nil, err
	}
	return out, nil
}

// Strip removes metadata custom sections from m and returns their names.
func Strip(m *wasmbin.Module) []string {
	var names []string
	m.Remove(func(s wasmbin.Section) bool {
		if s.ID != wasmbin.SectionCustom {
			return false
		}
		name := s.CustomName()
		if metadata(name) {
			names = append(names, name)
			return true
		}
		return false
	})
	return names
}

func metadata(name string) bool {
	switch name {
	case "name", "producers", "target_features", "sourceMappingURL", "external_debug_info":
		return true
	}
	return strings.HasPrefix(name, ".debug_")
}

func runWasmOpt(ctx context.Context, bin string, args []string, module []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "runjs-wasm-opt")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.wasm")
	out := filepath.Join(dir, "out.wasm")
	if err := os.WriteFile(in, module, 0o600); err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, append(append([]string{in}, args...), "-o", out)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrWasmOpt, err, strings.TrimSpace(stderr.String()))
	}
	return os.ReadFile(out)
}

func validate(ctx context.Context, module []byte, cfg *runtime.Config) error {
	rt, err := runtime.NewRuntime(cfg)
	if err != nil {
		return fmt.Errorf("optimize: error creating runtime: %w", err)
	}
	defer rt.Close(ctx)

	compiled, err := rt.Compile(ctx, module)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return compiled.Close(ctx)
}
