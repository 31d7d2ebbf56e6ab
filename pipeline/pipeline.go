// Package pipeline turns a JavaScript source file into a pre-initialized
// module. The work happens in a child copy of the current executable that
// reads the source on its stdin, so a failed build never leaves a partial
// output behind.
package pipeline

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/runjs/runjs/logging"
	"github.com/runjs/runjs/optimize"
	"github.com/runjs/runjs/runtime"
	"github.com/runjs/runjs/snapshot"
)

// EnvChild marks the child process started by Build.
const EnvChild = "RUNJS_WIZEN"

// DefaultOutput is the output path used when none is given.
const DefaultOutput = "index.wasm"

var (
	// ErrChildFailed is returned by Build when the child exits non-zero.
	ErrChildFailed = errors.New("pipeline: build failed")
	// ErrNoEngine is returned when no engine module is configured.
	ErrNoEngine = errors.New("pipeline: engine module path is required")
)

// Options configures a build.
type Options struct {
	// Input is the JavaScript source file.
	Input string
	// Output defaults to DefaultOutput.
	Output string
	// Engine is the path of the engine module.
	Engine string

	WasmOpt     string
	SkipWasmOpt bool
	Runtime     runtime.Config

	// Stdout and Stderr receive the child's output. They default to the
	// process's own.
	Stdout io.Writer
	Stderr io.Writer

	// Executable overrides the program re-executed as the child.
	Executable string

	// LogLevel and LogDevelopment configure the child's logger, which
	// writes to the child's stderr.
	LogLevel       string
	LogDevelopment bool

	Logger *zap.Logger
}

func (o *Options) output() string {
	if o.Output == "" {
		return DefaultOutput
	}
	return o.Output
}

// IsChild reports whether this process was started by Build.
func IsChild() bool {
	return os.Getenv(EnvChild) == "1"
}

// Build re-executes the current program as a child that snapshots and
// optimizes the engine with the input as its stdin.
func Build(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Engine == "" {
		return ErrNoEngine
	}

	src, err := os.Open(opts.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	exe := opts.Executable
	if exe == "" {
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("pipeline: cannot locate executable: %w", err)
		}
	}

	output := opts.output()
	cmd := exec.CommandContext(ctx, exe, childArgs(opts, output)...)
	cmd.Env = append(os.Environ(), EnvChild+"=1")
	cmd.Stdin = src
	cmd.Stdout = orDefault(opts.Stdout, os.Stdout)
	cmd.Stderr = orDefault(opts.Stderr, os.Stderr)

	previous, _ := os.Stat(output)

	logger.Info("building module", zap.String("input", opts.Input), zap.String("output", output))
	if err := cmd.Run(); err != nil {
		if rmErr := removeIfReplaced(output, previous); rmErr != nil {
			logger.Warn("failed to remove output", zap.Error(rmErr))
		}
		return fmt.Errorf("%w: %w", ErrChildFailed, err)
	}
	logger.Info("module built", zap.String("output", output))
	return nil
}

// removeIfReplaced removes path when it is not the file that was there
// before the child ran. An artifact from an earlier build is left alone.
func removeIfReplaced(path string, previous os.FileInfo) error {
	current, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if previous != nil && os.SameFile(previous, current) {
		return nil
	}
	return os.Remove(path)
}

func orDefault(w io.Writer, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

func childArgs(opts Options, output string) []string {
	args := []string{"-engine", opts.Engine, "-o", output}
	if opts.WasmOpt != "" {
		args = append(args, "-wasm-opt", opts.WasmOpt)
	}
	if opts.SkipWasmOpt {
		args = append(args, "-skip-wasm-opt")
	}
	if opts.Runtime.Mode != "" {
		args = append(args, "-runtime-mode", string(opts.Runtime.Mode))
	}
	if opts.LogLevel != "" {
		args = append(args, "-log-level", opts.LogLevel)
	}
	if opts.LogDevelopment {
		args = append(args, "-log-development")
	}
	return args
}

// RunChild is the child half of Build. It reads the source from stdin,
// builds the module and writes it to the output named in args. Logs go to
// stderr.
func RunChild(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	os.Unsetenv(EnvChild)

	var (
		opts Options
		mode string
	)
	fs := flag.NewFlagSet("runjs-build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.Engine, "engine", "", "engine module")
	fs.StringVar(&opts.Output, "o", DefaultOutput, "output module")
	fs.StringVar(&opts.WasmOpt, "wasm-opt", "", "wasm-opt binary")
	fs.BoolVar(&opts.SkipWasmOpt, "skip-wasm-opt", false, "do not run wasm-opt")
	fs.StringVar(&mode, "runtime-mode", "", "runtime mode")
	fs.StringVar(&opts.LogLevel, "log-level", "", "log level")
	fs.BoolVar(&opts.LogDevelopment, "log-development", false, "development logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lc := logging.DefaultConfig()
	if opts.LogLevel != "" {
		lc.Level = opts.LogLevel
	}
	lc.Development = opts.LogDevelopment
	lc.Writer = stderr
	logger, err := logging.New(lc)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	opts.Runtime.Mode = runtime.Mode(mode)
	if opts.Engine == "" {
		return ErrNoEngine
	}

	engine, err := os.ReadFile(opts.Engine)
	if err != nil {
		return fmt.Errorf("pipeline: reading engine: %w", err)
	}

	logger.Info("preinitializing engine", zap.String("engine", opts.Engine))
	module, err := snapshot.Preinitialize(ctx, engine, snapshot.Options{
		Stdin:   stdin,
		Stdout:  stdout,
		Stderr:  stderr,
		Runtime: opts.Runtime,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	logger.Info("optimizing module", zap.Int("size", len(module)))
	module, err = optimize.Optimize(ctx, module, optimize.Options{
		WasmOpt:     opts.WasmOpt,
		SkipWasmOpt: opts.SkipWasmOpt,
		Runtime:     opts.Runtime,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return writeFile(opts.output(), module)
}

// writeFile replaces path with data through a temporary file in the same
// directory.
func writeFile(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
