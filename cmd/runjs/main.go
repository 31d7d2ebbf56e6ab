// Command runjs builds JavaScript programs into pre-initialized WebAssembly
// modules and runs them with outbound HTTP limited to an allow-list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/runjs/runjs/config"
	"github.com/runjs/runjs/host"
	"github.com/runjs/runjs/logging"
	"github.com/runjs/runjs/pipeline"
	"github.com/runjs/runjs/runtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if pipeline.IsChild() {
		return child(ctx, args, stdin, stdout, stderr)
	}

	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "build":
		err = buildCommand(ctx, args[1:], stderr)
	case "run":
		err = runCommand(ctx, args[1:], stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	default:
		err = buildAndRunCommand(ctx, args, stderr)
	}
	if err == nil {
		return 0
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	fmt.Fprintf(stderr, "runjs: %v\n", err)
	if code, ok := runtime.ExitCode(err); ok && errors.Is(err, host.ErrEvaluation) {
		return int(code)
	}
	return 1
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  runjs build [-o index.wasm] [-engine engine.wasm] <input.js>
  runjs run [-allow origin]... <module.wasm>
  runjs [-o index.wasm] [-engine engine.wasm] [-allow origin]... <input.js>

Settings are also read from runjs.toml and RUNJS_* environment variables.
`)
}

// child is the process started by pipeline.Build. Everything it needs,
// logging included, arrives in args.
func child(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := pipeline.RunChild(ctx, args, stdin, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "runjs: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(cfg *config.Config) *zap.Logger {
	lc := logging.DefaultConfig()
	lc.Level = cfg.LogLevel
	lc.Development = cfg.LogDevelopment
	return logging.NewOrNop(lc)
}
