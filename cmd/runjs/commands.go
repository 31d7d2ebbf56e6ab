package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/runjs/runjs/config"
	"github.com/runjs/runjs/host"
	"github.com/runjs/runjs/pipeline"
	"github.com/runjs/runjs/runtime"
)

var errUsage = errors.New("usage")

// originList collects repeated -allow flags.
type originList []string

func (o *originList) String() string {
	return strings.Join(*o, ",")
}

func (o *originList) Set(v string) error {
	*o = append(*o, v)
	return nil
}

// options are the parsed flags of a command layered over the loaded
// configuration.
type options struct {
	cfg   *config.Config
	input string
}

type flagSet struct {
	*flag.FlagSet

	configFile string
	output     string
	engine     string
	wasmOpt    string
	noWasmOpt  bool
	mode       string
	logLevel   string
	allow      originList
	noNetwork  bool
}

func newFlagSet(name string, stderr io.Writer, buildFlags, runFlags bool) *flagSet {
	fs := &flagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
	fs.SetOutput(stderr)
	fs.StringVar(&fs.configFile, "config", "", "configuration file (default: nearest "+config.FileName+")")
	fs.StringVar(&fs.mode, "runtime-mode", "", "runtime mode: interpreter or compiler")
	fs.StringVar(&fs.logLevel, "log-level", "", "log level: debug, info, warn, error")
	if buildFlags {
		fs.StringVar(&fs.output, "o", "", "output module (default: index.wasm)")
		fs.StringVar(&fs.engine, "engine", "", "engine module")
		fs.StringVar(&fs.wasmOpt, "wasm-opt", "", "wasm-opt binary (default: looked up on PATH)")
		fs.BoolVar(&fs.noWasmOpt, "no-wasm-opt", false, "skip wasm-opt")
	}
	if runFlags {
		fs.Var(&fs.allow, "allow", "origin the program may call; repeatable")
		fs.BoolVar(&fs.noNetwork, "no-network", false, "deny every outbound call")
	}
	return fs
}

// parse parses args and returns the configuration with flags applied.
func (fs *flagSet) parse(args []string) (*options, error) {
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(fs.Output(), "%s: expected exactly one input file\n", fs.Name())
		fs.Usage()
		return nil, errUsage
	}

	file := fs.configFile
	if file == "" {
		var err error
		if file, err = config.FindFile("."); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(file)
	if err != nil {
		return nil, err
	}

	if fs.output != "" {
		cfg.Output = fs.output
	}
	if fs.engine != "" {
		cfg.EnginePath = fs.engine
	}
	if fs.wasmOpt != "" {
		cfg.WasmOpt = fs.wasmOpt
	}
	if fs.noWasmOpt {
		cfg.SkipWasmOpt = true
	}
	if fs.mode != "" {
		cfg.Runtime.Mode = runtime.Mode(fs.mode)
	}
	if fs.logLevel != "" {
		cfg.LogLevel = fs.logLevel
	}
	if len(fs.allow) > 0 {
		cfg.AllowedOrigins = fs.allow
	}
	if fs.noNetwork {
		cfg.AllowedOrigins = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &options{cfg: cfg, input: fs.Arg(0)}, nil
}

func buildCommand(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := newFlagSet("build", stderr, true, false).parse(args)
	if err != nil {
		return err
	}
	logger := newLogger(opts.cfg)
	defer logger.Sync() //nolint:errcheck
	return build(ctx, opts, logger)
}

func runCommand(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := newFlagSet("run", stderr, false, true).parse(args)
	if err != nil {
		return err
	}
	logger := newLogger(opts.cfg)
	defer logger.Sync() //nolint:errcheck
	return execute(ctx, opts.cfg, opts.input, logger)
}

func buildAndRunCommand(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := newFlagSet("runjs", stderr, true, true).parse(args)
	if err != nil {
		return err
	}
	logger := newLogger(opts.cfg)
	defer logger.Sync() //nolint:errcheck

	if err := build(ctx, opts, logger); err != nil {
		return err
	}
	return execute(ctx, opts.cfg, opts.cfg.Output, logger)
}

func build(ctx context.Context, opts *options, logger *zap.Logger) error {
	return pipeline.Build(ctx, buildOptions(opts, logger))
}

// buildOptions hands the fully resolved configuration to the build child,
// which does not read runjs.toml itself.
func buildOptions(opts *options, logger *zap.Logger) pipeline.Options {
	return pipeline.Options{
		Input:       opts.input,
		Output:      opts.cfg.Output,
		Engine:      opts.cfg.EnginePath,
		WasmOpt:     opts.cfg.WasmOpt,
		SkipWasmOpt: opts.cfg.SkipWasmOpt,
		Runtime:     opts.cfg.Runtime,
		Logger:      logger,

		LogLevel:       opts.cfg.LogLevel,
		LogDevelopment: opts.cfg.LogDevelopment,
	}
}

// execute runs a built module with the process's stdio.
func execute(ctx context.Context, cfg *config.Config, module string, logger *zap.Logger) error {
	d, err := host.New(ctx, &host.Config{
		Path:           module,
		AllowedOrigins: cfg.AllowedOrigins,
		HTTPTimeout:    cfg.HTTPTimeout,
		Runtime:        cfg.Runtime,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	return d.Run(ctx)
}
