// Command enginebuilder compiles the runjs engine, a WASI reactor embedding
// the JavaScript interpreter, into the module that builds snapshot.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
)

const defaultPackage = "github.com/runjs/runjs/cmd/engine"

var (
	output  string
	workDir string
	goFlags string
)

func init() {
	flag.StringVar(&output, "o", "engine.wasm", "output file")
	flag.StringVar(&workDir, "workdir", "", "directory of the runjs module (default: current directory)")
	flag.StringVar(&goFlags, "goflags", "", "extra flags passed to go build")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [package]\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	pkg := defaultPackage
	if flag.NArg() > 0 {
		pkg = flag.Arg(0)
	}

	builder := &Builder{
		WorkDir: workDir,
		Package: pkg,
		Output:  output,
		GoFlags: goFlags,
	}

	if err := builder.Build(); err != nil {
		slog.Error("Failed to build engine", "package", pkg, "error", err)
		os.Exit(1)
	}

	slog.Info("Build completed successfully", "output", output)
}
