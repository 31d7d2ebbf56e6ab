//go:build wasm

// Command engine is the generic JavaScript engine module. It is built as a
// WASI reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o engine.wasm ./cmd/engine
//
// runjs_initialize compiles the script read from stdin and is run once,
// while the module is snapshotted. start runs the compiled script in the
// snapshotted module.
package main

import (
	"fmt"
	"os"

	"github.com/runjs/runjs/guest/bootstrap"
	"github.com/runjs/runjs/guest/imports"
	"github.com/runjs/runjs/guest/logging"
)

var state bootstrap.Slot[*bootstrap.State]

func main() {}

//go:wasmexport runjs_initialize
func initialize() {
	st, err := bootstrap.Initialize(os.Stdin, bootstrap.Options{
		Name:   bootstrap.DefaultName,
		Stdout: os.Stdout,
		Sender: imports.HTTP{},
		Logger: logging.NewHostBridgeLogger(),
	})
	if err != nil {
		fail(err)
	}
	state.Set(st)
}

//go:wasmexport start
func start() {
	if err := bootstrap.Run(state.Take()); err != nil {
		fail(err)
	}
}

// abiV1 marks the host interface this engine was built against.
//
//go:wasmexport runjs_abi_v1
func abiV1() {}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "runjs: %v\n", err)
	os.Exit(1)
}
