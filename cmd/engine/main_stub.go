//go:build !wasm

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "engine: build with GOOS=wasip1 GOARCH=wasm -buildmode=c-shared")
	os.Exit(2)
}
