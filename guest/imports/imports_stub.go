//go:build !wasm

package imports

import "github.com/runjs/runjs/guest/internal/mem"

// This file is used to stub out the imports for running tests.

func httpSend(ptr, size uint32) uint32 { return 0 }

func httpResult(ptr uint32, limit mem.BufLimit) uint32 { return 0 }
