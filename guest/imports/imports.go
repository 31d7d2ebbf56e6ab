//go:build wasm

package imports

import "github.com/runjs/runjs/guest/internal/mem"

// httpSend hands an encoded wire.Request to the host, which performs the
// call and keeps the encoded wire.Result. It returns the result length.
//
//go:wasmimport runjs http_send
func httpSend(ptr, size uint32) (len uint32)

// httpResult copies the pending result into the guest buffer.
//
//go:wasmimport runjs http_result
func httpResult(ptr uint32, limit mem.BufLimit) (len uint32)
